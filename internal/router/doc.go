// Package router translates between the host's command/event protocol and
// the language server's JSON-RPC traffic.
//
// Host commands become requests or notifications; server replies come back
// through the request registry and are reshaped into host events. Server
// notifications are filtered and forwarded, and server-initiated requests
// are answered immediately so the server is never left blocked on a reply
// the host cannot give.
//
// A Router holds no mutable state of its own. HandleCommand and
// HandleMessage may run on different goroutines as long as the Sender and
// Emitter they share are concurrency-safe.
package router
