// Package lsp implements the wire protocol spoken with the Copilot language
// server: the JSON-RPC 2.0 envelope, the Content-Length framed stdio codec,
// and the registry that correlates in-flight requests with their replies.
//
// The codec is stream-oriented. Server stdout arrives in arbitrary chunks;
// Decoder buffers across chunk boundaries and yields whole messages in
// arrival order. Malformed frames are dropped and decoding continues, so one
// bad frame cannot take the session down.
//
// Request ids are minted by Registry and never reused. An entry is
// registered before its request frame is written, which guarantees a reply
// arriving any time later finds the entry; replies with unknown ids are
// discarded.
package lsp
