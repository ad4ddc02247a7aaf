// Package ipc implements the file-based protocol spoken with the host
// editor. A bridge instance owns one directory holding a pair of lanes:
// the completion lane (cmd/resp/ready) and the chat lane
// (chat_cmd/chat_resp/chat_ready).
//
// Each lane is half a duplex pipe built from two append-only logs of
// newline-delimited JSON. The host appends commands to the command log and
// tails the response log; the bridge does the reverse. The bridge tracks a
// byte offset into the command log and polls for growth, so delivery is
// at-most-once: a command line is consumed exactly when the offset passes
// it, and truncating the log below the offset rewinds to the top without
// re-delivering anything that was already consumed.
//
// Response lines are written whole. Emit serializes writers and opens the
// log for append per write, so concurrent emitters can never interleave
// partial lines.
package ipc
