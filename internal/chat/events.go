package chat

import "encoding/json"

// ChunkEvent carries one streamed fragment of an assistant reply.
type ChunkEvent struct {
	ID      json.RawMessage `json:"id"`
	Content string          `json:"content"`
}

// EventType implements ipc.Event.
func (ChunkEvent) EventType() string { return "chunk" }

// ErrorEvent reports a failed turn. No done event follows it.
type ErrorEvent struct {
	ID      json.RawMessage `json:"id"`
	Content string          `json:"content"`
}

// EventType implements ipc.Event.
func (ErrorEvent) EventType() string { return "error" }

// DoneEvent closes a successful turn. Edits is always a list, empty
// when the reply contained no edit hunks, and ContextFile echoes the
// file the request was grounded on so the host can apply edits to it.
type DoneEvent struct {
	ID          json.RawMessage `json:"id"`
	HasEdits    bool            `json:"has_edits"`
	Edits       []Edit          `json:"edits"`
	ContextFile *string         `json:"context_file"`
}

// EventType implements ipc.Event.
func (DoneEvent) EventType() string { return "done" }
