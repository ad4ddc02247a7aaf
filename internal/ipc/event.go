package ipc

import "encoding/json"

// Event is one line of a response log. Concrete event types fix the exact
// wire shape of their payload; EventType names the discriminator Emit
// stamps onto the line.
type Event interface {
	EventType() string
}

// ReadyEvent announces the lane is serving. Emitted once at startup.
type ReadyEvent struct{}

func (ReadyEvent) EventType() string { return "ready" }

// InitializedEvent answers an initialize command once the server finished
// its handshake.
type InitializedEvent struct {
	ID json.RawMessage `json:"id"`
}

func (InitializedEvent) EventType() string { return "initialized" }

// CompletionItem is one completion in host form. Range and command stay
// raw and are null when the server omitted them.
type CompletionItem struct {
	InsertText string          `json:"insertText"`
	Range      json.RawMessage `json:"range"`
	Command    json.RawMessage `json:"command"`
}

// CompletionResultEvent answers an inlineCompletion command. Items is
// always present, possibly empty.
type CompletionResultEvent struct {
	ID    json.RawMessage  `json:"id"`
	Items []CompletionItem `json:"items"`
}

func (CompletionResultEvent) EventType() string { return "completionResult" }

// SignInResultEvent answers a signIn command. With no device flow pending
// the codes are empty and the command key is absent; otherwise the command
// key is present even when null.
type SignInResultEvent struct {
	ID              json.RawMessage `json:"id"`
	UserCode        string          `json:"userCode"`
	VerificationURI string          `json:"verificationUri"`
	Command         json.RawMessage `json:"command,omitempty"`
}

func (SignInResultEvent) EventType() string { return "signInResult" }

// SignOutResultEvent answers a signOut command.
type SignOutResultEvent struct {
	ID json.RawMessage `json:"id"`
}

func (SignOutResultEvent) EventType() string { return "signOutResult" }

// CommandResultEvent answers an executeCommand command with the raw
// server result, which may be null.
type CommandResultEvent struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
}

func (CommandResultEvent) EventType() string { return "commandResult" }

// LSPResponseEvent answers any request the dedicated events do not cover.
type LSPResponseEvent struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
}

func (LSPResponseEvent) EventType() string { return "lspResponse" }

// ErrorEvent reports the server answered a command with an error. The
// error object is relayed verbatim.
type ErrorEvent struct {
	ID    json.RawMessage `json:"id"`
	Error json.RawMessage `json:"error"`
}

func (ErrorEvent) EventType() string { return "error" }

// ShowMessageEvent relays a server message for the host to display.
type ShowMessageEvent struct {
	Message string `json:"message"`
	MsgType int64  `json:"msgType"`
}

func (ShowMessageEvent) EventType() string { return "showMessage" }

// ShowMessageRequestEvent relays a server message that offered actions.
// The id is the server's request id in string form; the request was
// already answered with null, so the host display is informational.
type ShowMessageRequestEvent struct {
	ID      string          `json:"id"`
	Message string          `json:"message"`
	MsgType int64           `json:"msgType"`
	Actions json.RawMessage `json:"actions"`
}

func (ShowMessageRequestEvent) EventType() string { return "showMessageRequest" }

// ShowDocumentEvent relays a server request to open a document. Path
// carries the local filesystem path when the URI has a file scheme, so
// the host can open the file without parsing the URI itself.
type ShowDocumentEvent struct {
	URI  string `json:"uri"`
	Path string `json:"path,omitempty"`
}

func (ShowDocumentEvent) EventType() string { return "showDocument" }

// StatusChangedEvent relays a Copilot status change.
type StatusChangedEvent struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

func (StatusChangedEvent) EventType() string { return "statusChanged" }

// ServerStoppedEvent reports the language server exited. The bridge shuts
// down right after emitting it.
type ServerStoppedEvent struct{}

func (ServerStoppedEvent) EventType() string { return "serverStopped" }
