package ipc

import "encoding/json"

// Command type tags accepted on the completion lane.
const (
	CmdInitialize          = "initialize"
	CmdConfiguration       = "configuration"
	CmdOpenDocument        = "openDocument"
	CmdChangeDocument      = "changeDocument"
	CmdCloseDocument       = "closeDocument"
	CmdFocusDocument       = "focusDocument"
	CmdInlineCompletion    = "inlineCompletion"
	CmdSignIn              = "signIn"
	CmdSignOut             = "signOut"
	CmdExecuteCommand      = "executeCommand"
	CmdDidAcceptCompletion = "didAcceptCompletion"
	CmdDidShowCompletion   = "didShowCompletion"
)

// Command type tags accepted on the chat lane. A chat line with no type
// tag is treated as a message.
const (
	ChatCmdMessage = "message"
	ChatCmdModel   = "model"
	ChatCmdClear   = "clear"
)

// Command is one parsed line of a command log: the type tag, the host's
// correlation token when present, and the raw object for typed decoding.
type Command struct {
	Type string
	// ID is echoed back verbatim on whatever event answers the command.
	// Hosts may use numbers or strings; the bridge never interprets it.
	ID  json.RawMessage
	Raw json.RawMessage
}

// Decode unmarshals the command payload into a params struct.
func (c Command) Decode(params any) error {
	return json.Unmarshal(c.Raw, params)
}

// Initialize starts the language server session over the given roots.
type Initialize struct {
	WorkspaceFolders []string `json:"workspaceFolders"`
}

// Configuration pushes host settings to the server, opaquely.
type Configuration struct {
	Settings json.RawMessage `json:"settings"`
}

// OpenDocument announces a document the host opened. Version defaults to
// 1 and languageId to plaintext when absent.
type OpenDocument struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    *int   `json:"version"`
	Text       string `json:"text"`
}

// ChangeDocument carries edits to an open document. Changes pass through
// verbatim, full-text or incremental.
type ChangeDocument struct {
	URI     string            `json:"uri"`
	Version *int              `json:"version"`
	Changes []json.RawMessage `json:"changes"`
}

// CloseDocument announces a document the host closed.
type CloseDocument struct {
	URI string `json:"uri"`
}

// FocusDocument reports focus moved to a document, or away from all
// documents when the uri is empty.
type FocusDocument struct {
	URI string `json:"uri"`
}

// InlineCompletion requests completions at a position. Version defaults
// to 0 and triggerKind to 2 (automatic) when absent.
type InlineCompletion struct {
	URI               string          `json:"uri"`
	Version           *int            `json:"version"`
	Position          json.RawMessage `json:"position"`
	TriggerKind       *int            `json:"triggerKind"`
	FormattingOptions json.RawMessage `json:"formattingOptions"`
}

// ExecuteCommand invokes a server-side command and wants its result.
type ExecuteCommand struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments"`
}

// AcceptedCommand is the command payload a completion item carried.
type AcceptedCommand struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments"`
}

// DidAcceptCompletion reports the user accepted a completion. The server
// is only told when the item carried a command to run.
type DidAcceptCompletion struct {
	Command *AcceptedCommand `json:"command"`
}

// DidShowCompletion reports a completion was displayed.
type DidShowCompletion struct {
	Item json.RawMessage `json:"item"`
}

// ChatMessage is one user turn on the chat lane.
type ChatMessage struct {
	Message     string `json:"message"`
	ContextFile string `json:"context_file"`
	CursorLine  *int   `json:"cursor_line"`
	Selection   string `json:"selection"`
}

// ChatModel switches the chat model. An empty model keeps the current one.
type ChatModel struct {
	Model string `json:"model"`
}
