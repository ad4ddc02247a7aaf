package lsp

import (
	"encoding/json"
	"net/url"
	"path/filepath"
	"runtime"
)

// Parameter types for the requests and notifications the bridge sends to
// the server. Incoming payloads are probed dynamically by the router, so
// only the outbound shapes are modeled here.

// DocumentURI identifies a text document.
type DocumentURI string

// ClientInfo names an editor or plugin component.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// WorkspaceFolder is one root the server should index.
type WorkspaceFolder struct {
	URI DocumentURI `json:"uri"`
}

// SynchronizationCapabilities advertises document sync support.
type SynchronizationCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
	DidSave             bool `json:"didSave"`
}

// DynamicRegistrationCapability advertises dynamic registration for a
// single feature.
type DynamicRegistrationCapability struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
}

// WorkspaceCapabilities is the workspace half of the capability block.
type WorkspaceCapabilities struct {
	WorkspaceFolders bool `json:"workspaceFolders"`
	Configuration    bool `json:"configuration"`
}

// TextDocumentCapabilities is the document half of the capability block.
type TextDocumentCapabilities struct {
	Synchronization  SynchronizationCapabilities   `json:"synchronization"`
	InlineCompletion DynamicRegistrationCapability `json:"inlineCompletion"`
	InlayHint        DynamicRegistrationCapability `json:"inlayHint"`
}

// ClientCapabilities is the fixed capability set the bridge advertises.
type ClientCapabilities struct {
	Workspace    WorkspaceCapabilities    `json:"workspace"`
	TextDocument TextDocumentCapabilities `json:"textDocument"`
}

// InitializationOptions carries the editor identity the Copilot server
// records for telemetry and feature gating.
type InitializationOptions struct {
	EditorInfo       ClientInfo `json:"editorInfo"`
	EditorPluginInfo ClientInfo `json:"editorPluginInfo"`
}

// InitializeParams is the payload of the initialize request.
type InitializeParams struct {
	// ProcessID is the bridge's own pid: the server watches the bridge,
	// not the editor that spawned it.
	ProcessID             int                   `json:"processId"`
	ClientInfo            ClientInfo            `json:"clientInfo"`
	WorkspaceFolders      []WorkspaceFolder     `json:"workspaceFolders"`
	Capabilities          ClientCapabilities    `json:"capabilities"`
	InitializationOptions InitializationOptions `json:"initializationOptions"`
}

// TextDocumentItem describes a document being opened.
type TextDocumentItem struct {
	URI        DocumentURI `json:"uri"`
	LanguageID string      `json:"languageId"`
	Version    int         `json:"version"`
	Text       string      `json:"text"`
}

// TextDocumentIdentifier names a document.
type TextDocumentIdentifier struct {
	URI DocumentURI `json:"uri"`
}

// VersionedTextDocumentIdentifier names a document at a version.
type VersionedTextDocumentIdentifier struct {
	URI     DocumentURI `json:"uri"`
	Version int         `json:"version"`
}

// DidOpenTextDocumentParams is the textDocument/didOpen payload.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidChangeTextDocumentParams is the textDocument/didChange payload.
// Content changes are relayed verbatim in whatever form the host sent,
// full-text or incremental.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []json.RawMessage               `json:"contentChanges"`
}

// DidCloseTextDocumentParams is the textDocument/didClose payload.
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// DidFocusTextDocumentParams is the textDocument/didFocus payload.
type DidFocusTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// DidChangeConfigurationParams is the workspace/didChangeConfiguration
// payload; settings pass through opaquely.
type DidChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}

// InlineCompletionContext tells the server what prompted the request.
// Trigger kind 1 is an explicit invocation, 2 is automatic.
type InlineCompletionContext struct {
	TriggerKind int `json:"triggerKind"`
}

// InlineCompletionParams is the textDocument/inlineCompletion payload.
// Position and formatting options are relayed as the host sent them.
type InlineCompletionParams struct {
	TextDocument      VersionedTextDocumentIdentifier `json:"textDocument"`
	Position          json.RawMessage                 `json:"position"`
	Context           InlineCompletionContext         `json:"context"`
	FormattingOptions json.RawMessage                 `json:"formattingOptions"`
}

// InlineCompletionItem is one completion, normalized for the host. Range
// and command stay raw; they are null when the server omitted them.
type InlineCompletionItem struct {
	InsertText string          `json:"insertText"`
	Range      json.RawMessage `json:"range"`
	Command    json.RawMessage `json:"command"`
}

// ExecuteCommandParams is the workspace/executeCommand payload.
type ExecuteCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments"`
}

// DidShowCompletionParams reports a completion was displayed.
type DidShowCompletionParams struct {
	Item json.RawMessage `json:"item"`
}

// FilePathToURI converts a file path to a DocumentURI.
func FilePathToURI(path string) DocumentURI {
	if path == "" {
		return ""
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	path = filepath.ToSlash(path)

	// On Windows, add extra slash for drive letter
	if runtime.GOOS == "windows" && len(path) >= 2 && path[1] == ':' {
		path = "/" + path
	}

	u := &url.URL{
		Scheme: "file",
		Path:   path,
	}

	return DocumentURI(u.String())
}

// URIToFilePath converts a DocumentURI to a file path. Non-file URIs are
// returned unchanged.
func URIToFilePath(uri DocumentURI) string {
	if uri == "" {
		return ""
	}

	u, err := url.Parse(string(uri))
	if err != nil {
		return string(uri)
	}

	if u.Scheme != "file" {
		return string(uri)
	}

	path := u.Path

	// On Windows, remove leading slash before drive letter
	if runtime.GOOS == "windows" && len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path)
}
