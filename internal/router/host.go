package router

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dshills/copilot-bridge/internal/ipc"
	"github.com/dshills/copilot-bridge/internal/lsp"
)

// defaultFormattingOptions is sent when the host omitted its own.
var defaultFormattingOptions = json.RawMessage(`{"tabSize":4,"insertSpaces":true}`)

// HandleCommand translates one host command into server traffic. Failures
// are logged and swallowed; one bad command must not stall the lane.
func (r *Router) HandleCommand(cmd ipc.Command) {
	var err error
	switch cmd.Type {
	case ipc.CmdInitialize:
		err = r.initialize(cmd)
	case ipc.CmdConfiguration:
		err = r.configuration(cmd)
	case ipc.CmdOpenDocument:
		err = r.openDocument(cmd)
	case ipc.CmdChangeDocument:
		err = r.changeDocument(cmd)
	case ipc.CmdCloseDocument:
		err = r.closeDocument(cmd)
	case ipc.CmdFocusDocument:
		err = r.focusDocument(cmd)
	case ipc.CmdInlineCompletion:
		err = r.inlineCompletion(cmd)
	case ipc.CmdSignIn:
		err = r.request(cmd.ID, "signIn", struct{}{})
	case ipc.CmdSignOut:
		err = r.request(cmd.ID, "signOut", struct{}{})
	case ipc.CmdExecuteCommand:
		err = r.executeCommand(cmd)
	case ipc.CmdDidAcceptCompletion:
		err = r.didAcceptCompletion(cmd)
	case ipc.CmdDidShowCompletion:
		err = r.didShowCompletion(cmd)
	default:
		r.log.WithField("type", cmd.Type).Debug("unknown host command")
		return
	}

	if err != nil {
		r.log.WithError(err).WithField("type", cmd.Type).Error("host command failed")
	}
}

func (r *Router) initialize(cmd ipc.Command) error {
	var p ipc.Initialize
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode initialize: %w", err)
	}

	folders := make([]lsp.WorkspaceFolder, 0, len(p.WorkspaceFolders))
	for _, path := range p.WorkspaceFolders {
		folders = append(folders, lsp.WorkspaceFolder{URI: lsp.FilePathToURI(path)})
	}

	editor := lsp.ClientInfo{Name: r.identity.EditorName, Version: r.identity.EditorVersion}
	params := lsp.InitializeParams{
		ProcessID:        r.pid,
		ClientInfo:       editor,
		WorkspaceFolders: folders,
		Capabilities: lsp.ClientCapabilities{
			Workspace: lsp.WorkspaceCapabilities{
				WorkspaceFolders: true,
				Configuration:    true,
			},
			TextDocument: lsp.TextDocumentCapabilities{
				Synchronization: lsp.SynchronizationCapabilities{
					DynamicRegistration: true,
					DidSave:             true,
				},
				InlineCompletion: lsp.DynamicRegistrationCapability{DynamicRegistration: true},
				InlayHint:        lsp.DynamicRegistrationCapability{DynamicRegistration: true},
			},
		},
		InitializationOptions: lsp.InitializationOptions{
			EditorInfo: editor,
			EditorPluginInfo: lsp.ClientInfo{
				Name:    r.identity.PluginName,
				Version: r.identity.PluginVersion,
			},
		},
	}
	return r.request(cmd.ID, "initialize", params)
}

func (r *Router) configuration(cmd ipc.Command) error {
	var p ipc.Configuration
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode configuration: %w", err)
	}

	settings := p.Settings
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	return r.notify("workspace/didChangeConfiguration", lsp.DidChangeConfigurationParams{Settings: settings})
}

func (r *Router) openDocument(cmd ipc.Command) error {
	var p ipc.OpenDocument
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode openDocument: %w", err)
	}
	if p.URI == "" {
		return errors.New("openDocument missing uri")
	}

	langID := p.LanguageID
	if langID == "" {
		langID = "plaintext"
	}
	version := 1
	if p.Version != nil {
		version = *p.Version
	}

	return r.notify("textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{
			URI:        lsp.DocumentURI(p.URI),
			LanguageID: langID,
			Version:    version,
			Text:       p.Text,
		},
	})
}

func (r *Router) changeDocument(cmd ipc.Command) error {
	var p ipc.ChangeDocument
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode changeDocument: %w", err)
	}
	if p.URI == "" {
		return errors.New("changeDocument missing uri")
	}

	version := 1
	if p.Version != nil {
		version = *p.Version
	}
	changes := p.Changes
	if changes == nil {
		changes = []json.RawMessage{}
	}

	return r.notify("textDocument/didChange", lsp.DidChangeTextDocumentParams{
		TextDocument:   lsp.VersionedTextDocumentIdentifier{URI: lsp.DocumentURI(p.URI), Version: version},
		ContentChanges: changes,
	})
}

func (r *Router) closeDocument(cmd ipc.Command) error {
	var p ipc.CloseDocument
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode closeDocument: %w", err)
	}
	if p.URI == "" {
		return errors.New("closeDocument missing uri")
	}

	return r.notify("textDocument/didClose", lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: lsp.DocumentURI(p.URI)},
	})
}

func (r *Router) focusDocument(cmd ipc.Command) error {
	var p ipc.FocusDocument
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode focusDocument: %w", err)
	}

	// No uri means focus left every tracked document.
	if p.URI == "" {
		return r.notify("textDocument/didFocus", struct{}{})
	}
	return r.notify("textDocument/didFocus", lsp.DidFocusTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: lsp.DocumentURI(p.URI)},
	})
}

func (r *Router) inlineCompletion(cmd ipc.Command) error {
	var p ipc.InlineCompletion
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode inlineCompletion: %w", err)
	}
	if p.URI == "" {
		return errors.New("inlineCompletion missing uri")
	}
	if len(p.Position) == 0 {
		return errors.New("inlineCompletion missing position")
	}

	version := 0
	if p.Version != nil {
		version = *p.Version
	}
	trigger := 2
	if p.TriggerKind != nil {
		trigger = *p.TriggerKind
	}
	formatting := p.FormattingOptions
	if len(formatting) == 0 {
		formatting = defaultFormattingOptions
	}

	return r.request(cmd.ID, "textDocument/inlineCompletion", lsp.InlineCompletionParams{
		TextDocument:      lsp.VersionedTextDocumentIdentifier{URI: lsp.DocumentURI(p.URI), Version: version},
		Position:          p.Position,
		Context:           lsp.InlineCompletionContext{TriggerKind: trigger},
		FormattingOptions: formatting,
	})
}

func (r *Router) executeCommand(cmd ipc.Command) error {
	var p ipc.ExecuteCommand
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode executeCommand: %w", err)
	}
	if p.Command == "" {
		return errors.New("executeCommand missing command")
	}

	args := p.Arguments
	if args == nil {
		args = []json.RawMessage{}
	}
	return r.request(cmd.ID, "workspace/executeCommand", lsp.ExecuteCommandParams{
		Command:   p.Command,
		Arguments: args,
	})
}

func (r *Router) didAcceptCompletion(cmd ipc.Command) error {
	var p ipc.DidAcceptCompletion
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode didAcceptCompletion: %w", err)
	}

	// Items without a command have nothing for the server to run.
	if p.Command == nil {
		return nil
	}

	args := p.Command.Arguments
	if args == nil {
		args = []json.RawMessage{}
	}
	return r.notify("workspace/executeCommand", lsp.ExecuteCommandParams{
		Command:   p.Command.Command,
		Arguments: args,
	})
}

func (r *Router) didShowCompletion(cmd ipc.Command) error {
	var p ipc.DidShowCompletion
	if err := cmd.Decode(&p); err != nil {
		return fmt.Errorf("decode didShowCompletion: %w", err)
	}

	item := p.Item
	if len(item) == 0 {
		item = json.RawMessage(`{}`)
	}
	return r.notify("textDocument/didShowCompletion", lsp.DidShowCompletionParams{Item: item})
}
