package router

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/copilot-bridge/internal/ipc"
	"github.com/dshills/copilot-bridge/internal/lsp"
)

// pend registers a pending request and returns its wire id.
func pend(reg *lsp.Registry, hostID, method string) int64 {
	id := reg.NextID()
	reg.Register(id, json.RawMessage(hostID), method)
	return id
}

func response(id int64, result string) *lsp.Message {
	msg := &lsp.Message{JSONRPC: lsp.Version, ID: lsp.NumberID(id)}
	if result != "" {
		msg.Result = json.RawMessage(result)
	}
	return msg
}

func TestHandleMessage_InitializeResponse(t *testing.T) {
	r, reg, sender, emitter := newTestRouter()
	id := pend(reg, `1`, "initialize")

	r.HandleMessage(response(id, `{"capabilities":{}}`))

	// The handshake completes server-side before the host hears about it.
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, lsp.KindNotification, msgs[0].Kind())
	assert.Equal(t, "initialized", msgs[0].Method)

	events := emitter.all()
	require.Len(t, events, 1)
	ev, ok := events[0].(ipc.InitializedEvent)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, json.RawMessage(`1`), ev.ID)
	assert.Zero(t, reg.Len())
}

func TestHandleMessage_CompletionNormalization(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   []ipc.CompletionItem
	}{
		{
			name:   "null result",
			result: `null`,
			want:   []ipc.CompletionItem{},
		},
		{
			name:   "no items key",
			result: `{}`,
			want:   []ipc.CompletionItem{},
		},
		{
			name:   "list result ignored",
			result: `[{"insertText":"x"}]`,
			want:   []ipc.CompletionItem{},
		},
		{
			name:   "items normalized",
			result: `{"items":[{"insertText":"func f()","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":4}},"command":{"command":"c","title":"t"},"extra":"dropped"},{"insertText":"short"}]}`,
			want: []ipc.CompletionItem{
				{
					InsertText: "func f()",
					Range:      json.RawMessage(`{"start":{"line":0,"character":0},"end":{"line":0,"character":4}}`),
					Command:    json.RawMessage(`{"command":"c","title":"t"}`),
				},
				{InsertText: "short"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, reg, _, emitter := newTestRouter()
			id := pend(reg, `9`, "textDocument/inlineCompletion")

			r.HandleMessage(response(id, tt.result))

			events := emitter.all()
			require.Len(t, events, 1)
			ev, ok := events[0].(ipc.CompletionResultEvent)
			require.True(t, ok, "got %T", events[0])
			assert.Equal(t, json.RawMessage(`9`), ev.ID)
			require.NotNil(t, ev.Items, "items must serialize as [], never null")
			assert.Equal(t, tt.want, ev.Items)
		})
	}
}

func TestHandleMessage_SignInResult(t *testing.T) {
	tests := []struct {
		name        string
		result      string
		wantCode    string
		wantCommand json.RawMessage
	}{
		{
			name:        "no result means no device flow",
			result:      `null`,
			wantCommand: nil,
		},
		{
			name:        "device flow without command keeps a null command key",
			result:      `{"userCode":"AB12-CD34","verificationUri":"https://github.com/login/device"}`,
			wantCode:    "AB12-CD34",
			wantCommand: json.RawMessage(`null`),
		},
		{
			name:        "command relayed raw",
			result:      `{"userCode":"X","verificationUri":"u","command":{"command":"signInConfirm"}}`,
			wantCode:    "X",
			wantCommand: json.RawMessage(`{"command":"signInConfirm"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, reg, _, emitter := newTestRouter()
			id := pend(reg, `3`, "signIn")

			r.HandleMessage(response(id, tt.result))

			events := emitter.all()
			require.Len(t, events, 1)
			ev, ok := events[0].(ipc.SignInResultEvent)
			require.True(t, ok, "got %T", events[0])
			assert.Equal(t, tt.wantCode, ev.UserCode)
			assert.Equal(t, tt.wantCommand, ev.Command)
		})
	}
}

func TestHandleMessage_SignOutAndExecuteCommand(t *testing.T) {
	r, reg, _, emitter := newTestRouter()

	outID := pend(reg, `4`, "signOut")
	execID := pend(reg, `5`, "workspace/executeCommand")

	r.HandleMessage(response(outID, `null`))
	r.HandleMessage(response(execID, `{"status":"ok"}`))

	events := emitter.all()
	require.Len(t, events, 2)

	_, ok := events[0].(ipc.SignOutResultEvent)
	require.True(t, ok, "got %T", events[0])

	exec, ok := events[1].(ipc.CommandResultEvent)
	require.True(t, ok, "got %T", events[1])
	assert.Equal(t, json.RawMessage(`{"status":"ok"}`), exec.Result)
}

func TestHandleMessage_GenericResponse(t *testing.T) {
	r, reg, _, emitter := newTestRouter()
	id := pend(reg, `6`, "copilot/panelCompletion")

	r.HandleMessage(response(id, `{"panels":[]}`))

	events := emitter.all()
	require.Len(t, events, 1)
	ev, ok := events[0].(ipc.LSPResponseEvent)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, "copilot/panelCompletion", ev.Method)
	assert.Equal(t, json.RawMessage(`{"panels":[]}`), ev.Result)
}

func TestHandleMessage_ErrorResponse(t *testing.T) {
	r, reg, _, emitter := newTestRouter()
	id := pend(reg, `7`, "signIn")

	r.HandleMessage(&lsp.Message{
		JSONRPC: lsp.Version,
		ID:      lsp.NumberID(id),
		Error:   &lsp.ResponseError{Code: 1000, Message: "not signed in"},
	})

	events := emitter.all()
	require.Len(t, events, 1)
	ev, ok := events[0].(ipc.ErrorEvent)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, json.RawMessage(`7`), ev.ID)
	assert.Contains(t, string(ev.Error), `"code":1000`)
	assert.Contains(t, string(ev.Error), "not signed in")
	assert.Zero(t, reg.Len())
}

func TestHandleMessage_UnknownID(t *testing.T) {
	r, _, sender, emitter := newTestRouter()

	r.HandleMessage(response(999, `{"ok":true}`))

	assert.Empty(t, sender.messages(), "unknown replies answer nothing")
	assert.Empty(t, emitter.all())
}

func TestHandleMessage_ResolveExactlyOnce(t *testing.T) {
	r, reg, _, emitter := newTestRouter()
	id := pend(reg, `8`, "signOut")

	msg := response(id, `null`)
	r.HandleMessage(msg)
	r.HandleMessage(msg)

	assert.Len(t, emitter.all(), 1, "a duplicate reply must be discarded")
}

func TestHandleMessage_Notifications(t *testing.T) {
	tests := []struct {
		name   string
		method string
		params string
		want   ipc.Event
	}{
		{
			name:   "progress dropped",
			method: "$/progress",
			params: `{"token":"t","value":{}}`,
			want:   nil,
		},
		{
			name:   "logTrace dropped",
			method: "$/logTrace",
			params: `{"message":"trace"}`,
			want:   nil,
		},
		{
			name:   "logMessage logged only",
			method: "window/logMessage",
			params: `{"type":4,"message":"debug detail"}`,
			want:   nil,
		},
		{
			name:   "showMessage with explicit type",
			method: "window/showMessage",
			params: `{"type":1,"message":"boom"}`,
			want:   ipc.ShowMessageEvent{Message: "boom", MsgType: 1},
		},
		{
			name:   "showMessage type defaults to info",
			method: "window/showMessage",
			params: `{"message":"hello"}`,
			want:   ipc.ShowMessageEvent{Message: "hello", MsgType: 3},
		},
		{
			name:   "status kind defaults to Normal",
			method: "didChangeStatus",
			params: `{"message":"Ready"}`,
			want:   ipc.StatusChangedEvent{Message: "Ready", Kind: "Normal"},
		},
		{
			name:   "copilot status alias",
			method: "copilot/didChangeStatus",
			params: `{"message":"Not signed in","kind":"Error"}`,
			want:   ipc.StatusChangedEvent{Message: "Not signed in", Kind: "Error"},
		},
		{
			name:   "statusNotification alias",
			method: "statusNotification",
			params: `{"message":"ok","kind":"Normal"}`,
			want:   ipc.StatusChangedEvent{Message: "ok", Kind: "Normal"},
		},
		{
			name:   "unknown notification ignored",
			method: "telemetry/event",
			params: `{"anything":1}`,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, sender, emitter := newTestRouter()

			r.HandleMessage(&lsp.Message{
				JSONRPC: lsp.Version,
				Method:  tt.method,
				Params:  json.RawMessage(tt.params),
			})

			assert.Empty(t, sender.messages(), "notifications are never answered")

			events := emitter.all()
			if tt.want == nil {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, tt.want, events[0])
		})
	}
}

func TestHandleMessage_ShowMessageRequest(t *testing.T) {
	r, _, sender, emitter := newTestRouter()

	r.HandleMessage(&lsp.Message{
		JSONRPC: lsp.Version,
		ID:      lsp.NumberID(31),
		Method:  "window/showMessageRequest",
		Params:  json.RawMessage(`{"message":"Sign in?","actions":[{"title":"Yes"},{"title":"No"}]}`),
	})

	events := emitter.all()
	require.Len(t, events, 1)
	ev, ok := events[0].(ipc.ShowMessageRequestEvent)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, "31", ev.ID, "server id is stringified for the host")
	assert.Equal(t, "Sign in?", ev.Message)
	assert.Equal(t, int64(3), ev.MsgType)
	assert.Equal(t, json.RawMessage(`[{"title":"Yes"},{"title":"No"}]`), ev.Actions)

	// The server is unblocked immediately with a null answer.
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	reply := msgs[0]
	gotID, _ := reply.ID.Number()
	assert.Equal(t, int64(31), gotID)
	assert.Equal(t, "null", string(reply.Result))
	assert.Nil(t, reply.Error)
}

func TestHandleMessage_ShowDocument(t *testing.T) {
	r, _, sender, emitter := newTestRouter()

	r.HandleMessage(&lsp.Message{
		JSONRPC: lsp.Version,
		ID:      lsp.NumberID(32),
		Method:  "window/showDocument",
		Params:  json.RawMessage(`{"uri":"https://github.com/login/device","external":true}`),
	})

	events := emitter.all()
	require.Len(t, events, 1)
	ev, ok := events[0].(ipc.ShowDocumentEvent)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, "https://github.com/login/device", ev.URI)
	assert.Empty(t, ev.Path, "non-file URIs carry no local path")

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"success":true}`, string(msgs[0].Result))
}

func TestHandleMessage_ShowDocumentFileURI(t *testing.T) {
	r, _, sender, emitter := newTestRouter()

	r.HandleMessage(&lsp.Message{
		JSONRPC: lsp.Version,
		ID:      lsp.NumberID(33),
		Method:  "window/showDocument",
		Params:  json.RawMessage(`{"uri":"file:///home/user/project/main.go","takeFocus":true}`),
	})

	events := emitter.all()
	require.Len(t, events, 1)
	ev, ok := events[0].(ipc.ShowDocumentEvent)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, "file:///home/user/project/main.go", ev.URI)
	assert.Equal(t, "/home/user/project/main.go", ev.Path)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"success":true}`, string(msgs[0].Result))
}

func TestHandleMessage_WorkspaceConfiguration(t *testing.T) {
	r, _, sender, emitter := newTestRouter()

	r.HandleMessage(&lsp.Message{
		JSONRPC: lsp.Version,
		ID:      lsp.NumberID(33),
		Method:  "workspace/configuration",
		Params:  json.RawMessage(`{"items":[{"section":"a"},{"section":"b"},{"section":"c"}]}`),
	})

	// Answered quietly: one null per requested section, no host event.
	assert.Empty(t, emitter.all())

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "[null,null,null]", string(msgs[0].Result))

	r.HandleMessage(&lsp.Message{
		JSONRPC: lsp.Version,
		ID:      lsp.NumberID(34),
		Method:  "workspace/configuration",
		Params:  json.RawMessage(`{}`),
	})
	msgs = sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "[]", string(msgs[1].Result))
}

func TestHandleMessage_UnknownServerRequest(t *testing.T) {
	r, _, sender, emitter := newTestRouter()

	r.HandleMessage(&lsp.Message{
		JSONRPC: lsp.Version,
		ID:      lsp.StringID("srv-55"),
		Method:  "client/registerCapability",
		Params:  json.RawMessage(`{}`),
	})

	assert.Empty(t, emitter.all())

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	reply := msgs[0]
	require.NotNil(t, reply.Error)
	assert.Equal(t, lsp.CodeMethodNotFound, reply.Error.Code)
	assert.Equal(t, "Method not found", reply.Error.Message)
	assert.Equal(t, "srv-55", reply.ID.String(), "string ids echo back in kind")
}

func TestHandleMessage_InvalidShape(t *testing.T) {
	r, _, sender, emitter := newTestRouter()

	r.HandleMessage(&lsp.Message{JSONRPC: lsp.Version})

	assert.Empty(t, sender.messages())
	assert.Empty(t, emitter.all())
}
