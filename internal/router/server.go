package router

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/dshills/copilot-bridge/internal/ipc"
	"github.com/dshills/copilot-bridge/internal/lsp"
)

// HandleMessage routes one decoded server message. Responses resolve
// through the registry, notifications are filtered and forwarded, and
// server-initiated requests are answered on the spot.
func (r *Router) HandleMessage(msg *lsp.Message) {
	switch msg.Kind() {
	case lsp.KindResponse:
		r.handleResponse(msg)
	case lsp.KindNotification:
		r.handleNotification(msg)
	case lsp.KindRequest:
		r.handleServerRequest(msg)
	default:
		r.log.Debug("discarding message with neither method nor id")
	}
}

func (r *Router) handleResponse(msg *lsp.Message) {
	id, ok := msg.ID.Number()
	if !ok {
		r.log.WithField("id", msg.ID.String()).Debug("response with non-numeric id")
		return
	}

	pending, ok := r.registry.Resolve(id)
	if !ok {
		// Stale or duplicate reply. Late is fine, twice is not; either way
		// there is nowhere left to route it.
		r.log.WithField("id", id).Debug("response for unknown id")
		return
	}

	if msg.Error != nil {
		r.log.WithField("method", pending.Method).Warnf("server error: %v", msg.Error)
		raw, err := json.Marshal(msg.Error)
		if err != nil {
			raw = json.RawMessage(`{"code":-32603,"message":"unrepresentable error"}`)
		}
		r.emit(ipc.ErrorEvent{ID: pending.HostID, Error: raw})
		return
	}

	r.dispatchResponse(pending, msg.Result)
}

// dispatchResponse reshapes a successful reply by the method it answers.
func (r *Router) dispatchResponse(p lsp.Pending, result json.RawMessage) {
	switch p.Method {
	case "initialize":
		// Completing the handshake is the bridge's job, not the host's.
		if err := r.notify("initialized", struct{}{}); err != nil {
			r.log.WithError(err).Error("send initialized")
		}
		r.emit(ipc.InitializedEvent{ID: p.HostID})

	case "textDocument/inlineCompletion":
		r.emit(ipc.CompletionResultEvent{ID: p.HostID, Items: normalizeCompletionItems(result)})

	case "signIn":
		r.emit(signInResult(p.HostID, result))

	case "signOut":
		r.emit(ipc.SignOutResultEvent{ID: p.HostID})

	case "workspace/executeCommand":
		r.emit(ipc.CommandResultEvent{ID: p.HostID, Result: result})

	default:
		r.emit(ipc.LSPResponseEvent{ID: p.HostID, Method: p.Method, Result: result})
	}
}

// normalizeCompletionItems flattens the server's completion result into
// host items. A null result, a shapeless one, or one without items all
// yield an empty, non-nil list.
func normalizeCompletionItems(result json.RawMessage) []ipc.CompletionItem {
	items := make([]ipc.CompletionItem, 0)
	for _, it := range gjson.GetBytes(result, "items").Array() {
		norm := ipc.CompletionItem{InsertText: it.Get("insertText").String()}
		if rng := it.Get("range"); rng.Exists() {
			norm.Range = json.RawMessage(rng.Raw)
		}
		if cmd := it.Get("command"); cmd.Exists() {
			norm.Command = json.RawMessage(cmd.Raw)
		}
		items = append(items, norm)
	}
	return items
}

// signInResult preserves the sign-in quirk: an empty result keeps the
// command key out entirely, a populated one carries it even when null.
func signInResult(hostID, result json.RawMessage) ipc.SignInResultEvent {
	ev := ipc.SignInResultEvent{ID: hostID}

	res := gjson.ParseBytes(result)
	if !res.IsObject() || len(res.Map()) == 0 {
		return ev
	}

	ev.UserCode = res.Get("userCode").String()
	ev.VerificationURI = res.Get("verificationUri").String()
	if cmd := res.Get("command"); cmd.Exists() {
		ev.Command = json.RawMessage(cmd.Raw)
	} else {
		ev.Command = json.RawMessage("null")
	}
	return ev
}

func (r *Router) handleNotification(msg *lsp.Message) {
	params := gjson.ParseBytes(msg.Params)

	switch msg.Method {
	case "$/logTrace", "$/progress":
		// Verbose stream noise.

	case "window/logMessage":
		r.log.Debugf("server logMessage [%d]: %s", messageType(params), params.Get("message").String())

	case "window/showMessage":
		r.emit(ipc.ShowMessageEvent{
			Message: params.Get("message").String(),
			MsgType: messageType(params),
		})

	case "copilot/didChangeStatus", "didChangeStatus", "statusNotification":
		kind := "Normal"
		if k := params.Get("kind"); k.Exists() {
			kind = k.String()
		}
		r.emit(ipc.StatusChangedEvent{
			Message: params.Get("message").String(),
			Kind:    kind,
		})

	default:
		r.log.WithField("method", msg.Method).Debug("unhandled server notification")
	}
}

// handleServerRequest answers requests the server initiates. Every branch
// sends exactly one reply; a blocked server would stall the whole session.
func (r *Router) handleServerRequest(msg *lsp.Message) {
	params := gjson.ParseBytes(msg.Params)

	switch msg.Method {
	case "window/showMessageRequest":
		r.log.Infof("server showMessageRequest: %s", params.Get("message").String())
		actions := json.RawMessage(`[]`)
		if a := params.Get("actions"); a.Exists() {
			actions = json.RawMessage(a.Raw)
		}
		r.emit(ipc.ShowMessageRequestEvent{
			ID:      msg.ID.String(),
			Message: params.Get("message").String(),
			MsgType: messageType(params),
			Actions: actions,
		})
		// The host cannot answer through a one-way event; reply null so
		// the server moves on.
		r.reply(msg.ID, nil)

	case "window/showDocument":
		uri := params.Get("uri").String()
		ev := ipc.ShowDocumentEvent{URI: uri}
		if p := lsp.URIToFilePath(lsp.DocumentURI(uri)); p != uri {
			ev.Path = p
		}
		r.emit(ev)
		r.reply(msg.ID, map[string]bool{"success": true})

	case "workspace/configuration":
		// The host is never consulted; every requested section reads null.
		nulls := make([]json.RawMessage, len(params.Get("items").Array()))
		for i := range nulls {
			nulls[i] = json.RawMessage("null")
		}
		r.reply(msg.ID, nulls)

	default:
		r.log.WithFields(logrus.Fields{
			"method": msg.Method,
			"id":     msg.ID.String(),
		}).Debug("unhandled server request")
		if err := r.sender.Send(lsp.NewErrorResponse(msg.ID, lsp.CodeMethodNotFound, "Method not found")); err != nil {
			r.log.WithError(err).Error("send error reply")
		}
	}
}

// messageType reads an LSP MessageType parameter, defaulting to Info.
func messageType(params gjson.Result) int64 {
	if t := params.Get("type"); t.Exists() {
		return t.Int()
	}
	return 3
}
