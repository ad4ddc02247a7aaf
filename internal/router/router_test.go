package router

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/copilot-bridge/internal/ipc"
	"github.com/dshills/copilot-bridge/internal/lsp"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*lsp.Message
	err  error
}

func (f *fakeSender) Send(m *lsp.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) messages() []*lsp.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*lsp.Message, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []ipc.Event
}

func (f *fakeEmitter) Emit(ev ipc.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEmitter) all() []ipc.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ipc.Event, len(f.events))
	copy(out, f.events)
	return out
}

var testIdentity = Identity{
	EditorName:    "Keystorm",
	EditorVersion: "1.0.0",
	PluginName:    "GitHub Copilot for Keystorm",
	PluginVersion: "1.0.0",
}

func newTestRouter() (*Router, *lsp.Registry, *fakeSender, *fakeEmitter) {
	reg := lsp.NewRegistry()
	sender := &fakeSender{}
	emitter := &fakeEmitter{}
	r := New(Config{
		Registry:  reg,
		Sender:    sender,
		Emitter:   emitter,
		Identity:  testIdentity,
		ProcessID: 4242,
	})
	return r, reg, sender, emitter
}

// command builds an ipc.Command the way Channel.Poll would.
func command(t *testing.T, line string) ipc.Command {
	t.Helper()
	var probe struct {
		Type string          `json:"type"`
		ID   json.RawMessage `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(line), &probe))
	return ipc.Command{Type: probe.Type, ID: probe.ID, Raw: json.RawMessage(line)}
}
