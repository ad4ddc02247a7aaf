package router

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/dshills/copilot-bridge/internal/ipc"
	"github.com/dshills/copilot-bridge/internal/lsp"
)

// Sender writes protocol messages to the language server.
type Sender interface {
	Send(*lsp.Message) error
}

// Emitter appends events to the host response log.
type Emitter interface {
	Emit(ipc.Event) error
}

// Identity names the editor the bridge speaks for. The server records it
// in telemetry and uses the plugin name for feature gating.
type Identity struct {
	EditorName    string
	EditorVersion string
	PluginName    string
	PluginVersion string
}

// Config wires a router's collaborators.
type Config struct {
	Registry *lsp.Registry
	Sender   Sender
	Emitter  Emitter
	Identity Identity

	// ProcessID is stamped into the initialize request; the server watches
	// this pid for liveness. Defaults to the current process.
	ProcessID int

	Log *logrus.Logger
}

// Router translates traffic in both directions. See HandleCommand for the
// host side and HandleMessage for the server side.
type Router struct {
	registry *lsp.Registry
	sender   Sender
	emitter  Emitter
	identity Identity
	pid      int

	log *logrus.Entry
}

// New creates a router from cfg. Registry, Sender and Emitter are
// required.
func New(cfg Config) *Router {
	if cfg.ProcessID == 0 {
		cfg.ProcessID = os.Getpid()
	}
	log := cfg.Log
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Router{
		registry: cfg.Registry,
		sender:   cfg.Sender,
		emitter:  cfg.Emitter,
		identity: cfg.Identity,
		pid:      cfg.ProcessID,
		log:      log.WithField("component", "router"),
	}
}

// request sends a request whose reply is owed to the host command carrying
// hostID. The registry entry is recorded before the frame is written, so a
// reply can never arrive ahead of its entry.
func (r *Router) request(hostID json.RawMessage, method string, params any) error {
	id := r.registry.NextID()
	msg, err := lsp.NewRequest(id, method, params)
	if err != nil {
		return err
	}

	r.registry.Register(id, hostID, method)
	if err := r.sender.Send(msg); err != nil {
		// The frame never left; no reply is coming for this entry.
		r.registry.Resolve(id)
		return fmt.Errorf("send %s: %w", method, err)
	}
	return nil
}

// notify sends a notification to the server.
func (r *Router) notify(method string, params any) error {
	msg, err := lsp.NewNotification(method, params)
	if err != nil {
		return err
	}
	if err := r.sender.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}
	return nil
}

// reply answers a server-initiated request, logging rather than failing:
// nothing upstream can retry a reply.
func (r *Router) reply(id *lsp.ID, result any) {
	msg, err := lsp.NewResponse(id, result)
	if err != nil {
		r.log.WithError(err).Error("build reply")
		return
	}
	if err := r.sender.Send(msg); err != nil {
		r.log.WithError(err).Error("send reply")
	}
}

// emit forwards an event to the host, logging emission failures.
func (r *Router) emit(ev ipc.Event) {
	if err := r.emitter.Emit(ev); err != nil {
		r.log.WithError(err).WithField("event", ev.EventType()).Error("emit failed")
	}
}
