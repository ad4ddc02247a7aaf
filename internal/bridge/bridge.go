package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dshills/copilot-bridge/internal/chat"
	"github.com/dshills/copilot-bridge/internal/config"
	"github.com/dshills/copilot-bridge/internal/ipc"
	"github.com/dshills/copilot-bridge/internal/lsp"
	"github.com/dshills/copilot-bridge/internal/process"
	"github.com/dshills/copilot-bridge/internal/router"
)

// Options configures a bridge instance.
type Options struct {
	// ServerBinary is the language server executable to spawn.
	ServerBinary string

	// ServerArgs are the arguments passed to the server binary. Nil
	// means the standard --stdio.
	ServerArgs []string

	// Workspace is the directory the server runs in.
	Workspace string

	// HandshakeFile is the path the host polls. It receives the IPC
	// directory path once the bridge is up, or an ERROR line when the
	// server cannot be spawned.
	HandshakeFile string

	// Config supplies identity, timing and chat settings. Nil means
	// defaults.
	Config *config.Config

	// HostPID is the editor process watched for liveness. Zero means
	// the parent pid.
	HostPID int

	// Log is the process logger. Nil silences all output.
	Log *logrus.Logger
}

// Bridge wires the IPC channel, the protocol router and the language
// server subprocess into one running unit.
type Bridge struct {
	opts Options
	cfg  *config.Config

	// IPC side
	ipcDir     string
	completion *ipc.Channel
	chatLane   *ipc.Channel

	// Subprocess side
	server   *process.Server
	decoder  *lsp.Decoder
	registry *lsp.Registry
	router   *router.Router

	// Optional chat lane worker
	session *chat.Session

	hostPID int

	// Lifecycle
	state       atomic.Int32
	done        chan struct{}
	stopOnce    sync.Once
	stoppedOnce sync.Once
	cleanOnce   sync.Once
	wg          sync.WaitGroup

	root *logrus.Logger
	log  *logrus.Entry
}

// Startup errors.
var (
	// ErrAlreadyRunning indicates Run was called twice.
	ErrAlreadyRunning = errors.New("bridge already running")

	// ErrNoServerBinary indicates Options without a server binary.
	ErrNoServerBinary = errors.New("server binary not specified")

	// ErrNoHandshakeFile indicates Options without a handshake file.
	ErrNoHandshakeFile = errors.New("handshake file not specified")
)

// New prepares a bridge: IPC directory, handshake file, subprocess,
// router, and the optional chat session. The subprocess is running when
// New returns; call Run to start serving traffic.
//
// A spawn failure overwrites the handshake file with an ERROR line so
// the host learns the outcome even though no IPC directory will serve.
func New(opts Options) (*Bridge, error) {
	if opts.ServerBinary == "" {
		return nil, ErrNoServerBinary
	}
	if opts.HandshakeFile == "" {
		return nil, ErrNoHandshakeFile
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	root := opts.Log
	if root == nil {
		root = logrus.New()
		root.SetOutput(io.Discard)
	}
	hostPID := opts.HostPID
	if hostPID == 0 {
		hostPID = os.Getppid()
	}

	b := &Bridge{
		opts:    opts,
		cfg:     cfg,
		hostPID: hostPID,
		done:    make(chan struct{}),
		root:    root,
		log:     root.WithField("component", "bridge"),
	}
	b.state.Store(int32(StateStarting))

	if err := b.bootstrap(); err != nil {
		return nil, err
	}
	return b, nil
}

// bootstrap initializes the bridge in dependency order.
func (b *Bridge) bootstrap() error {
	// 1. IPC directory, one per bridge pid.
	b.ipcDir = ipc.InstanceDir(b.cfg.IPCBase, os.Getpid())
	if err := os.MkdirAll(b.ipcDir, 0o755); err != nil {
		return &InitError{Component: "ipc dir", Err: err}
	}

	// 2. Handshake: the host polls this file for the IPC directory.
	if err := writeHandshake(b.opts.HandshakeFile, b.ipcDir); err != nil {
		return &InitError{Component: "handshake", Err: err}
	}

	// 3. Channels over the shared directory.
	b.completion = ipc.New(b.ipcDir, ipc.CompletionNames, b.root)
	if b.cfg.Chat.Enabled {
		b.chatLane = ipc.New(b.ipcDir, ipc.ChatNames, b.root)
	}

	// 4. Language server subprocess.
	args := b.opts.ServerArgs
	if args == nil {
		args = []string{"--stdio"}
	}
	srv, err := process.Spawn(b.opts.ServerBinary, args, b.opts.Workspace, b.root)
	if err != nil {
		if werr := writeHandshake(b.opts.HandshakeFile, "ERROR: "+err.Error()); werr != nil {
			b.log.WithError(werr).Error("report spawn failure")
		}
		return &InitError{Component: "language server", Err: err}
	}
	b.server = srv

	// 5. Protocol plumbing over the live subprocess.
	b.decoder = lsp.NewDecoder(b.root)
	b.registry = lsp.NewRegistry()
	b.router = router.New(router.Config{
		Registry: b.registry,
		Sender:   senderAdapter{server: srv},
		Emitter:  b.completion,
		Identity: router.Identity{
			EditorName:    b.cfg.Editor.Name,
			EditorVersion: b.cfg.Editor.Version,
			PluginName:    b.cfg.Editor.PluginName,
			PluginVersion: b.cfg.Editor.PluginVersion,
		},
		ProcessID: os.Getpid(),
		Log:       b.root,
	})

	// 6. Chat session on its own lane.
	if b.chatLane != nil {
		creds := chat.Credentials{
			OpenAIKey:     b.cfg.Chat.OpenAIKey,
			OpenAIBaseURL: b.cfg.Chat.OpenAIBaseURL,
			AnthropicKey:  b.cfg.Chat.AnthropicKey,
			GeminiKey:     b.cfg.Chat.GeminiKey,
		}
		b.session = chat.NewSession(b.chatLane, func(model string) chat.Provider {
			return chat.ProviderFor(model, creds)
		}, b.cfg.Chat.Model, b.root)
	}

	b.log.WithFields(logrus.Fields{
		"pid":     os.Getpid(),
		"host":    b.hostPID,
		"server":  b.server.PID(),
		"ipc_dir": b.ipcDir,
	}).Info("bridge ready")
	return nil
}

// Run starts the loops and blocks until the bridge drains. It returns
// nil on an orderly stop, whatever the trigger.
func (b *Bridge) Run() error {
	if !b.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Decode and dispatch are decoupled so a slow host append never
	// backs the pipe up into the subprocess.
	msgs := make(chan *lsp.Message, 64)

	b.wg.Add(1)
	go b.readLoop(msgs)
	b.wg.Add(1)
	go b.dispatchLoop(msgs)
	b.wg.Add(1)
	go b.drainStderr()
	b.wg.Add(1)
	go b.watchServer()
	b.wg.Add(1)
	go b.watchHost(ctx)

	// The marker drops before the watcher starts; commands appended in
	// between sit in the log until the first poll.
	if err := b.completion.WriteReady(); err != nil {
		b.log.WithError(err).Warn("write ready marker")
	}
	b.wg.Add(1)
	go b.watchCommands(ctx, b.completion, b.router.HandleCommand)
	b.emit(ipc.ReadyEvent{})

	if b.session != nil {
		if err := b.chatLane.WriteReady(); err != nil {
			b.log.WithError(err).Warn("write chat ready marker")
		}
		b.wg.Add(1)
		go b.watchCommands(ctx, b.chatLane, func(cmd ipc.Command) {
			b.session.HandleCommand(ctx, cmd)
		})
	}

	<-b.done
	b.state.Store(int32(StateDraining))
	b.log.Info("draining")
	cancel()

	b.stopServer()
	b.wg.Wait()

	// Pipes close only after the loops joined, so output the server
	// wrote just before exiting is drained rather than discarded.
	if err := b.server.Close(); err != nil {
		b.log.WithError(err).Debug("close server pipes")
	}
	b.cleanup()

	b.state.Store(int32(StateStopped))
	b.log.Info("bridge stopped")
	return nil
}

// Shutdown requests an orderly stop. Safe to call from any goroutine,
// any number of times, before or after Run.
func (b *Bridge) Shutdown() {
	b.stopOnce.Do(func() { close(b.done) })
}

// stopServer terminates the subprocess if it is still running and
// reports the stop on the response log.
func (b *Bridge) stopServer() {
	if !b.server.HasExited() {
		b.server.Stop(b.cfg.Timing.StopGrace)
	}
	b.emitServerStopped()
}

// emitServerStopped tells the host the subprocess is gone. The event
// fires exactly once no matter how many paths reach it.
func (b *Bridge) emitServerStopped() {
	b.stoppedOnce.Do(func() {
		b.emit(ipc.ServerStoppedEvent{})
	})
}

// cleanup removes the IPC directory. Runs at most once.
func (b *Bridge) cleanup() {
	b.cleanOnce.Do(func() {
		if err := ipc.Cleanup(b.ipcDir); err != nil {
			b.log.WithError(err).Warn("remove ipc dir")
		}
	})
}

func (b *Bridge) emit(ev ipc.Event) {
	if err := b.completion.Emit(ev); err != nil {
		b.log.WithError(err).Error("emit event")
	}
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// IPCDir returns the directory the host exchanges files through.
func (b *Bridge) IPCDir() string {
	return b.ipcDir
}

// writeHandshake replaces the handshake file content. The host reads
// the whole file, so the write is a single call with no newline.
func writeHandshake(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write handshake file: %w", err)
	}
	return nil
}

// InitError wraps a bootstrap failure with the component that failed.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
