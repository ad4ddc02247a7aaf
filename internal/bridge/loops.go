package bridge

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/dshills/copilot-bridge/internal/ipc"
	"github.com/dshills/copilot-bridge/internal/lsp"
	"github.com/dshills/copilot-bridge/internal/process"
)

// readLoop pulls chunks off the subprocess stdout and feeds them to the
// decoder. It owns the msgs channel and closes it on the way out, which
// is how dispatchLoop learns the stream ended.
func (b *Bridge) readLoop(msgs chan<- *lsp.Message) {
	defer b.wg.Done()
	defer close(msgs)

	buf := make([]byte, 4096)
	for {
		n, err := b.server.Stdout.Read(buf)
		if n > 0 {
			for _, msg := range b.decoder.Feed(buf[:n]) {
				msgs <- msg
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				b.log.Info("server stdout closed")
			} else {
				b.log.WithError(err).Warn("server stdout read")
			}
			return
		}
	}
}

// dispatchLoop hands decoded messages to the router one at a time.
func (b *Bridge) dispatchLoop(msgs <-chan *lsp.Message) {
	defer b.wg.Done()
	for msg := range msgs {
		b.router.HandleMessage(msg)
	}
}

// drainStderr keeps the subprocess stderr pipe from filling up and
// surfaces whatever the server prints there. A plain reader, not a
// scanner: one oversized line must not end the drain while the
// subprocess is still writing.
func (b *Bridge) drainStderr() {
	defer b.wg.Done()

	log := b.root.WithField("component", "server-stderr")
	r := bufio.NewReader(b.server.Stderr)
	for {
		line, err := r.ReadString('\n')
		if trimmed := strings.TrimRight(line, "\n"); trimmed != "" {
			log.Debug(trimmed)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				b.log.WithError(err).Debug("server stderr read")
			}
			return
		}
	}
}

// watchServer waits for the subprocess to exit, tells the host, and
// begins shutdown. During a deliberate stop the exit is ours; the
// once-guard on the event keeps the host from seeing it twice.
func (b *Bridge) watchServer() {
	defer b.wg.Done()

	<-b.server.Done()
	b.log.WithFields(logrus.Fields{
		"state": b.server.State().String(),
		"code":  b.server.ExitCode(),
	}).Info("language server exited")
	b.emitServerStopped()
	b.Shutdown()
}

// watchHost probes the host editor on a fixed interval and begins
// shutdown when it is gone. The bridge must never outlive its host.
func (b *Bridge) watchHost(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.Timing.HostCheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !process.Alive(b.hostPID) {
				b.log.WithField("pid", b.hostPID).Info("host exited, shutting down")
				b.Shutdown()
				return
			}
		}
	}
}

// watchCommands polls one command log and hands each parsed command to
// handle. A fsnotify watcher on the IPC directory wakes the poll early;
// the ticker alone carries the loop when the watcher is unavailable.
func (b *Bridge) watchCommands(ctx context.Context, ch *ipc.Channel, handle func(ipc.Command)) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.Timing.CommandPoll)
	defer ticker.Stop()

	var wake <-chan fsnotify.Event
	var werrs <-chan error
	if w, err := fsnotify.NewWatcher(); err != nil {
		b.log.WithError(err).Warn("fsnotify unavailable, polling only")
	} else if err := w.Add(ch.Dir()); err != nil {
		b.log.WithError(err).Warn("watch ipc dir failed, polling only")
		w.Close()
	} else {
		defer w.Close()
		wake = w.Events
		werrs = w.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:

		case ev, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			// The directory watch sees every lane's files; only this
			// channel's command log warrants an early poll.
			if ev.Name != ch.CommandPath() {
				continue
			}

		case err, ok := <-werrs:
			if !ok {
				werrs = nil
			} else {
				b.log.WithError(err).Debug("fsnotify error")
			}
			continue
		}

		cmds, err := ch.Poll()
		if err != nil {
			b.log.WithError(err).Warn("poll command log")
			continue
		}
		for _, cmd := range cmds {
			handle(cmd)
		}
	}
}
