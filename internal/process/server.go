package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the lifecycle state of the subprocess.
type State int32

const (
	// StateCreated indicates the subprocess has been created but not started.
	StateCreated State = iota
	// StateRunning indicates the subprocess is currently running.
	StateRunning
	// StateExited indicates the subprocess has exited normally or with an error.
	StateExited
	// StateKilled indicates the subprocess was killed by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Server is the spawned language server subprocess.
//
// Server wraps an exec.Cmd with lifecycle tracking, serialized stdin
// access, and exit code retrieval. It is safe for concurrent use.
type Server struct {
	// Cmd is the underlying exec.Cmd.
	Cmd *exec.Cmd

	// Stdout is the read end of the subprocess stdout pipe.
	Stdout io.ReadCloser

	// Stderr is the read end of the subprocess stderr pipe.
	Stderr io.ReadCloser

	// Started is the time the subprocess was started.
	Started time.Time

	// stdin is the write end of the subprocess stdin pipe.
	stdin io.WriteCloser

	// writeMu serializes frame writes so they cannot interleave.
	writeMu sync.Mutex

	// done is closed when the subprocess exits.
	done chan struct{}

	// state tracks the current lifecycle state.
	state atomic.Int32

	// exitCode stores the exit code after the subprocess exits.
	exitCode atomic.Int32

	// exitErr stores any error from Wait().
	exitErr error

	// mu protects exitErr.
	mu sync.RWMutex

	// waitOnce ensures Wait is only called once.
	waitOnce sync.Once

	log *logrus.Entry
}

// Spawn starts the language server binary with its stdio piped.
//
// The returned Server is already running. Its stdout carries framed
// protocol traffic and must be consumed promptly.
func Spawn(binary string, args []string, dir string, log *logrus.Logger) (*Server, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	cmd := exec.Command(binary, args...)
	cmd.Dir = dir

	srv := &Server{
		Cmd:  cmd,
		done: make(chan struct{}),
		log:  log.WithField("component", "process"),
	}
	srv.state.Store(int32(StateCreated))
	srv.exitCode.Store(-1) // -1 indicates not exited

	// Track created pipes for cleanup on error
	var opened []io.Closer
	closeAll := func() {
		for _, c := range opened {
			_ = c.Close()
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	srv.stdin = stdin
	opened = append(opened, stdin)

	// Stdout and stderr ride hand-made pipes. cmd.StdoutPipe is closed
	// by Wait the moment the process exits, which discards trailing
	// output the reader has not consumed yet; a plain pipe stays open
	// until Close and drains to EOF.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	srv.Stdout = stdoutR
	opened = append(opened, stdoutR, stdoutW)

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	cmd.Stderr = stderrW
	srv.Stderr = stderrR
	opened = append(opened, stderrR, stderrW)

	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	// The parent's copies of the write ends must close or the read side
	// never sees EOF.
	stdoutW.Close()
	stderrW.Close()

	srv.Started = time.Now()
	srv.state.Store(int32(StateRunning))
	srv.log.WithFields(logrus.Fields{
		"pid":    cmd.Process.Pid,
		"binary": binary,
	}).Info("language server started")

	go srv.waitLoop()

	return srv, nil
}

// Send writes one encoded frame to the subprocess stdin.
//
// Writes are serialized so concurrent senders cannot interleave frames.
// Returns ErrServerExited once the subprocess is gone.
func (s *Server) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.HasExited() {
		return fmt.Errorf("send %d bytes: %w", len(data), ErrServerExited)
	}

	if _, err := s.stdin.Write(data); err != nil {
		return fmt.Errorf("write stdin: %w", err)
	}
	return nil
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// ExitCode returns the subprocess exit code.
// Returns -1 if the subprocess has not exited.
func (s *Server) ExitCode() int {
	return int(s.exitCode.Load())
}

// ExitError returns any error from waiting on the subprocess.
func (s *Server) ExitError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exitErr
}

// Done returns a channel that is closed when the subprocess exits.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// IsRunning returns true if the subprocess is currently running.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// HasExited returns true if the subprocess has exited (normally or killed).
func (s *Server) HasExited() bool {
	state := s.State()
	return state == StateExited || state == StateKilled
}

// PID returns the subprocess pid, or -1 if not started.
func (s *Server) PID() int {
	if s.Cmd.Process == nil {
		return -1
	}
	return s.Cmd.Process.Pid
}

// Signal sends a signal to the subprocess.
// Returns ErrServerExited if it is no longer running.
func (s *Server) Signal(sig os.Signal) error {
	if !s.IsRunning() || s.Cmd.Process == nil {
		return ErrServerExited
	}
	return s.Cmd.Process.Signal(sig)
}

// Stop shuts the subprocess down and blocks until it has been reaped.
//
// SIGTERM goes out first; a subprocess still alive after grace gets
// SIGKILL.
func (s *Server) Stop(grace time.Duration) {
	if s.HasExited() {
		return
	}

	if err := s.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, ErrServerExited) {
		s.log.WithError(err).Debug("terminate language server")
	}

	select {
	case <-s.done:
		return
	case <-time.After(grace):
	}

	s.log.Warnf("language server ignored SIGTERM for %v, killing", grace)
	if err := s.Signal(syscall.SIGKILL); err != nil && !errors.Is(err, ErrServerExited) {
		s.log.WithError(err).Debug("kill language server")
	}
	<-s.done
}

// Close closes the stdio pipes. It does not stop the subprocess.
func (s *Server) Close() error {
	var errs []error

	if s.stdin != nil {
		if err := s.stdin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stdin: %w", err))
		}
	}

	if s.Stdout != nil {
		if err := s.Stdout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stdout: %w", err))
		}
	}

	if s.Stderr != nil {
		if err := s.Stderr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stderr: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close server I/O: %v", errs)
	}
	return nil
}

// waitLoop waits for the subprocess to exit and updates state.
func (s *Server) waitLoop() {
	s.waitOnce.Do(func() {
		err := s.Cmd.Wait()

		s.mu.Lock()
		s.exitErr = err
		s.mu.Unlock()

		exitCode := 0
		state := StateExited

		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
					state = StateKilled
				}
			} else {
				exitCode = -1
			}
		}

		s.exitCode.Store(int32(exitCode))
		s.state.Store(int32(state))
		s.log.WithFields(logrus.Fields{
			"code":  exitCode,
			"state": state.String(),
		}).Info("language server exited")
		close(s.done)
	})
}

// Sentinel errors for the process package.
var (
	// ErrServerExited is returned for operations on an exited subprocess.
	ErrServerExited = fmt.Errorf("language server exited")
)
