package ipc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"
)

// Names picks the file names of one lane inside the IPC directory.
type Names struct {
	Cmd   string
	Resp  string
	Ready string
}

// The two lanes a bridge instance serves.
var (
	// CompletionNames is the primary lane the completion protocol runs on.
	CompletionNames = Names{Cmd: "cmd", Resp: "resp", Ready: "ready"}

	// ChatNames is the sibling lane the chat worker runs on.
	ChatNames = Names{Cmd: "chat_cmd", Resp: "chat_resp", Ready: "chat_ready"}
)

// Channel is one lane: a command log the host appends to, a response log
// the bridge appends to, and a readiness marker.
//
// Poll and Reset belong to the lane's single consumer goroutine. Emit is
// safe from any goroutine.
type Channel struct {
	dir       string
	cmdPath   string
	respPath  string
	readyPath string

	// offset is how much of the command log has been consumed. Only the
	// consumer goroutine touches it.
	offset int64

	writeMu sync.Mutex

	log *logrus.Entry
}

// New creates a channel over dir with the given lane names. The directory
// must already exist. A nil logger silences diagnostics.
func New(dir string, names Names, log *logrus.Logger) *Channel {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Channel{
		dir:       dir,
		cmdPath:   filepath.Join(dir, names.Cmd),
		respPath:  filepath.Join(dir, names.Resp),
		readyPath: filepath.Join(dir, names.Ready),
		log:       log.WithFields(logrus.Fields{"component": "ipc", "lane": names.Cmd}),
	}
}

// Dir returns the IPC directory the channel lives in.
func (c *Channel) Dir() string { return c.dir }

// CommandPath returns the command log path, for wiring a file watcher.
func (c *Channel) CommandPath() string { return c.cmdPath }

// WriteReady drops the readiness marker. Hosts wait for the marker before
// sending commands, so it must be written before the lane starts serving.
func (c *Channel) WriteReady() error {
	if err := os.WriteFile(c.readyPath, []byte("ready\n"), 0o644); err != nil {
		return fmt.Errorf("write ready marker: %w", err)
	}
	return nil
}

// Poll reads any command log growth past the consumed offset and returns
// the commands found there. A missing log is an empty poll. When the host
// truncated the log below the offset, the offset rewinds to zero; content
// that was consumed before the truncation is never re-delivered.
// Malformed lines are logged and skipped.
func (c *Channel) Poll() ([]Command, error) {
	info, err := os.Stat(c.cmdPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat command log: %w", err)
	}

	if size := info.Size(); size < c.offset {
		c.log.WithField("offset", c.offset).Debug("command log truncated, rewinding")
		c.offset = 0
	} else if size == c.offset {
		return nil, nil
	}

	f, err := os.Open(c.cmdPath)
	if err != nil {
		return nil, fmt.Errorf("open command log: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(c.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek command log: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read command log: %w", err)
	}
	c.offset += int64(len(data))

	return c.parseLines(data), nil
}

// parseLines splits raw log growth into commands, dropping bad lines.
func (c *Channel) parseLines(data []byte) []Command {
	var cmds []Command
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var probe struct {
			Type string          `json:"type"`
			ID   json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			c.log.WithError(err).WithField("line", snippet(line)).Error("bad command line")
			continue
		}
		cmds = append(cmds, Command{Type: probe.Type, ID: probe.ID, Raw: line})
	}
	return cmds
}

// Emit appends one event line to the response log. The log is opened for
// append and closed per write; the lock makes each line land whole even
// with concurrent emitters.
func (c *Channel) Emit(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.EventType(), err)
	}
	line, err := sjson.SetBytes(data, "type", ev.EventType())
	if err != nil {
		return fmt.Errorf("stamp %s event: %w", ev.EventType(), err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	f, err := os.OpenFile(c.respPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open response log: %w", err)
	}
	_, werr := f.Write(append(line, '\n'))
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("append event: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("close response log: %w", cerr)
	}
	return nil
}

// Reset truncates both logs and rewinds the consumed offset. Anything
// unconsumed in the command log is dropped with it.
func (c *Channel) Reset() error {
	if err := os.WriteFile(c.cmdPath, nil, 0o644); err != nil {
		return fmt.Errorf("truncate command log: %w", err)
	}

	c.writeMu.Lock()
	err := os.WriteFile(c.respPath, nil, 0o644)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("truncate response log: %w", err)
	}

	c.offset = 0
	return nil
}

// InstanceDir returns the channel directory for one bridge process:
// <base>/<pid>. An empty base defaults to the user cache location,
// honoring XDG_CACHE_HOME.
func InstanceDir(base string, pid int) string {
	if base == "" {
		cache := os.Getenv("XDG_CACHE_HOME")
		if cache == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				home = "."
			}
			cache = filepath.Join(home, ".cache")
		}
		base = filepath.Join(cache, "copilot-bridge", "ipc")
	}
	return filepath.Join(base, strconv.Itoa(pid))
}

// Cleanup removes the channel directory and everything in it.
func Cleanup(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove ipc dir: %w", err)
	}
	return nil
}

// snippet truncates a log line for diagnostics.
func snippet(b []byte) string {
	const max = 80
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
