package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// headerSep terminates the header block of a frame.
const headerSep = "\r\n\r\n"

// EncodeMessage renders msg as a base-protocol frame: a Content-Length
// header, a blank line, then the JSON body. The length counts body bytes
// exactly.
func EncodeMessage(msg *Message) ([]byte, error) {
	m := *msg
	if m.JSONRPC == "" {
		m.JSONRPC = Version
	}

	body, err := json.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	buf := make([]byte, 0, len(body)+32)
	buf = append(buf, fmt.Sprintf("Content-Length: %d%s", len(body), headerSep)...)
	buf = append(buf, body...)
	return buf, nil
}

// Decoder reassembles base-protocol frames from a chunked byte stream.
// Chunk boundaries carry no meaning: feed whatever the pipe produced and
// collect whole messages as they complete. Not safe for concurrent use;
// the read loop is the only caller.
type Decoder struct {
	buf []byte
	log *logrus.Entry
}

// NewDecoder returns a decoder with an empty buffer. A nil logger
// silences drop diagnostics.
func NewDecoder(log *logrus.Logger) *Decoder {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Decoder{log: log.WithField("component", "codec")}
}

// Feed appends chunk to the internal buffer and returns every message that
// completed. Partial frames stay buffered for the next call. Corrupt
// header blocks and unparseable bodies are dropped with a log line; the
// stream keeps decoding after either.
func (d *Decoder) Feed(chunk []byte) []*Message {
	d.buf = append(d.buf, chunk...)

	var msgs []*Message
	for {
		sep := bytes.Index(d.buf, []byte(headerSep))
		if sep < 0 {
			break
		}

		length, ok := parseContentLength(d.buf[:sep])
		if !ok {
			// Header block with no usable Content-Length. Skip past it and
			// rescan so one corrupt block cannot stall the stream.
			d.log.Warn("no Content-Length in header, discarding block")
			d.buf = d.buf[sep+len(headerSep):]
			continue
		}

		bodyStart := sep + len(headerSep)
		if len(d.buf) < bodyStart+length {
			break // body not fully arrived
		}

		body := d.buf[bodyStart : bodyStart+length]
		msg := new(Message)
		if err := json.Unmarshal(body, msg); err != nil {
			d.log.WithError(err).Warn("dropping frame with malformed body")
			msg = nil
		}

		// The frame is consumed whether or not the body parsed.
		d.buf = d.buf[bodyStart+length:]
		if msg != nil {
			msgs = append(msgs, msg)
		}
	}

	if len(d.buf) == 0 {
		d.buf = nil
	}
	return msgs
}

// Buffered reports how many bytes await completion of their frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// parseContentLength extracts the Content-Length value from a header
// block. The header name matches case-insensitively; other headers such
// as Content-Type are ignored.
func parseContentLength(header []byte) (int, bool) {
	for _, line := range strings.Split(string(header), "\r\n") {
		if !strings.HasPrefix(strings.ToLower(line), "content-length:") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
