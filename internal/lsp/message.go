package lsp

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Version is the JSON-RPC protocol version stamped on every message.
const Version = "2.0"

// Kind classifies a decoded message by which envelope fields it carries.
type Kind int

const (
	// KindInvalid marks a message that fits no protocol shape.
	KindInvalid Kind = iota
	// KindRequest is a server-initiated request: method and id both set.
	KindRequest
	// KindResponse answers one of our requests: id set, no method.
	KindResponse
	// KindNotification is fire-and-forget: method set, no id.
	KindNotification
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	default:
		return "invalid"
	}
}

// Message is the JSON-RPC 2.0 envelope. One struct covers requests,
// responses and notifications; Kind reports which shape a message has.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// Kind reports the message's protocol shape. Exactly one shape holds for
// any valid message.
func (m *Message) Kind() Kind {
	switch {
	case m.Method != "" && m.ID != nil:
		return KindRequest
	case m.Method != "":
		return KindNotification
	case m.ID != nil:
		return KindResponse
	default:
		return KindInvalid
	}
}

// NewRequest builds a request carrying a bridge-minted numeric id.
func NewRequest(id int64, method string, params any) (*Message, error) {
	raw, err := marshalValue(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}
	return &Message{JSONRPC: Version, ID: NumberID(id), Method: method, Params: raw}, nil
}

// NewNotification builds a notification. No id, no reply expected.
func NewNotification(method string, params any) (*Message, error) {
	raw, err := marshalValue(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}
	return &Message{JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewResponse builds a reply to a server-initiated request. A nil result
// becomes an explicit JSON null; a reply always carries result or error.
func NewResponse(id *ID, result any) (*Message, error) {
	raw, err := marshalValue(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	if raw == nil {
		raw = json.RawMessage("null")
	}
	return &Message{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse builds an error reply to a server-initiated request.
func NewErrorResponse(id *ID, code int, message string) *Message {
	return &Message{
		JSONRPC: Version,
		ID:      id,
		Error:   &ResponseError{Code: code, Message: message},
	}
}

// marshalValue serializes params or results, passing pre-encoded
// json.RawMessage values through untouched.
func marshalValue(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ID is a request id. The protocol permits numbers and strings; the bridge
// mints numeric ids for its own requests and echoes server-chosen ids back
// in whichever form they arrived.
type ID struct {
	num   int64
	str   string
	isStr bool
}

// NumberID wraps a numeric id.
func NumberID(n int64) *ID { return &ID{num: n} }

// StringID wraps a string id.
func StringID(s string) *ID { return &ID{str: s, isStr: true} }

// Number returns the numeric value, or false for string ids.
func (id *ID) Number() (int64, bool) {
	if id == nil || id.isStr {
		return 0, false
	}
	return id.num, true
}

// String renders the id for logs and host events.
func (id *ID) String() string {
	if id == nil {
		return ""
	}
	if id.isStr {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

// MarshalJSON encodes the id in its original form.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.str)
	}
	return json.Marshal(id.num)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		id.isStr = true
		return json.Unmarshal(data, &id.str)
	}
	id.isStr = false
	return json.Unmarshal(data, &id.num)
}
