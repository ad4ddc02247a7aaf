package chat

import (
	"context"
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dshills/copilot-bridge/internal/ipc"
)

// DefaultModel is the model the chat lane starts on.
const DefaultModel = "gpt-4o"

// Fixed sampling settings for every request.
const (
	requestTemperature = 0.1
	requestTopP        = 1
)

// Lane is the slice of the ipc channel the session writes to.
type Lane interface {
	Emit(ev ipc.Event) error
	Reset() error
}

// ProviderFunc resolves the provider for a model name.
type ProviderFunc func(model string) Provider

// Session owns the chat lane: the dialogue history, the active model,
// and the translation of chat commands into provider calls and events.
//
// Commands are handled one at a time on the chat loop goroutine; a
// conversation is serial by nature.
type Session struct {
	lane     Lane
	provider ProviderFunc
	model    string
	history  []Turn
	log      *logrus.Entry
}

// NewSession creates a session on the given lane. An empty model starts
// the session on DefaultModel.
func NewSession(lane Lane, provider ProviderFunc, model string, log *logrus.Logger) *Session {
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Session{
		lane:     lane,
		provider: provider,
		model:    model,
		log:      log.WithField("component", "chat"),
	}
}

// Model returns the active model name.
func (s *Session) Model() string { return s.model }

// HandleCommand processes one chat command line. A line without a type
// tag is a message.
func (s *Session) HandleCommand(ctx context.Context, cmd ipc.Command) {
	switch cmd.Type {
	case ipc.ChatCmdClear:
		s.clear()
	case ipc.ChatCmdModel:
		s.setModel(cmd)
	case ipc.ChatCmdMessage, "":
		s.message(ctx, cmd)
	default:
		s.log.WithField("type", cmd.Type).Debug("unknown chat command")
	}
}

// clear drops the conversation and truncates both lane files, so the
// host panel and the session forget together.
func (s *Session) clear() {
	s.history = nil
	if err := s.lane.Reset(); err != nil {
		s.log.WithError(err).Error("reset chat lane")
	}
	s.log.Info("chat history cleared")
}

func (s *Session) setModel(cmd ipc.Command) {
	var params ipc.ChatModel
	if err := cmd.Decode(&params); err != nil {
		s.log.WithError(err).Warn("bad model command")
		return
	}
	if params.Model == "" {
		return
	}
	s.model = params.Model
	s.log.WithField("model", s.model).Info("chat model changed")
}

func (s *Session) message(ctx context.Context, cmd ipc.Command) {
	var params ipc.ChatMessage
	if err := cmd.Decode(&params); err != nil {
		s.log.WithError(err).Warn("bad chat message")
		return
	}

	id := cmd.ID
	if id == nil {
		id = json.RawMessage(`""`)
	}

	turns := make([]Turn, 0, len(s.history)+1)
	turns = append(turns, s.history...)
	turns = append(turns, Turn{Role: RoleUser, Content: params.Message})

	// The system prompt is rebuilt every turn so the model sees the
	// context file as it is now, not as it was when the chat started.
	req := Request{
		Model:       s.model,
		System:      BuildSystemMessage(params.ContextFile, params.CursorLine, params.Selection),
		Turns:       turns,
		Temperature: requestTemperature,
		TopP:        requestTopP,
	}

	provider := s.provider(s.model)
	s.log.WithFields(logrus.Fields{
		"provider": provider.Name(),
		"model":    s.model,
	}).Info("chat request")

	text, err := provider.Stream(ctx, req, func(delta string) {
		s.emit(ChunkEvent{ID: id, Content: delta})
	})
	if err != nil {
		s.log.WithError(err).Warn("chat request failed")
		s.emit(ErrorEvent{ID: id, Content: errorContent(err)})
		text = ""
	} else {
		edits := ExtractEdits(text)
		var ctxFile *string
		if params.ContextFile != "" {
			ctxFile = &params.ContextFile
		}
		s.emit(DoneEvent{
			ID:          id,
			HasEdits:    len(edits) > 0,
			Edits:       edits,
			ContextFile: ctxFile,
		})
	}

	// The user turn is remembered even when the request failed; the
	// assistant turn only exists if the stream produced text.
	s.history = append(s.history, Turn{Role: RoleUser, Content: params.Message})
	if text != "" {
		s.history = append(s.history, Turn{Role: RoleAssistant, Content: text})
	}
}

func (s *Session) emit(ev ipc.Event) {
	if err := s.lane.Emit(ev); err != nil {
		s.log.WithError(err).Error("emit chat event")
	}
}
