package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the conversation history.
type Turn struct {
	Role    Role
	Content string
}

// Request is one completion call assembled from session state. The
// system prompt stays separate from the turns because providers place
// it differently on the wire.
type Request struct {
	Model       string
	System      string
	Turns       []Turn
	Temperature float64
	TopP        float64
}

// Provider streams one model response.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Stream issues the completion and calls onDelta for each content
	// fragment as it arrives, returning the full accumulated text.
	Stream(ctx context.Context, req Request, onDelta func(delta string)) (string, error)
}

// ErrNoCredentials is returned when the selected provider has no API key.
var ErrNoCredentials = errors.New("no API key configured")

// Credentials carries the provider API keys and endpoint overrides.
type Credentials struct {
	OpenAIKey     string
	OpenAIBaseURL string
	AnthropicKey  string
	GeminiKey     string
}

// ProviderFor picks a provider by model name: claude models go to
// Anthropic, gemini models to Google, and everything else to the
// OpenAI-compatible endpoint.
func ProviderFor(model string, creds Credentials) Provider {
	switch {
	case strings.HasPrefix(model, "claude"):
		return NewAnthropicProvider(creds.AnthropicKey)
	case strings.HasPrefix(model, "gemini"):
		return NewGeminiProvider(creds.GeminiKey)
	default:
		return NewOpenAIProvider(creds.OpenAIKey, creds.OpenAIBaseURL)
	}
}

// errorContent renders a provider failure the way the host displays
// it: auth problems and HTTP failures keep their familiar prefixes.
func errorContent(err error) string {
	if errors.Is(err, ErrNoCredentials) {
		return "Auth error: " + err.Error()
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		msg := oaiErr.Message
		if msg == "" {
			msg = oaiErr.Error()
		}
		return fmt.Sprintf("HTTP %d: %s", oaiErr.StatusCode, msg)
	}

	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return fmt.Sprintf("HTTP %d: %s", anthErr.StatusCode, anthErr.Error())
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return fmt.Sprintf("HTTP %d: %s", gErr.Code, gErr.Message)
	}

	return err.Error()
}
