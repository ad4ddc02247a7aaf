package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicMaxTokens bounds replies; the messages API requires an
// explicit limit.
const anthropicMaxTokens = 4096

// AnthropicProvider serves claude models through the messages API.
type AnthropicProvider struct {
	key string
}

// NewAnthropicProvider creates a provider for the given key.
func NewAnthropicProvider(key string) *AnthropicProvider {
	return &AnthropicProvider{key: key}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Stream implements Provider.
func (p *AnthropicProvider) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	if p.key == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY: %w", ErrNoCredentials)
	}

	client := anthropic.NewClient(option.WithAPIKey(p.key))

	messages := make([]anthropic.MessageParam, 0, len(req.Turns))
	for _, t := range req.Turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   anthropicMaxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
		TopP:        anthropic.Float(req.TopP),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	stream := client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta := ev.Delta.Text; delta != "" {
				full.WriteString(delta)
				onDelta(delta)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	return full.String(), nil
}
