package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider talks to the OpenAI chat completions API, or any
// compatible endpoint selected through a base URL override.
type OpenAIProvider struct {
	key     string
	baseURL string
}

// NewOpenAIProvider creates a provider for the given key. An empty
// baseURL means the public OpenAI endpoint.
func NewOpenAIProvider(key, baseURL string) *OpenAIProvider {
	return &OpenAIProvider{key: key, baseURL: baseURL}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Stream implements Provider.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	if p.key == "" {
		return "", fmt.Errorf("OPENAI_API_KEY: %w", ErrNoCredentials)
	}

	opts := []option.RequestOption{option.WithAPIKey(p.key)}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	client := openai.NewClient(opts...)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, t := range req.Turns {
		if t.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}

	stream := client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		TopP:        openai.Float(req.TopP),
	})
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			full.WriteString(delta)
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	return full.String(), nil
}
