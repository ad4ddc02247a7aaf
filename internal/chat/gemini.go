package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider serves gemini models through the generative AI API.
type GeminiProvider struct {
	key string
}

// NewGeminiProvider creates a provider for the given key.
func NewGeminiProvider(key string) *GeminiProvider {
	return &GeminiProvider{key: key}
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Stream implements Provider.
func (p *GeminiProvider) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	if p.key == "" {
		return "", fmt.Errorf("GEMINI_API_KEY: %w", ErrNoCredentials)
	}
	if len(req.Turns) == 0 {
		return "", errors.New("empty request")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.key))
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))
	model.SetTopP(float32(req.TopP))
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	// Prior turns ride in the chat history; the newest user turn is the
	// message itself.
	session := model.StartChat()
	for _, t := range req.Turns[:len(req.Turns)-1] {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}

	last := req.Turns[len(req.Turns)-1]
	iter := session.SendMessageStream(ctx, genai.Text(last.Content))

	var full strings.Builder
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", err
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok && text != "" {
					full.WriteString(string(text))
					onDelta(string(text))
				}
			}
		}
	}
	return full.String(), nil
}
