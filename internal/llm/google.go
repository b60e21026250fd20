package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleProvider serves Gemini models through the Gemini API backend.
type GoogleProvider struct {
	apiKey       string
	inputTokens  int
	outputTokens int
}

// NewGoogleProvider creates a Google provider. An empty key yields an
// unconfigured provider.
func NewGoogleProvider(apiKey string) *GoogleProvider {
	return &GoogleProvider{apiKey: apiKey}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) IsConfigured() bool { return p.apiKey != "" }

func (p *GoogleProvider) Generate(ctx context.Context, messages []Message, modelID string, maxTokens int) (string, error) {
	if !p.IsConfigured() {
		return "", fmt.Errorf("%w: google api key not configured", ErrProvider)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("%w: google: %v", ErrProvider, err)
	}

	system, user := splitMessages(messages)
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: user}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := client.Models.GenerateContent(ctx, modelID, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: google: %v", ErrProvider, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: google: empty response", ErrProvider)
	}

	if resp.UsageMetadata != nil {
		p.inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		p.outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return text, nil
}

func (p *GoogleProvider) LastUsage() (int, int) {
	return p.inputTokens, p.outputTokens
}
