package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider serves models through an OpenAI-compatible chat completions
// API. The xAI provider reuses it with a different base URL and vendor name.
type OpenAIProvider struct {
	name         string
	apiKey       string
	client       *openai.Client
	inputTokens  int
	outputTokens int
}

// NewOpenAIProvider creates an OpenAI provider. An empty key yields an
// unconfigured provider.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	return newOpenAICompatible("openai", apiKey, baseURL)
}

// NewXAIProvider creates the xAI provider over the OpenAI-compatible API.
func NewXAIProvider(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.x.ai/v1"
	}
	return newOpenAICompatible("xai", apiKey, baseURL)
}

func newOpenAICompatible(name, apiKey, baseURL string) *OpenAIProvider {
	p := &OpenAIProvider{name: name, apiKey: apiKey}
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		p.client = openai.NewClientWithConfig(cfg)
	}
	return p
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) IsConfigured() bool { return p.apiKey != "" }

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, modelID string, maxTokens int) (string, error) {
	if !p.IsConfigured() {
		return "", fmt.Errorf("%w: %s api key not configured", ErrProvider, p.name)
	}

	chat := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		chat = append(chat, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     modelID,
		MaxTokens: maxTokens,
		Messages:  chat,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProvider, p.name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: %s: empty response", ErrProvider, p.name)
	}

	p.inputTokens = resp.Usage.PromptTokens
	p.outputTokens = resp.Usage.CompletionTokens
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) LastUsage() (int, int) {
	return p.inputTokens, p.outputTokens
}
