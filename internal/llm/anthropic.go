package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider serves Claude models through the Messages API.
type AnthropicProvider struct {
	apiKey       string
	client       anthropic.Client
	inputTokens  int
	outputTokens int
}

// NewAnthropicProvider creates an Anthropic provider. An empty key yields an
// unconfigured provider.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	p := &AnthropicProvider{apiKey: apiKey}
	if apiKey != "" {
		p.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	}
	return p
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) IsConfigured() bool { return p.apiKey != "" }

func (p *AnthropicProvider) Generate(ctx context.Context, messages []Message, modelID string, maxTokens int) (string, error) {
	if !p.IsConfigured() {
		return "", fmt.Errorf("%w: anthropic api key not configured", ErrProvider)
	}

	system, user := splitMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic: %v", ErrProvider, err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("%w: anthropic: empty response", ErrProvider)
	}

	p.inputTokens = int(resp.Usage.InputTokens)
	p.outputTokens = int(resp.Usage.OutputTokens)
	return text, nil
}

func (p *AnthropicProvider) LastUsage() (int, int) {
	return p.inputTokens, p.outputTokens
}
