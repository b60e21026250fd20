package llm

import "newsbrief/internal/config"

// NewProviders builds the vendor providers from configuration, keyed by
// vendor name. Every vendor is present; unconfigured ones report
// IsConfigured() == false and fail closed on Generate.
func NewProviders(cfg config.AI) map[string]Provider {
	return map[string]Provider{
		"anthropic": NewAnthropicProvider(cfg.Anthropic.APIKey),
		"openai":    NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL),
		"google":    NewGoogleProvider(cfg.Google.APIKey),
		"xai":       NewXAIProvider(cfg.XAI.APIKey, cfg.XAI.BaseURL),
	}
}
