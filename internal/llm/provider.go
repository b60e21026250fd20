package llm

import (
	"context"
	"errors"
)

// Message roles follow the chat-completion convention.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one prompt message.
type Message struct {
	Role    string
	Content string
}

// ErrProvider marks API and transport failures from any vendor. Callers
// treat these as degraded service rather than bugs.
var ErrProvider = errors.New("llm provider error")

// Provider generates text through one vendor's API.
type Provider interface {
	// Name is the vendor tag: anthropic, openai, google, or xai.
	Name() string

	// IsConfigured reports whether an API key is available.
	IsConfigured() bool

	// Generate runs a completion and returns the response text. API and
	// transport failures wrap ErrProvider.
	Generate(ctx context.Context, messages []Message, modelID string, maxTokens int) (string, error)

	// LastUsage returns the input and output token counts of the most
	// recent successful Generate call.
	LastUsage() (int, int)
}

// splitMessages separates system content from user content the way vendor
// APIs want them: system instructions concatenated, user turns joined.
func splitMessages(messages []Message) (system string, user string) {
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		default:
			if user != "" {
				user += "\n\n"
			}
			user += m.Content
		}
	}
	return system, user
}
