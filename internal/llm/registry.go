package llm

// Model is one registry entry: the handle users pick in preferences, the
// vendor that serves it, the vendor's model id, and list pricing per
// million tokens for cost accounting.
type Model struct {
	Handle            string
	Vendor            string
	ModelID           string
	DisplayName       string
	InputCostPerMTok  float64
	OutputCostPerMTok float64
}

// DefaultBriefingModel is used when preferences name no model or name one
// that is not registered.
const DefaultBriefingModel = "claude-sonnet"

// BriefingModels maps preference handles to models. Unregistered handles
// fall back to DefaultBriefingModel at resolution time.
var BriefingModels = map[string]Model{
	"claude-sonnet": {
		Handle:            "claude-sonnet",
		Vendor:            "anthropic",
		ModelID:           "claude-sonnet-4-20250514",
		DisplayName:       "Claude Sonnet 4",
		InputCostPerMTok:  3.0,
		OutputCostPerMTok: 15.0,
	},
	"claude-haiku": {
		Handle:            "claude-haiku",
		Vendor:            "anthropic",
		ModelID:           "claude-3-5-haiku-20241022",
		DisplayName:       "Claude 3.5 Haiku",
		InputCostPerMTok:  0.8,
		OutputCostPerMTok: 4.0,
	},
	"gpt-4o": {
		Handle:            "gpt-4o",
		Vendor:            "openai",
		ModelID:           "gpt-4o",
		DisplayName:       "GPT-4o",
		InputCostPerMTok:  2.5,
		OutputCostPerMTok: 10.0,
	},
	"gpt-4o-mini": {
		Handle:            "gpt-4o-mini",
		Vendor:            "openai",
		ModelID:           "gpt-4o-mini",
		DisplayName:       "GPT-4o mini",
		InputCostPerMTok:  0.15,
		OutputCostPerMTok: 0.6,
	},
	"gemini-flash": {
		Handle:            "gemini-flash",
		Vendor:            "google",
		ModelID:           "gemini-2.0-flash",
		DisplayName:       "Gemini 2.0 Flash",
		InputCostPerMTok:  0.1,
		OutputCostPerMTok: 0.4,
	},
	"grok": {
		Handle:            "grok",
		Vendor:            "xai",
		ModelID:           "grok-3-mini",
		DisplayName:       "Grok 3 mini",
		InputCostPerMTok:  0.3,
		OutputCostPerMTok: 0.5,
	},
}

// ResolveModel maps a preference handle to its registry entry, falling back
// to the default model for unknown or empty handles.
func ResolveModel(handle string) Model {
	if m, ok := BriefingModels[handle]; ok {
		return m
	}
	return BriefingModels[DefaultBriefingModel]
}

// CostUSD computes the dollar cost of a call against a model's list prices.
func CostUSD(m Model, inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*m.InputCostPerMTok +
		float64(outputTokens)/1e6*m.OutputCostPerMTok
}

// MaxTokensForBriefing sizes the response budget to the briefing: a base
// allowance plus per-story and per-section headroom, capped.
func MaxTokensForBriefing(storyCount, sectionCount int) int {
	tokens := 1024 + 80*storyCount + 100*sectionCount
	if tokens > 4096 {
		tokens = 4096
	}
	return tokens
}
