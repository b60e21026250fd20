package summary

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/llm"
	"newsbrief/internal/logger"
	"newsbrief/internal/usage"
)

// StoryStore is the relational surface the generator needs. *store.Store
// satisfies it.
type StoryStore interface {
	StoriesByHashes(hashes []string) (map[string]core.Story, error)
	FeedsByIDs(ids []int64) (map[int64]core.Feed, error)
}

// Metadata describes the model run that produced a summary.
type Metadata struct {
	ModelName    string
	DisplayName  string
	InputTokens  int
	OutputTokens int
}

// callRecorder is the cost-accounting surface the generator needs.
// *usage.Recorder satisfies it.
type callRecorder interface {
	RecordLLMCall(ctx context.Context, now time.Time, call usage.LLMCall) error
}

// Generator produces briefing summaries through the configured providers.
type Generator struct {
	store     StoryStore
	providers map[string]llm.Provider
	usage     callRecorder
}

// NewGenerator creates a summary generator.
func NewGenerator(store StoryStore, providers map[string]llm.Provider, recorder callRecorder) *Generator {
	return &Generator{store: store, providers: providers, usage: recorder}
}

var (
	openingFence = regexp.MustCompile("^```\\w*\n?")
	closingFence = regexp.MustCompile("\n?```\\s*$")
)

// GenerateBriefingSummary renders the prompt for the scored stories and runs
// it through the user's chosen model, falling back to the default model when
// the chosen provider has no API key. Provider API failures are degraded
// service: they log and return empty results with a nil error. A nil result
// with nil error means no briefing could be generated this run.
func (g *Generator) GenerateBriefingSummary(ctx context.Context, userID int64, scored []core.ScoredStory, briefingDate time.Time, prefs core.BriefingPreferences) (string, *Metadata, error) {
	hashes := make([]string, len(scored))
	for i, s := range scored {
		hashes[i] = s.StoryHash
	}
	stories, err := g.store.StoriesByHashes(hashes)
	if err != nil {
		return "", nil, err
	}

	feedIDSet := make(map[int64]bool)
	for _, s := range stories {
		feedIDSet[s.FeedID] = true
	}
	feedIDs := make([]int64, 0, len(feedIDSet))
	for id := range feedIDSet {
		feedIDs = append(feedIDs, id)
	}
	feeds, err := g.store.FeedsByIDs(feedIDs)
	if err != nil {
		return "", nil, err
	}
	feedTitles := make(map[int64]string, len(feeds))
	for id, f := range feeds {
		feedTitles[id] = f.Title
	}

	userPrompt := buildUserPrompt(scored, stories, feedTitles, prefs.Sections, briefingDate)
	if userPrompt == "" {
		return "", nil, nil
	}

	model := llm.ResolveModel(prefs.BriefingModel)
	provider := g.providers[model.Vendor]

	// Fall back to the default model when the chosen provider has no key.
	if provider == nil || !provider.IsConfigured() {
		if model.Handle != llm.DefaultBriefingModel {
			model = llm.ResolveModel(llm.DefaultBriefingModel)
			provider = g.providers[model.Vendor]
		}
		if provider == nil || !provider.IsConfigured() {
			logger.Error("briefing summary failed: no API key configured", nil, "user_id", userID)
			return "", nil, nil
		}
	}

	systemPrompt := buildSystemPrompt(prefs.SummaryLength, prefs.SummaryStyle, prefs.Sections, prefs.CustomSectionPrompts)
	sectionCount := 0
	for _, enabled := range prefs.Sections {
		if enabled {
			sectionCount++
		}
	}
	maxTokens := llm.MaxTokensForBriefing(len(scored), sectionCount)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt},
	}

	summaryHTML, err := provider.Generate(ctx, messages, model.ModelID, maxTokens)
	if err != nil {
		if errors.Is(err, llm.ErrProvider) {
			logger.Error("briefing summary failed", err, "user_id", userID, "model", model.Handle)
			return "", nil, nil
		}
		return "", nil, err
	}

	summaryHTML = stripCodeFences(summaryHTML)

	inputTokens, outputTokens := provider.LastUsage()
	if err := g.usage.RecordLLMCall(ctx, time.Now(), usage.LLMCall{
		Provider:     model.Vendor,
		Model:        model.ModelID,
		Feature:      "daily_briefing",
		UserID:       userID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      llm.CostUSD(model, inputTokens, outputTokens),
	}); err != nil {
		logger.Warn("briefing cost recording failed", "user_id", userID, "error", err.Error())
	}

	logger.Debug("briefing summary generated", "user_id", userID,
		"input_tokens", inputTokens, "output_tokens", outputTokens, "model", model.Handle)

	return summaryHTML, &Metadata{
		ModelName:    model.Handle,
		DisplayName:  model.DisplayName,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

// stripCodeFences removes a markdown code fence the model wrapped its
// output in despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = openingFence.ReplaceAllString(s, "")
		s = closingFence.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
	}
	return s
}
