package summary

import (
	"context"
	"fmt"
	"testing"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/llm"
	"newsbrief/internal/usage"
)

type fakeStoryStore struct {
	stories map[string]core.Story
	feeds   map[int64]core.Feed
}

func (f *fakeStoryStore) StoriesByHashes(hashes []string) (map[string]core.Story, error) {
	out := make(map[string]core.Story)
	for _, h := range hashes {
		if s, ok := f.stories[h]; ok {
			out[h] = s
		}
	}
	return out, nil
}

func (f *fakeStoryStore) FeedsByIDs(ids []int64) (map[int64]core.Feed, error) {
	return f.feeds, nil
}

type fakeProvider struct {
	configured bool
	output     string
	err        error
}

func (f *fakeProvider) Name() string       { return "fake" }
func (f *fakeProvider) IsConfigured() bool { return f.configured }
func (f *fakeProvider) Generate(ctx context.Context, messages []llm.Message, modelID string, maxTokens int) (string, error) {
	return f.output, f.err
}
func (f *fakeProvider) LastUsage() (int, int) { return 0, 0 }

type fakeRecorder struct {
	calls []usage.LLMCall
}

func (f *fakeRecorder) RecordLLMCall(ctx context.Context, now time.Time, call usage.LLMCall) error {
	f.calls = append(f.calls, call)
	return nil
}

func TestGenerateBriefingSummary_NoConfiguredProvider(t *testing.T) {
	store := &fakeStoryStore{
		stories: map[string]core.Story{"1:aaa": {StoryHash: "1:aaa", Title: "T", FeedID: 1}},
	}
	gen := NewGenerator(store, map[string]llm.Provider{
		"anthropic": &fakeProvider{configured: false},
	}, nil)

	scored := []core.ScoredStory{{StoryHash: "1:aaa"}}
	html, meta, err := gen.GenerateBriefingSummary(context.Background(), 1, scored, time.Now(), core.BriefingPreferences{})
	if err != nil {
		t.Fatalf("missing API key should not be an error, got %v", err)
	}
	if html != "" || meta != nil {
		t.Error("expected empty result when no provider is configured")
	}
}

func TestGenerateBriefingSummary_ProviderErrorDegrades(t *testing.T) {
	store := &fakeStoryStore{
		stories: map[string]core.Story{"1:aaa": {StoryHash: "1:aaa", Title: "T", FeedID: 1}},
	}
	providerErr := fmt.Errorf("%w: rate limited", llm.ErrProvider)
	providers := map[string]llm.Provider{}
	for _, m := range llm.BriefingModels {
		providers[m.Vendor] = &fakeProvider{configured: true, err: providerErr}
	}
	gen := NewGenerator(store, providers, nil)

	scored := []core.ScoredStory{{StoryHash: "1:aaa"}}
	html, meta, err := gen.GenerateBriefingSummary(context.Background(), 1, scored, time.Now(), core.BriefingPreferences{})
	if err != nil {
		t.Fatalf("provider API failure should degrade, got error %v", err)
	}
	if html != "" || meta != nil {
		t.Error("expected empty result on provider failure")
	}
}

func TestGenerateBriefingSummary_UnconfiguredModelFallsBack(t *testing.T) {
	store := &fakeStoryStore{
		stories: map[string]core.Story{"1:aaa": {StoryHash: "1:aaa", Title: "T", FeedID: 1}},
	}
	// The chosen model's vendor has no key; the default model's does.
	providers := map[string]llm.Provider{
		"xai":       &fakeProvider{configured: false},
		"anthropic": &fakeProvider{configured: true, output: "<div>ok</div>"},
	}
	rec := &fakeRecorder{}
	gen := NewGenerator(store, providers, rec)

	scored := []core.ScoredStory{{StoryHash: "1:aaa"}}
	prefs := core.BriefingPreferences{BriefingModel: "grok"}
	html, meta, err := gen.GenerateBriefingSummary(context.Background(), 1, scored, time.Now(), prefs)
	if err != nil {
		t.Fatalf("fallback generation failed: %v", err)
	}
	if html != "<div>ok</div>" {
		t.Errorf("summary = %q, want the default provider's output", html)
	}
	if meta == nil || meta.ModelName != llm.DefaultBriefingModel {
		t.Fatalf("metadata should name the default model, got %+v", meta)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected 1 recorded call, got %d", len(rec.calls))
	}
	defaultModel := llm.ResolveModel(llm.DefaultBriefingModel)
	if rec.calls[0].Provider != defaultModel.Vendor || rec.calls[0].Model != defaultModel.ModelID {
		t.Errorf("call recorded under %s/%s, want %s/%s",
			rec.calls[0].Provider, rec.calls[0].Model, defaultModel.Vendor, defaultModel.ModelID)
	}
	if rec.calls[0].Feature != "daily_briefing" {
		t.Errorf("feature = %q, want daily_briefing", rec.calls[0].Feature)
	}
}

func TestGenerateBriefingSummary_NoStories(t *testing.T) {
	gen := NewGenerator(&fakeStoryStore{}, nil, nil)
	html, meta, err := gen.GenerateBriefingSummary(context.Background(), 1,
		[]core.ScoredStory{{StoryHash: "1:gone"}}, time.Now(), core.BriefingPreferences{})
	if err != nil || html != "" || meta != nil {
		t.Errorf("unresolvable stories should yield empty result, got %q %v %v", html, meta, err)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```html\n<div>x</div>\n```", "<div>x</div>"},
		{"```\n<div>x</div>\n```", "<div>x</div>"},
		{"<div>x</div>", "<div>x</div>"},
		{"  <div>x</div>  ", "<div>x</div>"},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
