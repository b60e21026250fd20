package briefing

import (
	"testing"
	"time"

	"newsbrief/internal/core"
)

func TestBriefingTitle(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "Morning Briefing – Aug 24"},
		{7, "Morning Briefing – Aug 24"},
		{11, "Morning Briefing – Aug 24"},
		{12, "Afternoon Briefing – Aug 24"},
		{16, "Afternoon Briefing – Aug 24"},
		{17, "Evening Briefing – Aug 24"},
		{23, "Evening Briefing – Aug 24"},
	}
	for _, tt := range tests {
		local := time.Date(2026, 8, 24, tt.hour, 30, 0, 0, time.UTC)
		if got := BriefingTitle(local); got != tt.want {
			t.Errorf("BriefingTitle(hour %d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestMinCandidates(t *testing.T) {
	if got := MinCandidates(core.FrequencyTwiceDaily); got != 1 {
		t.Errorf("twice_daily minimum = %d, want 1", got)
	}
	if got := MinCandidates(core.FrequencyDaily); got != 3 {
		t.Errorf("daily minimum = %d, want 3", got)
	}
	if got := MinCandidates(core.FrequencyWeekly); got != 3 {
		t.Errorf("weekly minimum = %d, want 3", got)
	}
}

func TestPreferredGenerationTime(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	// UTC user, preferred hour 8: generation at 07:30 UTC.
	got := preferredGenerationTime(8, "UTC", now)
	want := time.Date(2026, 8, 24, 7, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("generation time = %v, want %v", got, want)
	}

	// Unknown timezone falls back to UTC.
	got = preferredGenerationTime(8, "Mars/Olympus_Mons", now)
	if !got.Equal(want) {
		t.Errorf("bad tz generation time = %v, want %v", got, want)
	}

	// New York user: 08:00 local is 12:00 UTC in August (EDT), minus the
	// 30-minute lead.
	got = preferredGenerationTime(8, "America/New_York", now)
	want = time.Date(2026, 8, 24, 11, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NY generation time = %v, want %v", got, want)
	}
}

func TestCuratedSections(t *testing.T) {
	w := &Worker{}
	scored := []core.ScoredStory{
		{StoryHash: "1:aaa", Category: core.SectionLongRead},
		{StoryHash: "2:bbb", Category: core.SectionTrendingUnread},
		{StoryHash: "3:ccc", Category: "custom_1"},
		{StoryHash: "4:ddd", Category: ""},
	}
	sections := map[string]bool{
		core.SectionLongRead:       false,
		core.SectionTrendingUnread: true,
	}
	// The model placed 2:bbb in quick_catchup; that placement wins, but
	// quick_catchup is not enabled so it remaps to trending_global.
	sectionHashes := map[string][]string{
		core.SectionQuickCatchup: {"2:bbb"},
	}

	curated := w.curatedSections(scored, sections, sectionHashes)

	// long_read disabled -> trending_global.
	if !contains(curated[core.SectionTrendingGlobal], "1:aaa") {
		t.Errorf("disabled category should remap to trending_global: %v", curated)
	}
	// Model placement in a disabled section also remaps.
	if !contains(curated[core.SectionTrendingGlobal], "2:bbb") {
		t.Errorf("placement in a disabled section should remap: %v", curated)
	}
	// Custom categories always pass through.
	if !contains(curated["custom_1"], "3:ccc") {
		t.Errorf("custom category lost: %v", curated)
	}
	// Empty category falls back to trending_global.
	if !contains(curated[core.SectionTrendingGlobal], "4:ddd") {
		t.Errorf("empty category should land in trending_global: %v", curated)
	}
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
