package scoring

import (
	"testing"
	"time"

	"newsbrief/internal/core"
)

func TestWordCountBucket(t *testing.T) {
	tests := []struct {
		words int
		want  float64
	}{
		{0, 0},
		{299, 0},
		{300, 1},
		{999, 1},
		{1000, 2},
		{5000, 2},
	}
	for _, tt := range tests {
		if got := wordCountBucket(tt.words); got != tt.want {
			t.Errorf("wordCountBucket(%d) = %v, want %v", tt.words, got, tt.want)
		}
	}
}

func TestLongReadThreshold(t *testing.T) {
	if got := longReadThreshold(nil); got != LongReadMinWords {
		t.Errorf("empty pool threshold = %d, want %d", got, LongReadMinWords)
	}

	// Median 100 -> 3x = 300, below the floor of 500.
	small := map[string]core.Story{
		"a": {WordCount: 50},
		"b": {WordCount: 100},
		"c": {WordCount: 150},
	}
	if got := longReadThreshold(small); got != LongReadMinWords {
		t.Errorf("low-median threshold = %d, want floor %d", got, LongReadMinWords)
	}

	// Median 400 -> 3x = 1200, above the floor.
	large := map[string]core.Story{
		"a": {WordCount: 200},
		"b": {WordCount: 400},
		"c": {WordCount: 800},
	}
	if got := longReadThreshold(large); got != 1200 {
		t.Errorf("high-median threshold = %d, want 1200", got)
	}
}

func TestClassifierMatches(t *testing.T) {
	story := core.Story{
		FeedID: 7,
		Title:  "Go 1.25 released with new GC",
		Author: "Jane Doe",
		Tags:   []string{"Golang", "releases"},
	}
	classifiers := []core.Classifier{
		{Kind: core.ClassifierFeed, FeedID: 7, Value: "Go Blog", Score: 1},
		{Kind: core.ClassifierAuthor, Value: "jane doe", Score: 1},
		{Kind: core.ClassifierTitle, Value: "released", Score: 1},
		{Kind: core.ClassifierTag, Value: "golang", Score: 1},
		{Kind: core.ClassifierTag, Value: "python", Score: 1},
		{Kind: core.ClassifierFeed, FeedID: 99, Value: "Other", Score: -1},
	}
	matches := classifierMatches(classifiers, story)
	if len(matches) != 4 {
		t.Fatalf("expected 4 matches, got %v", matches)
	}
	if matches[0] != "feed:Go Blog" || matches[3] != "tag:golang" {
		t.Errorf("unexpected match labels: %v", matches)
	}
}

func TestClassifierMatches_NegativeDisqualifies(t *testing.T) {
	story := core.Story{FeedID: 7, Author: "Jane Doe", Title: "Anything"}
	classifiers := []core.Classifier{
		{Kind: core.ClassifierAuthor, Value: "Jane Doe", Score: 1},
		{Kind: core.ClassifierFeed, FeedID: 7, Value: "Bad Feed", Score: -1},
	}
	if matches := classifierMatches(classifiers, story); matches != nil {
		t.Errorf("negative hit should disqualify the story, got %v", matches)
	}
}

func TestClassifierMatches_NeutralScoreIgnored(t *testing.T) {
	story := core.Story{FeedID: 7}
	classifiers := []core.Classifier{
		{Kind: core.ClassifierFeed, FeedID: 7, Value: "Meh Feed", Score: 0},
	}
	if matches := classifierMatches(classifiers, story); len(matches) != 0 {
		t.Errorf("score-0 classifiers should not produce matches, got %v", matches)
	}
}

func TestMatchCustomSections(t *testing.T) {
	story := core.Story{
		Title:   "Kubernetes 1.33 ships",
		Content: "<p>The scheduler got faster.</p>",
	}
	prompts := []string{"rustlang", "kubernetes", "scheduler"}
	// First matching prompt wins; kubernetes is prompt 2.
	if got := matchCustomSections(prompts, story); got != "custom_2" {
		t.Errorf("matchCustomSections = %q, want custom_2", got)
	}

	if got := matchCustomSections([]string{"erlang"}, story); got != "" {
		t.Errorf("no keyword hit should return empty, got %q", got)
	}
	if got := matchCustomSections(nil, story); got != "" {
		t.Errorf("no prompts should return empty, got %q", got)
	}

	// Prompts beyond the cap are ignored.
	many := []string{"x1", "x2", "x3", "x4", "x5", "kubernetes"}
	if got := matchCustomSections(many, story); got != "" {
		t.Errorf("prompt past the cap should not match, got %q", got)
	}
}

func testSignals(stories map[string]core.Story, readState map[string]bool) pageSignals {
	return pageSignals{
		stories:           stories,
		readState:         readState,
		longReadThreshold: LongReadMinWords,
	}
}

func TestFilterUnread_Boundary(t *testing.T) {
	stories := map[string]core.Story{
		"1:a": {FeedID: 1}, "1:b": {FeedID: 1}, "1:c": {FeedID: 1},
		"2:d": {FeedID: 2}, "2:e": {FeedID: 2}, "2:f": {FeedID: 2},
	}
	hashes := []string{"1:a", "1:b", "1:c", "2:d", "2:e", "2:f"}

	// Three unread of six: the filter drops every read story.
	read := map[string]bool{"1:a": true, "1:b": true, "2:d": true}
	candidates, unread := scoreCandidates(hashes, core.BriefingPreferences{}, testSignals(stories, read))
	if unread != 3 {
		t.Fatalf("unread count = %d, want 3", unread)
	}
	filtered := filterUnread(candidates, unread)
	if len(filtered) != 3 {
		t.Fatalf("expected 3 unread candidates, got %d", len(filtered))
	}
	for _, c := range filtered {
		if c.IsRead {
			t.Errorf("read story %s survived the unread filter", c.StoryHash)
		}
	}
}

func TestFilterUnread_ThinPoolFallsBackToMixed(t *testing.T) {
	stories := map[string]core.Story{
		"1:a": {FeedID: 1}, "1:b": {FeedID: 1}, "1:c": {FeedID: 1},
		"2:d": {FeedID: 2}, "2:e": {FeedID: 2}, "2:f": {FeedID: 2},
	}
	hashes := []string{"1:a", "1:b", "1:c", "2:d", "2:e", "2:f"}

	// Only two unread: read stories are retained instead of an empty result.
	read := map[string]bool{"1:a": true, "1:b": true, "1:c": true, "2:d": true}
	candidates, unread := scoreCandidates(hashes, core.BriefingPreferences{}, testSignals(stories, read))
	if unread != 2 {
		t.Fatalf("unread count = %d, want 2", unread)
	}
	filtered := filterUnread(candidates, unread)
	if len(filtered) != len(stories) {
		t.Fatalf("thin unread pool should keep the mixed list, got %d of %d", len(filtered), len(stories))
	}
	readKept := 0
	for _, c := range filtered {
		if c.IsRead {
			readKept++
		}
	}
	if readKept != 4 {
		t.Errorf("expected 4 read stories retained, got %d", readKept)
	}
}

func TestScoreCandidates_TrendingUnreadUsesFeedSignal(t *testing.T) {
	stories := map[string]core.Story{
		"1:a": {FeedID: 1},
		"2:b": {FeedID: 2},
	}
	sig := testSignals(stories, nil)
	sig.trendingFeed = map[string]float64{"1:a": trendingFeedMin}
	sig.trendingGlobal = map[string]float64{"2:b": trendingGlobalMin}

	candidates, _ := scoreCandidates([]string{"1:a", "2:b"}, core.BriefingPreferences{}, sig)
	byHash := make(map[string]core.ScoredStory, len(candidates))
	for _, c := range candidates {
		byHash[c.StoryHash] = c
	}
	if got := byHash["1:a"].Category; got != core.SectionTrendingUnread {
		t.Errorf("feed-trending unread story category = %q, want %q", got, core.SectionTrendingUnread)
	}
	// Globally trending alone is not the unread-trending signal.
	if got := byHash["2:b"].Category; got != core.SectionTrendingGlobal {
		t.Errorf("global-trending story category = %q, want %q", got, core.SectionTrendingGlobal)
	}
}

func TestFollowUpFeeds(t *testing.T) {
	now := time.Now()
	recent := now.Add(-24 * time.Hour)
	stale := now.Add(-8 * 24 * time.Hour)

	hashesByFeed := map[int64][]string{
		1: {"1:a", "1:b", "1:c"},
		2: {"2:a", "2:b"},
		3: {"3:a"},
	}
	readState := map[string]bool{
		"1:a": true, "1:b": true, // two recent reads -> follow-up
		"2:a": true, "2:b": true, // reads, but stale
		"3:a": true, // only one read
	}
	stories := map[string]core.Story{
		"1:a": {Date: recent}, "1:b": {Date: recent}, "1:c": {Date: recent},
		"2:a": {Date: stale}, "2:b": {Date: stale},
		"3:a": {Date: recent},
	}

	follow := followUpFeeds(hashesByFeed, readState, stories, now)
	if !follow[1] {
		t.Error("feed 1 should be a follow-up feed")
	}
	if follow[2] {
		t.Error("stale reads should not count toward follow-ups")
	}
	if follow[3] {
		t.Error("a single read should not mark a follow-up feed")
	}
}

func TestReadStoriesKey(t *testing.T) {
	if got := ReadStoriesKey(42, 7); got != "RS:42:7" {
		t.Errorf("ReadStoriesKey = %q, want RS:42:7", got)
	}
	if got := TrendingFeedKey(9); got != "zTrend:feed:9" {
		t.Errorf("TrendingFeedKey = %q, want zTrend:feed:9", got)
	}
}
