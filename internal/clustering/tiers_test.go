package clustering

import (
	"fmt"
	"testing"
	"time"

	"newsbrief/internal/core"
)

func testStory(feedID int64, guid, title string, date time.Time) core.Story {
	return core.Story{
		StoryHash: fmt.Sprintf("%d:%s", feedID, guid),
		FeedID:    feedID,
		Title:     title,
		Date:      date,
	}
}

func runTiers(t *testing.T, stories []core.Story, feeds map[int64]core.Feed) []Cluster {
	t.Helper()
	cands := newCandidates(stories, feeds)
	uf := newUnionFind(len(cands))
	findTitleClusters(cands, uf)
	findFuzzyClusters(cands, uf)
	return validateClusters(cands, uf)
}

func TestTitleTier_ExactMatchAcrossFeeds(t *testing.T) {
	now := time.Now()
	stories := []core.Story{
		testStory(1, "aaa", "OpenAI releases new model", now),
		testStory(2, "bbb", "OpenAI Releases New Model!", now.Add(time.Hour)),
	}
	clusters := runTiers(t, stories, nil)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Members) != 2 {
		t.Errorf("expected 2 members, got %d", len(clusters[0].Members))
	}
	if clusters[0].ID != "1:aaa" {
		t.Errorf("cluster id = %q, want oldest member hash 1:aaa", clusters[0].ID)
	}
}

func TestTitleTier_ShortTitlesNeverMatch(t *testing.T) {
	now := time.Now()
	// "breaking" normalizes to 8 characters, below the minimum of 10.
	stories := []core.Story{
		testStory(1, "aaa", "Breaking!", now),
		testStory(2, "bbb", "Breaking!", now),
	}
	if clusters := runTiers(t, stories, nil); len(clusters) != 0 {
		t.Errorf("short titles should not cluster, got %d clusters", len(clusters))
	}

	// Exactly at the minimum (10 chars normalized) does match.
	stories = []core.Story{
		testStory(1, "aaa", "hello word", now),
		testStory(2, "bbb", "hello word", now),
	}
	if clusters := runTiers(t, stories, nil); len(clusters) != 1 {
		t.Errorf("10-char titles should cluster, got %d clusters", len(clusters))
	}
}

func TestTitleTier_BranchedCopiesAreOneSource(t *testing.T) {
	now := time.Now()
	// Feed 2 is a branched copy of feed 1; both stories share a GUID, so the
	// group has only one unique source and must not cluster.
	feeds := map[int64]core.Feed{
		1: {ID: 1},
		2: {ID: 2, BranchFromFeed: 1},
	}
	stories := []core.Story{
		testStory(1, "same-guid", "identical headline text", now),
		testStory(2, "same-guid", "identical headline text", now),
	}
	if clusters := runTiers(t, stories, feeds); len(clusters) != 0 {
		t.Errorf("branched copies should not form a cluster, got %d", len(clusters))
	}
}

func TestTitleTier_OneRepresentativePerGUID(t *testing.T) {
	now := time.Now()
	// Two distinct sources qualify the group, but the branched copy shares
	// its GUID with the feed-1 story; only one member per GUID may join.
	feeds := map[int64]core.Feed{
		1: {ID: 1},
		2: {ID: 2, BranchFromFeed: 1},
		3: {ID: 3},
	}
	stories := []core.Story{
		testStory(1, "guid-a", "identical headline text", now),
		testStory(2, "guid-a", "identical headline text", now.Add(time.Minute)),
		testStory(3, "guid-b", "identical headline text", now.Add(2*time.Minute)),
	}
	clusters := runTiers(t, stories, feeds)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Members) != 2 {
		t.Fatalf("expected one representative per guid, got %d members", len(clusters[0].Members))
	}
	seen := map[string]bool{}
	for _, m := range clusters[0].Members {
		guid := core.GUIDHash(m.StoryHash)
		if seen[guid] {
			t.Errorf("cluster carries two members with guid %q", guid)
		}
		seen[guid] = true
	}
}

func TestFuzzyTier_JaccardThreshold(t *testing.T) {
	now := time.Now()
	// 4 shared words of 5 and 5: intersection 4, union 6, jaccard 0.667.
	stories := []core.Story{
		testStory(1, "aaa", "apple banana cherry durian elderberry", now),
		testStory(2, "bbb", "apple banana cherry durian fig", now),
	}
	clusters := runTiers(t, stories, nil)
	if len(clusters) != 1 {
		t.Fatalf("expected fuzzy match at jaccard 0.667, got %d clusters", len(clusters))
	}

	// 3 shared words of 5 and 5: intersection 3, union 7, jaccard 0.43.
	stories = []core.Story{
		testStory(1, "aaa", "apple banana cherry durian elderberry", now),
		testStory(2, "bbb", "apple banana cherry grape honeydew", now),
	}
	if clusters := runTiers(t, stories, nil); len(clusters) != 0 {
		t.Errorf("jaccard 0.43 should not match, got %d clusters", len(clusters))
	}
}

func TestFuzzyTier_RequiresFiveSignificantWords(t *testing.T) {
	now := time.Now()
	// Identical word sets, but only 4 significant words each.
	stories := []core.Story{
		testStory(1, "aaa", "apple banana cherry durian", now),
		testStory(2, "bbb", "durian cherry banana apple", now),
	}
	if clusters := runTiers(t, stories, nil); len(clusters) != 0 {
		t.Errorf("4-word titles should not fuzzy-match, got %d clusters", len(clusters))
	}
}

func TestFuzzyTier_SameFeedNeverMatches(t *testing.T) {
	now := time.Now()
	stories := []core.Story{
		testStory(1, "aaa", "apple banana cherry durian elderberry", now),
		testStory(1, "bbb", "apple banana cherry durian elderberry", now),
	}
	if clusters := runTiers(t, stories, nil); len(clusters) != 0 {
		t.Errorf("same-feed stories should not fuzzy-match, got %d clusters", len(clusters))
	}
}

func TestValidateClusters_OrderingAndTruncation(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var stories []core.Story
	// 12 stories with the same title across 12 feeds; newest first so the
	// sort has work to do.
	for i := 11; i >= 0; i-- {
		stories = append(stories, testStory(int64(i+1), fmt.Sprintf("guid-%02d", i),
			"the same long headline everywhere", base.Add(time.Duration(i)*time.Hour)))
	}
	clusters := runTiers(t, stories, nil)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if len(c.Members) != MaxClusterSize {
		t.Errorf("expected truncation to %d members, got %d", MaxClusterSize, len(c.Members))
	}
	if c.ID != c.Members[0].StoryHash {
		t.Errorf("cluster id %q should be the first member's hash %q", c.ID, c.Members[0].StoryHash)
	}
	for i := 1; i < len(c.Members); i++ {
		if c.Members[i].Date.Before(c.Members[i-1].Date) {
			t.Errorf("members not sorted oldest first at index %d", i)
		}
	}
	if c.Members[0].Date != base {
		t.Errorf("oldest member should lead, got date %v", c.Members[0].Date)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b []string
		want float64
	}{
		{[]string{"a", "b"}, []string{"a", "b"}, 1.0},
		{[]string{"a", "b"}, []string{"c", "d"}, 0.0},
		{[]string{"a", "b", "c"}, []string{"b", "c", "d"}, 0.5},
		{nil, []string{"a"}, 0.0},
	}
	for _, tt := range tests {
		if got := jaccard(tt.a, tt.b); got != tt.want {
			t.Errorf("jaccard(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestUnionFindComponents(t *testing.T) {
	uf := newUnionFind(6)
	uf.union(0, 1)
	uf.union(1, 2)
	uf.union(4, 5)

	groups := uf.components()
	if len(groups) != 2 {
		t.Fatalf("expected 2 components of size >= 2, got %d", len(groups))
	}
	sizes := map[int]bool{}
	for _, g := range groups {
		sizes[len(g)] = true
	}
	if !sizes[3] || !sizes[2] {
		t.Errorf("expected components of size 3 and 2, got %v", groups)
	}
}
