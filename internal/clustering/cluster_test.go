package clustering

import (
	"reflect"
	"testing"

	"newsbrief/internal/core"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello world"},
		{"  Multiple   spaces\there ", "multiple spaces here"},
		{"UPPER lower MiXeD", "upper lower mixed"},
		{"C++ vs. Go: a comparison", "c vs go a comparison"},
		{"2024 Budget Report", "2024 budget report"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitleSignificantWords(t *testing.T) {
	got := TitleSignificantWords("The Quick Brown Fox and the Quick Dog")
	want := []string{"quick", "brown", "fox", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TitleSignificantWords = %v, want %v", got, want)
	}

	// All stopwords
	if got := TitleSignificantWords("the and of a"); len(got) != 0 {
		t.Errorf("expected no significant words, got %v", got)
	}

	// One- and two-character words are never significant.
	got = TitleSignificantWords("US AI war era now big data")
	want = []string{"war", "era", "now", "big", "data"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("short words should be dropped: got %v, want %v", got, want)
	}
}

func TestResolveFeedID(t *testing.T) {
	feeds := map[int64]core.Feed{
		10: {ID: 10, BranchFromFeed: 3},
		20: {ID: 20},
	}
	if got := ResolveFeedID(10, feeds); got != 3 {
		t.Errorf("branched feed should resolve to original, got %d", got)
	}
	if got := ResolveFeedID(20, feeds); got != 20 {
		t.Errorf("original feed should resolve to itself, got %d", got)
	}
	if got := ResolveFeedID(99, feeds); got != 99 {
		t.Errorf("unknown feed should resolve to itself, got %d", got)
	}
}

func TestNewCandidatesFallsBackToHashFeedID(t *testing.T) {
	stories := []core.Story{
		{StoryHash: "42:deadbeef", Title: "A title for the test"},
	}
	cands := newCandidates(stories, nil)
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].resolvedFeed != 42 {
		t.Errorf("resolvedFeed = %d, want 42 (from story hash prefix)", cands[0].resolvedFeed)
	}
	if cands[0].guid != "deadbeef" {
		t.Errorf("guid = %q, want deadbeef", cands[0].guid)
	}
}
