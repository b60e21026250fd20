package clustering

import (
	"context"
	"testing"
	"time"

	"newsbrief/internal/core"
)

type fakeClusterReader struct {
	ids     map[string]string
	members map[string][]string
}

func (f *fakeClusterReader) ClusterIDs(ctx context.Context, storyHashes []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, h := range storyHashes {
		if id, ok := f.ids[h]; ok {
			out[h] = id
		}
	}
	return out, nil
}

func (f *fakeClusterReader) ClusterMembers(ctx context.Context, clusterID string) ([]string, error) {
	return f.members[clusterID], nil
}

type fakeStoryLoader struct {
	stories map[string]core.Story
	feeds   map[int64]core.Feed
}

func (f *fakeStoryLoader) StoriesByHashes(hashes []string) (map[string]core.Story, error) {
	out := make(map[string]core.Story)
	for _, h := range hashes {
		if s, ok := f.stories[h]; ok {
			out[h] = s
		}
	}
	return out, nil
}

func (f *fakeStoryLoader) FeedsByIDs(ids []int64) (map[int64]core.Feed, error) {
	return f.feeds, nil
}

func pageStory(feedID int64, guid, title string, score float64) core.PageStory {
	return core.PageStory{
		Story: core.Story{
			StoryHash: testStory(feedID, guid, title, time.Time{}).StoryHash,
			FeedID:    feedID,
			Title:     title,
			Date:      time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		},
		Score: score,
	}
}

func TestApplyClustering_RepresentativeAndSidecar(t *testing.T) {
	// Stories 1:aaa and 2:bbb share a cluster; 3:ccc is an off-page member
	// from a subscribed feed; 9:zzz is unclustered.
	page := []core.PageStory{
		pageStory(1, "aaa", "Launch day", 4),
		pageStory(2, "bbb", "Launch day", 9),
		pageStory(9, "zzz", "Unrelated", 1),
	}
	reader := &fakeClusterReader{
		ids: map[string]string{"1:aaa": "1:aaa", "2:bbb": "1:aaa"},
		members: map[string][]string{
			"1:aaa": {"1:aaa", "2:bbb", "3:ccc"},
		},
	}
	loader := &fakeStoryLoader{
		stories: map[string]core.Story{
			"3:ccc": {StoryHash: "3:ccc", FeedID: 3, Title: "Launch day elsewhere",
				Date: time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)},
		},
		feeds: map[int64]core.Feed{
			1: {ID: 1, Title: "Feed One"},
			2: {ID: 2, Title: "Feed Two"},
			3: {ID: 3, Title: "Feed Three"},
		},
	}

	out, err := applyClustering(context.Background(), reader, page, []int64{1, 2, 3}, loader)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 page stories after collapse, got %d", len(out))
	}

	// The higher-scored member represents the cluster.
	rep := out[0]
	if rep.StoryHash != "2:bbb" {
		t.Fatalf("representative = %s, want the highest-scored member 2:bbb", rep.StoryHash)
	}
	if len(rep.ClusterStories) != 2 {
		t.Fatalf("sidecar = %v, want the collapsed page member and the off-page member", rep.ClusterStories)
	}
	byHash := make(map[string]core.ClusterStory)
	for _, cs := range rep.ClusterStories {
		byHash[cs.StoryHash] = cs
	}
	if _, ok := byHash["1:aaa"]; !ok {
		t.Error("collapsed page member missing from sidecar")
	}
	off, ok := byHash["3:ccc"]
	if !ok {
		t.Fatal("off-page member missing from sidecar")
	}
	if off.FeedTitle != "Feed Three" {
		t.Errorf("off-page sidecar feed title = %q", off.FeedTitle)
	}

	// The unclustered story passes through untouched.
	if out[1].StoryHash != "9:zzz" || len(out[1].ClusterStories) != 0 {
		t.Errorf("unclustered story altered: %+v", out[1])
	}
}

func TestApplyClustering_UnsubscribedOffPageMembersDrop(t *testing.T) {
	page := []core.PageStory{
		pageStory(1, "aaa", "Launch day", 4),
		pageStory(2, "bbb", "Launch day", 9),
	}
	reader := &fakeClusterReader{
		ids: map[string]string{"1:aaa": "1:aaa", "2:bbb": "1:aaa"},
		members: map[string][]string{
			"1:aaa": {"1:aaa", "2:bbb", "3:ccc"},
		},
	}
	loader := &fakeStoryLoader{
		stories: map[string]core.Story{
			"3:ccc": {StoryHash: "3:ccc", FeedID: 3, Title: "Launch day elsewhere"},
		},
		feeds: map[int64]core.Feed{1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}},
	}

	// Feed 3 is not in the user's subscriptions.
	out, err := applyClustering(context.Background(), reader, page, []int64{1, 2}, loader)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 representative, got %d", len(out))
	}
	for _, cs := range out[0].ClusterStories {
		if cs.StoryHash == "3:ccc" {
			t.Error("unsubscribed off-page member should not appear in the sidecar")
		}
	}
}

func TestApplyClustering_SidecarDedupsByGUID(t *testing.T) {
	// The off-page member 7:bbb shares its GUID with the collapsed page
	// member 2:bbb and must not appear twice.
	page := []core.PageStory{
		pageStory(1, "aaa", "Launch day", 4),
		pageStory(2, "bbb", "Launch day", 9),
	}
	reader := &fakeClusterReader{
		ids: map[string]string{"1:aaa": "1:aaa", "2:bbb": "1:aaa"},
		members: map[string][]string{
			"1:aaa": {"1:aaa", "2:bbb", "7:bbb"},
		},
	}
	loader := &fakeStoryLoader{
		stories: map[string]core.Story{
			"7:bbb": {StoryHash: "7:bbb", FeedID: 7, Title: "Launch day"},
		},
		feeds: map[int64]core.Feed{1: {ID: 1}, 2: {ID: 2}, 7: {ID: 7}},
	}

	out, err := applyClustering(context.Background(), reader, page, []int64{1, 2, 7}, loader)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 representative, got %d", len(out))
	}
	seen := map[string]bool{core.GUIDHash(out[0].StoryHash): true}
	for _, cs := range out[0].ClusterStories {
		guid := core.GUIDHash(cs.StoryHash)
		if seen[guid] {
			t.Errorf("sidecar carries duplicate guid %q", guid)
		}
		seen[guid] = true
	}
}
