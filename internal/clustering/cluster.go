package clustering

import (
	"strings"
	"time"
	"unicode"

	"newsbrief/internal/core"
)

// Clustering limits. Clusters expire with their stories; the lookback keeps
// the candidate window bounded on high-volume feeds.
const (
	ClusterTTL           = 14 * 24 * time.Hour
	ClusterLookbackHours = 120
	MaxClusterSize       = 10
	TitleMinLength       = 10
	FuzzyMinWords        = 5
	FuzzyJaccardMin      = 0.6
	MaxWordPostings      = 50
)

// MaxArchiveSubscribers bounds how many subscribers seed the related-feed
// set; MaxRelatedFeeds bounds the cross-feed candidate pool.
const (
	MaxArchiveSubscribers = 50
	MaxRelatedFeeds       = 200
)

var stopwords = func() map[string]bool {
	const list = "a an the and or but in on at to for of is it by with from " +
		"as be was were are this that have has had do does did will would " +
		"could should may might can shall not no its his her their our your my been being"
	words := make(map[string]bool)
	for _, w := range strings.Fields(list) {
		words[w] = true
	}
	return words
}()

// Cluster is one validated story cluster: members sorted oldest first, the
// cluster id being the oldest member's story hash.
type Cluster struct {
	ID      string
	Members []core.Story
}

// candidate carries the per-story derived fields the tiers match on.
type candidate struct {
	story        core.Story
	resolvedFeed int64
	guid         string
	title        string
	words        []string
}

// NormalizeTitle lowercases a title, strips punctuation, and collapses
// whitespace. Titles that normalize to fewer than TitleMinLength characters
// never participate in exact-title matching.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// TitleSignificantWords returns the normalized title's words longer than two
// characters with stopwords removed, deduplicated, in first-seen order.
func TitleSignificantWords(title string) []string {
	fields := strings.Fields(NormalizeTitle(title))
	seen := make(map[string]bool, len(fields))
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) <= 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

// ResolveFeedID maps a feed to its original when the feed is a branched
// copy. Stories from branched copies count as the same source.
func ResolveFeedID(feedID int64, feeds map[int64]core.Feed) int64 {
	if f, ok := feeds[feedID]; ok && f.BranchFromFeed > 0 {
		return f.BranchFromFeed
	}
	return feedID
}

func newCandidates(stories []core.Story, feeds map[int64]core.Feed) []candidate {
	cands := make([]candidate, 0, len(stories))
	for _, s := range stories {
		feedID := s.FeedID
		if feedID == 0 {
			feedID = core.StoryFeedID(s.StoryHash)
		}
		cands = append(cands, candidate{
			story:        s,
			resolvedFeed: ResolveFeedID(feedID, feeds),
			guid:         core.GUIDHash(s.StoryHash),
			title:        NormalizeTitle(s.Title),
			words:        TitleSignificantWords(s.Title),
		})
	}
	return cands
}
