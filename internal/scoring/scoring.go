package scoring

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"newsbrief/internal/cache"
	"newsbrief/internal/clustering"
	"newsbrief/internal/core"
	"newsbrief/internal/logger"
)

// Candidate selection limits.
const (
	// MinUnreadCandidates is how many unread candidates the unread filter
	// needs before read stories drop out; below it the scorer falls back
	// to the mixed pool.
	MinUnreadCandidates = 3

	// MaxStoriesPerFeed caps any single feed's share of the briefing.
	MaxStoriesPerFeed = 3

	// LongReadMinWords is the floor for the long-read category; the
	// effective threshold is the larger of this and 3x the page median.
	LongReadMinWords = 500

	// FollowUpMinReads is how many recent reads from a feed mark it as one
	// the user is following.
	FollowUpMinReads = 2

	// FollowUpWindow bounds what counts as a recent read for follow-ups.
	FollowUpWindow = 7 * 24 * time.Hour
)

// Trending thresholds against the shared trending sorted sets.
const (
	trendingGlobalMin = 10
	trendingFeedMin   = 5
)

// Score weights per signal.
const (
	weightClassifier     = 4
	weightTrendingGlobal = 3
	weightTrendingFeed   = 2
	weightUnread         = 2
	weightFollowUp       = 1
)

// Read-state and trending keys. The reader maintains RS: sets as stories are
// read; the fetch pipeline maintains the trending zsets.
const (
	readStoriesKeyPrefix = "RS:"
	trendingGlobalKey    = "zTrend:global"
	trendingFeedPrefix   = "zTrend:feed:"
)

// ReadStoriesKey is the per-user per-feed set of read story hashes.
func ReadStoriesKey(userID, feedID int64) string {
	return readStoriesKeyPrefix + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(feedID, 10)
}

// TrendingFeedKey is the per-feed trending zset.
func TrendingFeedKey(feedID int64) string {
	return trendingFeedPrefix + strconv.FormatInt(feedID, 10)
}

// ScoreStore is the relational surface the scorer needs. *store.Store
// satisfies it.
type ScoreStore interface {
	ActiveFeedIDs(userID int64) ([]int64, error)
	FolderFeedIDs(userID int64, folder string) ([]int64, error)
	ClassifiersForUser(userID int64) ([]core.Classifier, error)
	StoriesByHashes(hashes []string) (map[string]core.Story, error)
}

// Scorer selects and ranks briefing candidates.
type Scorer struct {
	store    ScoreStore
	cache    *cache.Client
	clusters *clustering.Storage
}

// NewScorer creates a scorer over the shared store and Redis client.
func NewScorer(store ScoreStore, c *cache.Client, clusters *clustering.Storage) *Scorer {
	return &Scorer{store: store, cache: c, clusters: clusters}
}

// SelectBriefingStories picks up to maxStories candidates for the user's
// briefing from stories published since periodStart, scored and categorized.
// Trending lookups degrade to zero scores on failure; read-state failures
// propagate because the unread filter cannot be computed without them.
func (s *Scorer) SelectBriefingStories(ctx context.Context, userID int64, prefs core.BriefingPreferences, periodStart, now time.Time, maxStories int) ([]core.ScoredStory, error) {
	feedIDs, err := s.candidateFeeds(userID, prefs)
	if err != nil {
		return nil, err
	}
	if len(feedIDs) == 0 {
		return nil, nil
	}

	hashesByFeed, err := s.recentStories(ctx, feedIDs, periodStart, now)
	if err != nil {
		return nil, err
	}

	readState, err := s.readState(ctx, userID, hashesByFeed)
	if err != nil {
		return nil, fmt.Errorf("read state for user %d: %w", userID, err)
	}

	var allHashes []string
	for _, hashes := range hashesByFeed {
		allHashes = append(allHashes, hashes...)
	}
	if len(allHashes) == 0 {
		return nil, nil
	}

	stories, err := s.store.StoriesByHashes(allHashes)
	if err != nil {
		return nil, err
	}

	classifiers, err := s.store.ClassifiersForUser(userID)
	if err != nil {
		return nil, err
	}

	clusterIDs, err := s.clusters.ClusterIDs(ctx, allHashes)
	if err != nil {
		logger.Warn("cluster lookup failed during scoring", "user_id", userID, "error", err.Error())
		clusterIDs = map[string]string{}
	}

	sig := pageSignals{
		stories:           stories,
		readState:         readState,
		classifiers:       classifiers,
		clusterIDs:        clusterIDs,
		followUpFeeds:     followUpFeeds(hashesByFeed, readState, stories, now),
		longReadThreshold: longReadThreshold(stories),
	}
	sig.trendingGlobal, sig.trendingFeed = s.trendingScores(ctx, allHashes, stories)

	candidates, unreadCount := scoreCandidates(allHashes, prefs, sig)
	if prefs.ReadFilter != "all" {
		candidates = filterUnread(candidates, unreadCount)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return stories[candidates[i].StoryHash].Date.After(stories[candidates[j].StoryHash].Date)
	})

	perFeed := make(map[int64]int)
	var selected []core.ScoredStory
	for _, c := range candidates {
		feedID := stories[c.StoryHash].FeedID
		if perFeed[feedID] >= MaxStoriesPerFeed {
			continue
		}
		perFeed[feedID]++
		selected = append(selected, c)
		if maxStories > 0 && len(selected) >= maxStories {
			break
		}
	}
	return selected, nil
}

// pageSignals carries the per-page inputs the candidate loop scores from.
type pageSignals struct {
	stories           map[string]core.Story
	readState         map[string]bool
	classifiers       []core.Classifier
	clusterIDs        map[string]string
	trendingGlobal    map[string]float64
	trendingFeed      map[string]float64
	followUpFeeds     map[int64]bool
	longReadThreshold int
}

// scoreCandidates scores and categorizes every page story, returning the
// candidates and how many of them are unread.
func scoreCandidates(allHashes []string, prefs core.BriefingPreferences, sig pageSignals) ([]core.ScoredStory, int) {
	var candidates []core.ScoredStory
	unreadCount := 0
	for _, hash := range allHashes {
		story, ok := sig.stories[hash]
		if !ok {
			continue
		}
		isRead := sig.readState[hash]
		if !isRead {
			unreadCount++
		}

		matches := classifierMatches(sig.classifiers, story)
		customSection := matchCustomSections(prefs.CustomSectionPrompts, story)
		isTrendingGlobal := sig.trendingGlobal[hash] >= trendingGlobalMin
		isTrendingFeed := sig.trendingFeed[hash] >= trendingFeedMin
		_, isClustered := sig.clusterIDs[hash]
		isLongRead := story.WordCount >= sig.longReadThreshold
		isFollowUp := sig.followUpFeeds[story.FeedID]

		score := 0.0
		if len(matches) > 0 {
			score += weightClassifier
		}
		if isTrendingGlobal {
			score += weightTrendingGlobal
		}
		if isTrendingFeed {
			score += weightTrendingFeed
		}
		if !isRead {
			score += weightUnread
		}
		if isFollowUp {
			score += weightFollowUp
		}
		score += wordCountBucket(story.WordCount)

		category := core.SectionTrendingGlobal
		switch {
		case len(matches) > 0:
			category = core.SectionClassifierMatch
		case customSection != "":
			category = customSection
		case isClustered:
			category = core.SectionDuplicates
		case isLongRead:
			category = core.SectionLongRead
		case isFollowUp:
			category = core.SectionFollowUp
		case isTrendingFeed && !isRead:
			category = core.SectionTrendingUnread
		}

		candidates = append(candidates, core.ScoredStory{
			StoryHash:         hash,
			Score:             score,
			IsRead:            isRead,
			Category:          category,
			ContentWordCount:  story.WordCount,
			ClassifierMatches: matches,
		})
	}
	return candidates, unreadCount
}

// filterUnread drops read candidates under the unread filter. A pool with
// fewer than MinUnreadCandidates unread stories keeps the mixed list so the
// briefing still has material.
func filterUnread(candidates []core.ScoredStory, unreadCount int) []core.ScoredStory {
	if unreadCount < MinUnreadCandidates {
		return candidates
	}
	kept := candidates[:0]
	for _, c := range candidates {
		if !c.IsRead {
			kept = append(kept, c)
		}
	}
	return kept
}

// candidateFeeds resolves the user's source feeds, honoring the folder
// source filter and focus mode (focus keeps only feeds whose feed
// classifier is non-negative).
func (s *Scorer) candidateFeeds(userID int64, prefs core.BriefingPreferences) ([]int64, error) {
	var feedIDs []int64
	var err error
	if folder, ok := strings.CutPrefix(prefs.StorySources, "folder:"); ok {
		feedIDs, err = s.store.FolderFeedIDs(userID, folder)
	} else {
		feedIDs, err = s.store.ActiveFeedIDs(userID)
	}
	if err != nil {
		return nil, err
	}

	if prefs.ReadFilter != "focus" {
		return feedIDs, nil
	}

	classifiers, err := s.store.ClassifiersForUser(userID)
	if err != nil {
		return nil, err
	}
	negative := make(map[int64]bool)
	for _, c := range classifiers {
		if c.Kind == core.ClassifierFeed && c.Score < 0 {
			negative[c.FeedID] = true
		}
	}
	var kept []int64
	for _, id := range feedIDs {
		if !negative[id] {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

func (s *Scorer) recentStories(ctx context.Context, feedIDs []int64, periodStart, now time.Time) (map[int64][]string, error) {
	out := make(map[int64][]string, len(feedIDs))
	for _, feedID := range feedIDs {
		hashes, err := s.cache.Redis().ZRangeByScore(ctx, clustering.FeedStoriesKey(feedID), &redis.ZRangeBy{
			Min: strconv.FormatInt(periodStart.Unix(), 10),
			Max: strconv.FormatInt(now.Unix(), 10),
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("recent stories for feed %d: %w", feedID, err)
		}
		if len(hashes) > 0 {
			out[feedID] = hashes
		}
	}
	return out, nil
}

func (s *Scorer) readState(ctx context.Context, userID int64, hashesByFeed map[int64][]string) (map[string]bool, error) {
	read := make(map[string]bool)
	for feedID, hashes := range hashesByFeed {
		members := make([]string, len(hashes))
		copy(members, hashes)
		flags, err := s.cache.Redis().SMIsMember(ctx, ReadStoriesKey(userID, feedID), toAnySlice(members)...).Result()
		if err != nil {
			return nil, err
		}
		for i, isRead := range flags {
			if isRead {
				read[hashes[i]] = true
			}
		}
	}
	return read, nil
}

// trendingScores reads the global and per-feed trending zsets. Failures log
// and leave every score at zero.
func (s *Scorer) trendingScores(ctx context.Context, hashes []string, stories map[string]core.Story) (map[string]float64, map[string]float64) {
	global := make(map[string]float64, len(hashes))
	perFeed := make(map[string]float64, len(hashes))

	pipe := s.cache.Redis().Pipeline()
	globalCmds := make([]*redis.FloatCmd, len(hashes))
	feedCmds := make([]*redis.FloatCmd, len(hashes))
	for i, hash := range hashes {
		globalCmds[i] = pipe.ZScore(ctx, trendingGlobalKey, hash)
		if story, ok := stories[hash]; ok {
			feedCmds[i] = pipe.ZScore(ctx, TrendingFeedKey(story.FeedID), hash)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		logger.Warn("trending lookup failed, scoring without trending", "error", err.Error())
		return global, perFeed
	}

	for i, hash := range hashes {
		if score, err := globalCmds[i].Result(); err == nil {
			global[hash] = score
		}
		if feedCmds[i] != nil {
			if score, err := feedCmds[i].Result(); err == nil {
				perFeed[hash] = score
			}
		}
	}
	return global, perFeed
}

// followUpFeeds marks feeds the user has read at least FollowUpMinReads
// recent stories from.
func followUpFeeds(hashesByFeed map[int64][]string, readState map[string]bool, stories map[string]core.Story, now time.Time) map[int64]bool {
	cutoff := now.Add(-FollowUpWindow)
	counts := make(map[int64]int)
	for feedID, hashes := range hashesByFeed {
		for _, hash := range hashes {
			if !readState[hash] {
				continue
			}
			if story, ok := stories[hash]; ok && story.Date.After(cutoff) {
				counts[feedID]++
			}
		}
	}
	out := make(map[int64]bool, len(counts))
	for feedID, n := range counts {
		if n >= FollowUpMinReads {
			out[feedID] = true
		}
	}
	return out
}

// longReadThreshold is max(LongReadMinWords, 3x the median word count of the
// candidate pool).
func longReadThreshold(stories map[string]core.Story) int {
	if len(stories) == 0 {
		return LongReadMinWords
	}
	counts := make([]int, 0, len(stories))
	for _, s := range stories {
		counts = append(counts, s.WordCount)
	}
	sort.Ints(counts)
	median := counts[len(counts)/2]
	if t := median * 3; t > LongReadMinWords {
		return t
	}
	return LongReadMinWords
}

// wordCountBucket contributes 0 points for shorts, 1 for mid-length
// stories, 2 for substantial ones.
func wordCountBucket(words int) float64 {
	switch {
	case words >= 1000:
		return 2
	case words >= 300:
		return 1
	default:
		return 0
	}
}

// classifierMatches returns human-readable labels for every positive
// classifier the story trips. Any negative classifier hit disqualifies the
// story from the classifier category.
func classifierMatches(classifiers []core.Classifier, story core.Story) []string {
	var matches []string
	titleLower := strings.ToLower(story.Title)
	for _, c := range classifiers {
		hit := false
		switch c.Kind {
		case core.ClassifierFeed:
			hit = c.FeedID == story.FeedID
		case core.ClassifierAuthor:
			hit = c.Value != "" && strings.EqualFold(c.Value, story.Author)
		case core.ClassifierTitle:
			hit = c.Value != "" && strings.Contains(titleLower, strings.ToLower(c.Value))
		case core.ClassifierTag:
			for _, tag := range story.Tags {
				if strings.EqualFold(tag, c.Value) {
					hit = true
					break
				}
			}
		}
		if !hit {
			continue
		}
		if c.Score < 0 {
			return nil
		}
		if c.Score > 0 {
			matches = append(matches, c.Kind+":"+c.Value)
		}
	}
	return matches
}

// matchCustomSections returns the first custom section whose keyword prompt
// appears in the story title or content, or "".
func matchCustomSections(prompts []string, story core.Story) string {
	if len(prompts) == 0 {
		return ""
	}
	haystack := strings.ToLower(story.Title + " " + story.Content)
	for i, prompt := range prompts {
		if i >= core.MaxCustomSections {
			break
		}
		prompt = strings.TrimSpace(strings.ToLower(prompt))
		if prompt == "" {
			continue
		}
		if strings.Contains(haystack, prompt) {
			return core.CustomSectionKey(i + 1)
		}
	}
	return ""
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
