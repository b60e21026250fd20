package clustering

import (
	"context"
	"fmt"
	"time"

	"newsbrief/internal/core"
	"newsbrief/internal/logger"
	"newsbrief/internal/usage"
)

// FeedStore is the relational surface the engine needs. *store.Store
// satisfies it.
type FeedStore interface {
	GetFeed(id int64) (*core.Feed, error)
	FeedsByIDs(ids []int64) (map[int64]core.Feed, error)
	StoriesByHashes(hashes []string) (map[string]core.Story, error)
	ArchiveSubscriberIDs(feedID int64, limit int) ([]int64, error)
	FeedIDsForUsers(userIDs []int64, limit int) ([]int64, error)
}

// Engine computes story clusters for a feed and its related feeds.
type Engine struct {
	store    FeedStore
	storage  *Storage
	usage    *usage.Recorder
	searcher StorySearcher
	semantic bool
}

// NewEngine creates a clustering engine. searcher may be nil when the
// semantic tier is disabled.
func NewEngine(store FeedStore, storage *Storage, recorder *usage.Recorder, searcher StorySearcher, semanticEnabled bool) *Engine {
	return &Engine{
		store:    store,
		storage:  storage,
		usage:    recorder,
		searcher: searcher,
		semantic: semanticEnabled && searcher != nil,
	}
}

// ComputeStoryClusters clusters a feed's recent stories against the recent
// stories of feeds its archive subscribers also follow. Clustering is
// advisory: callers log errors but never mark the feed failed.
func (e *Engine) ComputeStoryClusters(ctx context.Context, feedID int64, now time.Time) error {
	started := time.Now()

	feed, err := e.store.GetFeed(feedID)
	if err != nil {
		return fmt.Errorf("clustering feed %d: %w", feedID, err)
	}
	if feed.ArchiveSubscribers <= 0 {
		logger.Debug("clustering skipped, no archive subscribers", "feed_id", feedID)
		return nil
	}

	targetHashes, err := e.storage.RecentStoryHashes(ctx, feedID, now)
	if err != nil {
		return err
	}
	if len(targetHashes) == 0 {
		return nil
	}

	// Skip the run when every recent story already belongs to a cluster.
	existing, err := e.storage.ClusterIDs(ctx, targetHashes)
	if err != nil {
		return err
	}
	unseen := make(map[string]bool, len(targetHashes))
	for _, h := range targetHashes {
		if _, ok := existing[h]; !ok {
			unseen[h] = true
		}
	}
	if len(unseen) == 0 {
		logger.Debug("clustering skipped, all stories clustered", "feed_id", feedID)
		return nil
	}

	subscribers, err := e.store.ArchiveSubscriberIDs(feedID, MaxArchiveSubscribers)
	if err != nil {
		return fmt.Errorf("clustering feed %d: %w", feedID, err)
	}
	relatedFeeds, err := e.store.FeedIDsForUsers(subscribers, MaxRelatedFeeds)
	if err != nil {
		return fmt.Errorf("clustering feed %d: %w", feedID, err)
	}
	hasTarget := false
	for _, id := range relatedFeeds {
		if id == feedID {
			hasTarget = true
			break
		}
	}
	if !hasTarget {
		relatedFeeds = append(relatedFeeds, feedID)
	}

	// The candidate pool is the trigger feed's unclustered stories plus
	// everything recent from the related feeds; re-admitting the trigger
	// feed's clustered hashes would silently reassign their pointers.
	hashSet := make(map[string]bool, len(unseen)*4)
	for h := range unseen {
		hashSet[h] = true
	}
	for _, related := range relatedFeeds {
		if related == feedID {
			continue
		}
		hashes, err := e.storage.RecentStoryHashes(ctx, related, now)
		if err != nil {
			return err
		}
		for _, h := range hashes {
			hashSet[h] = true
		}
	}

	allHashes := make([]string, 0, len(hashSet))
	for h := range hashSet {
		allHashes = append(allHashes, h)
	}
	storyMap, err := e.store.StoriesByHashes(allHashes)
	if err != nil {
		return fmt.Errorf("clustering feed %d: %w", feedID, err)
	}
	feeds, err := e.store.FeedsByIDs(relatedFeeds)
	if err != nil {
		return fmt.Errorf("clustering feed %d: %w", feedID, err)
	}

	stories := make([]core.Story, 0, len(storyMap))
	for _, s := range storyMap {
		stories = append(stories, s)
	}
	clusters := e.cluster(ctx, stories, feeds, relatedFeeds, unseen)
	if len(clusters) == 0 {
		return nil
	}

	if err := e.storage.StoreClusters(ctx, clusters); err != nil {
		return err
	}

	clusterIDs := make([]string, 0, len(clusters))
	var memberHashes []string
	for _, c := range clusters {
		clusterIDs = append(clusterIDs, c.ID)
		for _, m := range c.Members {
			memberHashes = append(memberHashes, m.StoryHash)
		}
	}
	if err := e.usage.RecordClusterIDs(ctx, now, clusterIDs, memberHashes); err != nil {
		logger.Warn("cluster usage recording failed", "feed_id", feedID, "error", err.Error())
	}
	if err := e.usage.RecordClusterTiming(ctx, now, time.Since(started)); err != nil {
		logger.Warn("cluster timing recording failed", "feed_id", feedID, "error", err.Error())
	}

	logger.Info("clustering complete", "feed_id", feedID,
		"clusters", len(clusters), "stories", len(stories),
		"elapsed_ms", time.Since(started).Milliseconds())
	return nil
}

// cluster runs the matching tiers over the candidate pool and validates the
// resulting components.
func (e *Engine) cluster(ctx context.Context, stories []core.Story, feeds map[int64]core.Feed, feedIDs []int64, targets map[string]bool) []Cluster {
	cands := newCandidates(stories, feeds)
	uf := newUnionFind(len(cands))

	findTitleClusters(cands, uf)
	findFuzzyClusters(cands, uf)

	if e.semantic {
		var queryIdx []int
		for i, c := range cands {
			if targets[c.story.StoryHash] {
				queryIdx = append(queryIdx, i)
			}
		}
		if err := findSemanticClusters(ctx, e.searcher, feedIDs, cands, queryIdx, uf); err != nil {
			logger.Warn("semantic clustering tier skipped", "error", err.Error())
		}
	}

	return validateClusters(cands, uf)
}

// ClusterStories computes clusters over an ad-hoc story set without touching
// Redis. Used by the cluster CLI command for dry runs.
func (e *Engine) ClusterStories(ctx context.Context, stories []core.Story, feeds map[int64]core.Feed) []Cluster {
	return e.cluster(ctx, stories, feeds, nil, nil)
}
