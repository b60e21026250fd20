package clustering

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"newsbrief/internal/cache"
	"newsbrief/internal/core"
)

// Redis key prefixes for cluster storage and per-feed story timelines.
const (
	storyClusterKeyPrefix = "sCL:"
	clusterKeyPrefix      = "zCL:"
	feedStoriesKeyPrefix  = "zF:"
)

// StoryClusterKey is the string key mapping a story hash to its cluster id.
func StoryClusterKey(storyHash string) string {
	return storyClusterKeyPrefix + storyHash
}

// ClusterKey is the sorted-set key holding a cluster's member hashes.
func ClusterKey(clusterID string) string {
	return clusterKeyPrefix + clusterID
}

// FeedStoriesKey is the per-feed sorted set of story hashes scored by story
// timestamp, maintained by the fetcher.
func FeedStoriesKey(feedID int64) string {
	return feedStoriesKeyPrefix + strconv.FormatInt(feedID, 10)
}

// Storage reads and writes clusters in Redis.
type Storage struct {
	cache *cache.Client
}

// NewStorage creates cluster storage over the shared Redis client.
func NewStorage(c *cache.Client) *Storage {
	return &Storage{cache: c}
}

// RecentStoryHashes reads a feed's story hashes within the lookback window,
// newest last.
func (s *Storage) RecentStoryHashes(ctx context.Context, feedID int64, now time.Time) ([]string, error) {
	min := now.Add(-ClusterLookbackHours * time.Hour)
	hashes, err := s.cache.Redis().ZRangeByScore(ctx, FeedStoriesKey(feedID), &redis.ZRangeBy{
		Min: strconv.FormatInt(min.Unix(), 10),
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("recent stories for feed %d: %w", feedID, err)
	}
	return hashes, nil
}

// ClusterIDs fetches cluster pointers for a batch of story hashes in one
// pipeline. Unclustered hashes map to the empty string.
func (s *Storage) ClusterIDs(ctx context.Context, storyHashes []string) (map[string]string, error) {
	out := make(map[string]string, len(storyHashes))
	if len(storyHashes) == 0 {
		return out, nil
	}

	pipe := s.cache.Redis().Pipeline()
	cmds := make([]*redis.StringCmd, len(storyHashes))
	for i, hash := range storyHashes {
		cmds[i] = pipe.Get(ctx, StoryClusterKey(hash))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("fetch cluster ids: %w", err)
	}

	for i, cmd := range cmds {
		id, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch cluster id for %s: %w", storyHashes[i], err)
		}
		out[storyHashes[i]] = id
	}
	return out, nil
}

// ClusterMembers returns a cluster's member hashes.
func (s *Storage) ClusterMembers(ctx context.Context, clusterID string) ([]string, error) {
	members, err := s.cache.Redis().ZRange(ctx, ClusterKey(clusterID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cluster members %s: %w", clusterID, err)
	}
	return members, nil
}

// StoreClusters writes clusters in one pipeline: each member gets a pointer
// key with the cluster TTL, and each cluster's member set is rebuilt from
// scratch so stale members from a previous run disappear.
func (s *Storage) StoreClusters(ctx context.Context, clusters []Cluster) error {
	if len(clusters) == 0 {
		return nil
	}

	pipe := s.cache.Redis().Pipeline()
	for _, cluster := range clusters {
		key := ClusterKey(cluster.ID)
		pipe.Del(ctx, key)
		for _, member := range cluster.Members {
			pipe.Set(ctx, StoryClusterKey(member.StoryHash), cluster.ID, ClusterTTL)
			pipe.ZAdd(ctx, key, redis.Z{Score: 0, Member: member.StoryHash})
		}
		pipe.Expire(ctx, key, ClusterTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store clusters: %w", err)
	}
	return nil
}

// ApplyClusteringToStories collapses clustered stories on a scored page. For
// each cluster present, the highest-scored page story stays as the
// representative and gains a ClusterStories sidecar; the other page members
// drop off. Sidecar entries dedup by GUID (seeded with the representative's
// own GUID) and off-page members only appear when the user subscribes to
// their feed.
func (s *Storage) ApplyClusteringToStories(ctx context.Context, page []core.PageStory, userFeedIDs []int64, stories StoryLoader) ([]core.PageStory, error) {
	return applyClustering(ctx, s, page, userFeedIDs, stories)
}

// clusterReader is the cluster-pointer surface the page collapse reads.
// *Storage satisfies it.
type clusterReader interface {
	ClusterIDs(ctx context.Context, storyHashes []string) (map[string]string, error)
	ClusterMembers(ctx context.Context, clusterID string) ([]string, error)
}

func applyClustering(ctx context.Context, clusters clusterReader, page []core.PageStory, userFeedIDs []int64, stories StoryLoader) ([]core.PageStory, error) {
	if len(page) == 0 {
		return page, nil
	}

	hashes := make([]string, len(page))
	for i, p := range page {
		hashes[i] = p.StoryHash
	}
	clusterIDs, err := clusters.ClusterIDs(ctx, hashes)
	if err != nil {
		return nil, err
	}
	if len(clusterIDs) == 0 {
		return page, nil
	}

	subscribed := make(map[int64]bool, len(userFeedIDs))
	for _, id := range userFeedIDs {
		subscribed[id] = true
	}

	// Pick each cluster's representative: the highest-scored story on the
	// page, ties to the earlier page position.
	repByCluster := make(map[string]int)
	for i, p := range page {
		cid, ok := clusterIDs[p.StoryHash]
		if !ok {
			continue
		}
		if j, seen := repByCluster[cid]; !seen || p.Score > page[j].Score {
			repByCluster[cid] = i
		}
	}

	// Gather members and the off-page hashes whose metadata we need.
	membersByCluster := make(map[string][]string, len(repByCluster))
	onPage := make(map[string]bool, len(page))
	for _, p := range page {
		onPage[p.StoryHash] = true
	}
	var offPage []string
	for cid := range repByCluster {
		members, err := clusters.ClusterMembers(ctx, cid)
		if err != nil {
			return nil, err
		}
		membersByCluster[cid] = members
		for _, m := range members {
			if !onPage[m] {
				offPage = append(offPage, m)
			}
		}
	}

	offPageStories, err := stories.StoriesByHashes(offPage)
	if err != nil {
		return nil, err
	}

	feedIDSet := make(map[int64]bool)
	for _, p := range page {
		feedIDSet[p.FeedID] = true
	}
	for _, meta := range offPageStories {
		feedIDSet[meta.FeedID] = true
	}
	feedIDs := make([]int64, 0, len(feedIDSet))
	for id := range feedIDSet {
		feedIDs = append(feedIDs, id)
	}
	feeds, err := stories.FeedsByIDs(feedIDs)
	if err != nil {
		return nil, err
	}

	byHash := make(map[string]core.PageStory, len(page))
	for _, p := range page {
		byHash[p.StoryHash] = p
	}

	out := make([]core.PageStory, 0, len(page))
	for i, p := range page {
		cid, clustered := clusterIDs[p.StoryHash]
		if !clustered {
			out = append(out, p)
			continue
		}
		if repByCluster[cid] != i {
			continue
		}

		rep := p
		seenGUIDs := map[string]bool{core.GUIDHash(rep.StoryHash): true}
		for _, member := range membersByCluster[cid] {
			if member == rep.StoryHash {
				continue
			}
			guid := core.GUIDHash(member)
			if seenGUIDs[guid] {
				continue
			}

			var story core.Story
			if other, ok := byHash[member]; ok {
				story = other.Story
			} else if meta, ok := offPageStories[member]; ok {
				if !subscribed[meta.FeedID] {
					continue
				}
				story = meta
			} else {
				continue
			}

			seenGUIDs[guid] = true
			rep.ClusterStories = append(rep.ClusterStories, core.ClusterStory{
				StoryHash:      story.StoryHash,
				StoryFeedID:    story.FeedID,
				StoryTitle:     story.Title,
				StoryDate:      story.Date.UTC().Format("2006-01-02 15:04:05"),
				StoryTimestamp: strconv.FormatInt(story.Date.Unix(), 10),
				FeedTitle:      feeds[story.FeedID].Title,
			})
		}
		out = append(out, rep)
	}

	return out, nil
}

// StoryLoader fetches story and feed metadata for cluster sidecars.
// *store.Store satisfies it.
type StoryLoader interface {
	StoriesByHashes(hashes []string) (map[string]core.Story, error)
	FeedsByIDs(ids []int64) (map[int64]core.Feed, error)
}
