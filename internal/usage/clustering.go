package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"newsbrief/internal/cache"
)

// Clustering usage keys live 35 days so a month of history is always
// available for aggregation.
const clusteringTTL = 35 * 24 * time.Hour

// Recorder writes usage counters to Redis.
type Recorder struct {
	cache *cache.Client
}

// NewRecorder creates a usage recorder over the shared Redis client.
func NewRecorder(c *cache.Client) *Recorder {
	return &Recorder{cache: c}
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// clusteringDailyKey is one day's clustering counter:
// clustering:<date>:<name>.
func clusteringDailyKey(date, name string) string {
	return "clustering:" + date + ":" + name
}

// clusteringAlltimeKey is the unbounded cumulative counterpart of a daily
// counter.
func clusteringAlltimeKey(name string) string {
	return "clustering:alltime:" + name
}

// RecordClusterIDs records the cluster ids and member story hashes produced
// by one clustering run into today's tracking sets.
func (r *Recorder) RecordClusterIDs(ctx context.Context, now time.Time, clusterIDs, storyHashes []string) error {
	if len(clusterIDs) == 0 {
		return nil
	}
	date := dateKey(now)
	cidsKey := "clustering:cids:" + date
	sidsKey := "clustering:sids:" + date

	pipe := r.cache.Redis().Pipeline()
	pipe.SAdd(ctx, cidsKey, toAnySlice(clusterIDs)...)
	pipe.Expire(ctx, cidsKey, clusteringTTL)
	pipe.IncrBy(ctx, clusteringAlltimeKey("clusters"), int64(len(clusterIDs)))
	if len(storyHashes) > 0 {
		pipe.SAdd(ctx, sidsKey, toAnySlice(storyHashes)...)
		pipe.Expire(ctx, sidsKey, clusteringTTL)
		pipe.IncrBy(ctx, clusteringAlltimeKey("stories"), int64(len(storyHashes)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record cluster ids: %w", err)
	}
	return nil
}

// RecordClusterTiming accumulates one clustering run's wall time.
func (r *Recorder) RecordClusterTiming(ctx context.Context, now time.Time, elapsed time.Duration) error {
	date := dateKey(now)
	totalKey := clusteringDailyKey(date, "cluster_time_total_ms")
	countKey := clusteringDailyKey(date, "cluster_time_count")

	pipe := r.cache.Redis().Pipeline()
	pipe.IncrBy(ctx, totalKey, elapsed.Milliseconds())
	pipe.Expire(ctx, totalKey, clusteringTTL)
	pipe.Incr(ctx, countKey)
	pipe.Expire(ctx, countKey, clusteringTTL)
	pipe.IncrBy(ctx, clusteringAlltimeKey("cluster_time_total_ms"), elapsed.Milliseconds())
	pipe.Incr(ctx, clusteringAlltimeKey("cluster_time_count"))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record cluster timing: %w", err)
	}
	return nil
}

// RecordMarkReadExpanded counts stories auto-marked read through cluster
// expansion.
func (r *Recorder) RecordMarkReadExpanded(ctx context.Context, now time.Time, count int) error {
	if count <= 0 {
		return nil
	}
	key := clusteringDailyKey(dateKey(now), "mark_read_expanded")

	pipe := r.cache.Redis().Pipeline()
	pipe.IncrBy(ctx, key, int64(count))
	pipe.Expire(ctx, key, clusteringTTL)
	pipe.IncrBy(ctx, clusteringAlltimeKey("mark_read_expanded"), int64(count))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record mark_read_expanded: %w", err)
	}
	return nil
}

// ClusteringStats aggregates clustering usage over the trailing days.
type ClusteringStats struct {
	Clusters           int64
	ClusteredStories   int64
	MarkReadExpanded   int64
	ClusterTimeTotalMS int64
	ClusterTimeCount   int64
}

// ClusteringUsage unions the daily tracking sets over the trailing window
// through a throwaway destination key, then collects the scalar counters
// with one MGET.
func (r *Recorder) ClusteringUsage(ctx context.Context, now time.Time, days int) (*ClusteringStats, error) {
	if days <= 0 {
		days = 1
	}

	var cidKeys, sidKeys, counterKeys []string
	for i := 0; i < days; i++ {
		date := dateKey(now.AddDate(0, 0, -i))
		cidKeys = append(cidKeys, "clustering:cids:"+date)
		sidKeys = append(sidKeys, "clustering:sids:"+date)
		counterKeys = append(counterKeys,
			clusteringDailyKey(date, "mark_read_expanded"),
			clusteringDailyKey(date, "cluster_time_total_ms"),
			clusteringDailyKey(date, "cluster_time_count"))
	}

	stats := &ClusteringStats{}
	rdb := r.cache.Redis()

	tempKey := "clustering:union:" + uuid.NewString()
	if err := rdb.SUnionStore(ctx, tempKey, cidKeys...).Err(); err != nil {
		return nil, fmt.Errorf("clustering usage union: %w", err)
	}
	stats.Clusters, _ = rdb.SCard(ctx, tempKey).Result()
	_ = rdb.Del(ctx, tempKey).Err()

	if err := rdb.SUnionStore(ctx, tempKey, sidKeys...).Err(); err != nil {
		return nil, fmt.Errorf("clustering usage union: %w", err)
	}
	stats.ClusteredStories, _ = rdb.SCard(ctx, tempKey).Result()
	_ = rdb.Del(ctx, tempKey).Err()

	values, err := rdb.MGet(ctx, counterKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("clustering usage counters: %w", err)
	}
	for i, v := range values {
		n := parseCounter(v)
		switch i % 3 {
		case 0:
			stats.MarkReadExpanded += n
		case 1:
			stats.ClusterTimeTotalMS += n
		case 2:
			stats.ClusterTimeCount += n
		}
	}
	return stats, nil
}

func parseCounter(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
