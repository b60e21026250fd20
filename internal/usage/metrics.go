package usage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MetricsText renders the clustering and LLM aggregates for the trailing
// window as a Prometheus-style text exposition.
func (r *Recorder) MetricsText(ctx context.Context, now time.Time, days int) (string, error) {
	clustering, err := r.ClusteringUsage(ctx, now, days)
	if err != nil {
		return "", err
	}
	llm, err := r.LLMUsage(ctx, now, days)
	if err != nil {
		return "", err
	}

	window := fmt.Sprintf("%dd", days)
	var b strings.Builder
	write := func(name string, value int64) {
		fmt.Fprintf(&b, "%s{window=%q} %d\n", name, window, value)
	}

	write("newsbrief_clusters_total", clustering.Clusters)
	write("newsbrief_clustered_stories_total", clustering.ClusteredStories)
	write("newsbrief_mark_read_expanded_total", clustering.MarkReadExpanded)
	write("newsbrief_cluster_time_ms_total", clustering.ClusterTimeTotalMS)
	write("newsbrief_cluster_runs_total", clustering.ClusterTimeCount)
	write("newsbrief_llm_tokens_total", llm.Tokens)
	write("newsbrief_llm_cost_microusd_total", llm.CostMicroUSD)
	write("newsbrief_llm_requests_total", llm.Requests)
	write("newsbrief_llm_active_users", llm.ActiveUsers)

	return b.String(), nil
}
