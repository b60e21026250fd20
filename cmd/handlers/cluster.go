/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewClusterCmd creates the cluster command that recomputes story clusters
// for a feed, the same computation the fetcher triggers after new stories
// arrive.
func NewClusterCmd() *cobra.Command {
	var feedID int64

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Recompute cross-feed story clusters for a feed",
		Long: `Recompute story clusters for a feed against the related feeds its
archive subscribers read. Clusters land in Redis where the briefing
scorer and the reader's duplicate-folding pick them up.

Feeds without archive subscribers are skipped; clustering only runs
where someone can see the result.

Example:
  newsbrief cluster --feed 1234`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if feedID <= 0 {
				return fmt.Errorf("--feed is required")
			}
			return runCluster(cmd.Context(), feedID)
		},
	}

	cmd.Flags().Int64Var(&feedID, "feed", 0, "Feed ID to cluster")

	return cmd
}

func runCluster(ctx context.Context, feedID int64) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.engine.ComputeStoryClusters(ctx, feedID, time.Now())
}
