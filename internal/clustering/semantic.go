package clustering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Semantic tier query limits.
const (
	semanticQueryMaxChars = 2000
	semanticMinScore      = 30
	semanticMaxResults    = 5
)

// StorySearcher finds stories similar to a query text within a set of feeds.
// The production implementation talks to the search service; tests supply a
// fake.
type StorySearcher interface {
	MoreLikeThis(ctx context.Context, feedIDs []int64, queryText string, maxResults int) ([]string, error)
}

// MoreLikeThisClient is the HTTP StorySearcher backed by the search
// service's more-like-this endpoint.
type MoreLikeThisClient struct {
	baseURL string
	client  *http.Client
}

// NewMoreLikeThisClient creates a client for the search service at baseURL.
func NewMoreLikeThisClient(baseURL string, timeout time.Duration) *MoreLikeThisClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MoreLikeThisClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type moreLikeThisRequest struct {
	Query      string  `json:"query"`
	FeedIDs    []int64 `json:"feed_ids"`
	MaxResults int     `json:"max_results"`
	MinScore   int     `json:"min_score"`
}

type moreLikeThisResponse struct {
	StoryHashes []string `json:"story_hashes"`
}

// MoreLikeThis queries the search service for stories similar to queryText.
// The query is truncated to the service's input limit before sending.
func (c *MoreLikeThisClient) MoreLikeThis(ctx context.Context, feedIDs []int64, queryText string, maxResults int) ([]string, error) {
	if len(queryText) > semanticQueryMaxChars {
		queryText = queryText[:semanticQueryMaxChars]
	}
	if maxResults <= 0 {
		maxResults = semanticMaxResults
	}

	body, err := json.Marshal(moreLikeThisRequest{
		Query:      queryText,
		FeedIDs:    feedIDs,
		MaxResults: maxResults,
		MinScore:   semanticMinScore,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal more_like_this request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/more_like_this", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build more_like_this request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("more_like_this request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("more_like_this request: status %d", resp.StatusCode)
	}

	var parsed moreLikeThisResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode more_like_this response: %w", err)
	}
	return parsed.StoryHashes, nil
}

// findSemanticClusters unions candidates the search service reports as
// similar. Only candidates not already joined to a component are queried;
// returned hashes outside the candidate pool are ignored.
func findSemanticClusters(ctx context.Context, searcher StorySearcher, feedIDs []int64, cands []candidate, queryIdx []int, uf *unionFind) error {
	byHash := make(map[string]int, len(cands))
	for i, c := range cands {
		byHash[c.story.StoryHash] = i
	}

	for _, i := range queryIdx {
		c := cands[i]
		if uf.size[uf.find(i)] > 1 {
			continue
		}
		if c.story.Title == "" {
			continue
		}
		related, err := searcher.MoreLikeThis(ctx, feedIDs, c.story.Title, semanticMaxResults)
		if err != nil {
			// A failing search service disables the tier for this run.
			return err
		}
		for _, hash := range related {
			j, ok := byHash[hash]
			if !ok || j == i {
				continue
			}
			if cands[j].guid == c.guid || cands[j].resolvedFeed == c.resolvedFeed {
				continue
			}
			uf.union(i, j)
		}
	}
	return nil
}
