package usage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LLM cost keys expire 60 days out so monthly reporting has a full prior
// month plus slack.
const llmTTLDays = 60

// LLMCall describes one completed model invocation for cost accounting.
// CostUSD is converted to integer micro-dollars before storage so the
// counters stay INCRBY-able.
type LLMCall struct {
	Provider     string
	Model        string
	Feature      string
	UserID       int64
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// sanitizeModelKey makes a model id safe inside a colon-delimited key.
func sanitizeModelKey(model string) string {
	return strings.NewReplacer("-", "_", ".", "_", ":", "_").Replace(model)
}

// llmDailyKey is one day's counter for a single dimension:
// LLM:<date>:<dim>:<name>:<counter>.
func llmDailyKey(date, dim, name, counter string) string {
	return "LLM:" + date + ":" + dim + ":" + name + ":" + counter
}

// llmTotalKey is one day's cross-dimension total: LLM:<date>:total:<counter>.
func llmTotalKey(date, counter string) string {
	return "LLM:" + date + ":total:" + counter
}

// llmUsersKey is the day's distinct-user set.
func llmUsersKey(date string) string {
	return "LLM:" + date + ":users"
}

// MicroUSD converts a dollar amount to integer micro-dollars.
func MicroUSD(usd float64) int64 {
	return int64(usd*1e6 + 0.5)
}

// RecordLLMCall bumps the per-provider/feature/model daily counters, the
// daily totals, the daily active-user set, and the known-models registry in
// one pipeline.
func (r *Recorder) RecordLLMCall(ctx context.Context, now time.Time, call LLMCall) error {
	date := dateKey(now)
	model := sanitizeModelKey(call.Model)
	tokens := int64(call.InputTokens + call.OutputTokens)
	cost := MicroUSD(call.CostUSD)
	expireAt := now.UTC().AddDate(0, 0, llmTTLDays)

	keys := map[string]int64{
		llmTotalKey(date, "tokens"):   tokens,
		llmTotalKey(date, "cost"):     cost,
		llmTotalKey(date, "requests"): 1,
	}
	for dim, name := range map[string]string{
		"provider": call.Provider,
		"feature":  call.Feature,
		"model":    model,
	} {
		keys[llmDailyKey(date, dim, name, "tokens")] = tokens
		keys[llmDailyKey(date, dim, name, "cost")] = cost
		keys[llmDailyKey(date, dim, name, "requests")] = 1
	}

	pipe := r.cache.Redis().Pipeline()
	for key, delta := range keys {
		pipe.IncrBy(ctx, key, delta)
		pipe.ExpireAt(ctx, key, expireAt)
	}

	usersKey := llmUsersKey(date)
	pipe.SAdd(ctx, usersKey, strconv.FormatInt(call.UserID, 10))
	pipe.ExpireAt(ctx, usersKey, expireAt)
	pipe.SAdd(ctx, "LLM:known_models", call.Provider+":"+model)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record llm call: %w", err)
	}
	return nil
}

// LLMStats aggregates model spend over a trailing window.
type LLMStats struct {
	Tokens       int64
	CostMicroUSD int64
	Requests     int64
	ActiveUsers  int64
}

// LLMUsage sums the daily totals over the trailing days and counts distinct
// active users across the window.
func (r *Recorder) LLMUsage(ctx context.Context, now time.Time, days int) (*LLMStats, error) {
	if days <= 0 {
		days = 1
	}

	var counterKeys, userKeys []string
	for i := 0; i < days; i++ {
		date := dateKey(now.AddDate(0, 0, -i))
		counterKeys = append(counterKeys,
			llmTotalKey(date, "tokens"),
			llmTotalKey(date, "cost"),
			llmTotalKey(date, "requests"))
		userKeys = append(userKeys, llmUsersKey(date))
	}

	rdb := r.cache.Redis()
	values, err := rdb.MGet(ctx, counterKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("llm usage counters: %w", err)
	}

	stats := &LLMStats{}
	for i, v := range values {
		n := parseCounter(v)
		switch i % 3 {
		case 0:
			stats.Tokens += n
		case 1:
			stats.CostMicroUSD += n
		case 2:
			stats.Requests += n
		}
	}

	users, err := rdb.SUnion(ctx, userKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("llm usage users: %w", err)
	}
	stats.ActiveUsers = int64(len(users))
	return stats, nil
}

// KnownModels lists every provider:model pair ever recorded.
func (r *Recorder) KnownModels(ctx context.Context) ([]string, error) {
	models, err := r.cache.Redis().SMembers(ctx, "LLM:known_models").Result()
	if err != nil {
		return nil, fmt.Errorf("known models: %w", err)
	}
	return models, nil
}
