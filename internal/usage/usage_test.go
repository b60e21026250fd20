package usage

import (
	"testing"
	"time"
)

func TestSanitizeModelKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"claude-sonnet-4-20250514", "claude_sonnet_4_20250514"},
		{"gemini-2.0-flash", "gemini_2_0_flash"},
		{"vendor:model", "vendor_model"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := sanitizeModelKey(tt.in); got != tt.want {
			t.Errorf("sanitizeModelKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMicroUSD(t *testing.T) {
	tests := []struct {
		usd  float64
		want int64
	}{
		{0, 0},
		{1, 1_000_000},
		{0.0035, 3500},
		{0.0000004, 0}, // below half a micro-dollar rounds down
		{0.0000006, 1},
	}
	for _, tt := range tests {
		if got := MicroUSD(tt.usd); got != tt.want {
			t.Errorf("MicroUSD(%v) = %d, want %d", tt.usd, got, tt.want)
		}
	}
}

func TestDateKey(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2026, 8, 24, 23, 30, 0, 0, loc)
	if got := dateKey(local); got != "2026-08-25" {
		t.Errorf("dateKey = %q, want 2026-08-25 (UTC date)", got)
	}
}

func TestLLMKeyLayout(t *testing.T) {
	if got := llmTotalKey("2026-08-25", "tokens"); got != "LLM:2026-08-25:total:tokens" {
		t.Errorf("llmTotalKey = %q", got)
	}
	if got := llmDailyKey("2026-08-25", "provider", "anthropic", "cost"); got != "LLM:2026-08-25:provider:anthropic:cost" {
		t.Errorf("llmDailyKey = %q", got)
	}
	if got := llmDailyKey("2026-08-25", "model", "gpt_4o", "requests"); got != "LLM:2026-08-25:model:gpt_4o:requests" {
		t.Errorf("llmDailyKey = %q", got)
	}
	if got := llmUsersKey("2026-08-25"); got != "LLM:2026-08-25:users" {
		t.Errorf("llmUsersKey = %q", got)
	}
}

func TestClusteringKeyLayout(t *testing.T) {
	if got := clusteringDailyKey("2026-08-25", "mark_read_expanded"); got != "clustering:2026-08-25:mark_read_expanded" {
		t.Errorf("clusteringDailyKey = %q", got)
	}
	if got := clusteringAlltimeKey("mark_read_expanded"); got != "clustering:alltime:mark_read_expanded" {
		t.Errorf("clusteringAlltimeKey = %q", got)
	}
}

func TestParseCounter(t *testing.T) {
	if got := parseCounter("42"); got != 42 {
		t.Errorf("parseCounter(\"42\") = %d", got)
	}
	if got := parseCounter(nil); got != 0 {
		t.Errorf("parseCounter(nil) = %d", got)
	}
	if got := parseCounter("not-a-number"); got != 0 {
		t.Errorf("parseCounter garbage = %d", got)
	}
}
