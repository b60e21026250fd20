package activity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"newsbrief/internal/cache"
)

// Reading activity is tracked as a per-user histogram of local hours, stored
// in a Redis hash with fields hour_0 through hour_23.
const (
	activityKeyPrefix = "uAct:"

	// minTypicalCount is how many reads an hour needs before it counts as
	// the user's typical reading hour.
	minTypicalCount = 5

	// defaultGenerationHour is the local hour used when no typical reading
	// hour has emerged yet.
	defaultGenerationHour = 7

	// generationLead is how far ahead of the reading hour briefings
	// generate, so the briefing is ready when the user shows up.
	generationLead = 30 * time.Minute
)

// Tracker records and reads per-user activity histograms.
type Tracker struct {
	cache *cache.Client
}

// NewTracker creates an activity tracker over the shared Redis client.
func NewTracker(c *cache.Client) *Tracker {
	return &Tracker{cache: c}
}

func activityKey(userID int64) string {
	return activityKeyPrefix + strconv.FormatInt(userID, 10)
}

// RecordActivity bumps the histogram bucket for the user's current local
// hour. An unknown timezone falls back to UTC.
func (t *Tracker) RecordActivity(ctx context.Context, userID int64, tz string, now time.Time) error {
	hour := localHour(now, tz)
	field := "hour_" + strconv.Itoa(hour)
	if err := t.cache.Redis().HIncrBy(ctx, activityKey(userID), field, 1).Err(); err != nil {
		return fmt.Errorf("record activity for user %d: %w", userID, err)
	}
	return nil
}

// ActivityHistogram returns the user's 24-bucket local-hour histogram.
// Hours with no recorded activity are zero.
func (t *Tracker) ActivityHistogram(ctx context.Context, userID int64) ([24]int64, error) {
	var hist [24]int64
	fields, err := t.cache.Redis().HGetAll(ctx, activityKey(userID)).Result()
	if err != nil {
		return hist, fmt.Errorf("activity histogram for user %d: %w", userID, err)
	}
	for hour := 0; hour < 24; hour++ {
		if v, ok := fields["hour_"+strconv.Itoa(hour)]; ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				hist[hour] = n
			}
		}
	}
	return hist, nil
}

// TypicalReadingHour returns the user's most active local hour, or -1 when
// no hour has accumulated enough activity. Ties resolve to the earlier hour.
func (t *Tracker) TypicalReadingHour(ctx context.Context, userID int64) (int, error) {
	hist, err := t.ActivityHistogram(ctx, userID)
	if err != nil {
		return -1, err
	}
	best, bestCount := -1, int64(minTypicalCount-1)
	for hour, count := range hist {
		if count > bestCount {
			best, bestCount = hour, count
		}
	}
	return best, nil
}

// BriefingGenerationTime returns the next UTC instant the user's briefing
// should generate: the typical reading hour (or the default) in the user's
// timezone, minus the generation lead. The returned time is today's slot;
// callers compare against now and roll forward as needed.
func (t *Tracker) BriefingGenerationTime(ctx context.Context, userID int64, tz string, now time.Time) (time.Time, error) {
	hour, err := t.TypicalReadingHour(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	if hour < 0 {
		hour = defaultGenerationHour
	}

	loc := loadLocation(tz)
	local := now.In(loc)
	slot := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	return slot.Add(-generationLead).UTC(), nil
}

func localHour(now time.Time, tz string) int {
	return now.In(loadLocation(tz)).Hour()
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
