package briefing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"newsbrief/internal/cache"
	"newsbrief/internal/clustering"
	"newsbrief/internal/core"
	"newsbrief/internal/store"
)

// Each user's briefings publish into a synthetic feed the reader renders
// like any other subscription.
const briefingFeedAddressPrefix = "daily-briefing:"

// MinCandidates returns how many scored stories a briefing needs before
// generation proceeds, per frequency.
func MinCandidates(frequency string) int {
	if frequency == core.FrequencyTwiceDaily {
		return 1
	}
	return 3
}

// EnsureBriefingFeed finds or creates the user's synthetic briefing feed,
// subscribes the user to it, and records the feed id in preferences.
// Idempotent: repeat calls return the same feed.
func EnsureBriefingFeed(s *store.Store, userID int64) (*core.Feed, error) {
	address := briefingFeedAddressPrefix + strconv.FormatInt(userID, 10)

	feed, err := s.GetFeedByAddress(address)
	if errors.Is(err, store.ErrNotFound) {
		created, cerr := s.CreateFeed(core.Feed{
			Title:   "Daily Briefing",
			Address: address,
		})
		if cerr != nil {
			return nil, cerr
		}
		feed = &created
	} else if err != nil {
		return nil, err
	}

	if _, err := s.GetSubscription(userID, feed.ID); errors.Is(err, store.ErrNotFound) {
		if err := s.CreateSubscription(core.Subscription{
			UserID: userID,
			FeedID: feed.ID,
			Active: true,
		}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	prefs, err := s.GetOrCreatePreferences(userID)
	if err != nil {
		return nil, err
	}
	if prefs.BriefingFeedID != feed.ID {
		prefs.BriefingFeedID = feed.ID
		if err := s.SavePreferences(*prefs); err != nil {
			return nil, err
		}
	}
	return feed, nil
}

// BriefingTitle names a briefing by the user's local time of day, suffixed
// with the date, e.g. "Morning Briefing – Aug 25".
func BriefingTitle(localTime time.Time) string {
	var period string
	switch hour := localTime.Hour(); {
	case hour < 12:
		period = "Morning"
	case hour < 17:
		period = "Afternoon"
	default:
		period = "Evening"
	}
	return fmt.Sprintf("%s Briefing – %s", period, localTime.Format("Jan 02"))
}

// CreateBriefingStory publishes a generated briefing as a story on the
// user's briefing feed: persists the story, pushes it onto the feed's
// timeline zset, and flags the subscription for an unread recount so the
// new briefing surfaces immediately.
func CreateBriefingStory(ctx context.Context, s *store.Store, c *cache.Client, userID, briefingFeedID int64, summaryHTML string, localTime, now time.Time) (*core.Story, error) {
	guid := strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	story := core.Story{
		StoryHash: strconv.FormatInt(briefingFeedID, 10) + ":" + guid,
		FeedID:    briefingFeedID,
		Title:     BriefingTitle(localTime),
		Author:    "Newsbrief",
		Date:      now.UTC(),
		Content:   summaryHTML,
	}

	if err := s.CreateStory(story); err != nil {
		return nil, err
	}
	if err := c.Redis().ZAdd(ctx, clustering.FeedStoriesKey(briefingFeedID), redis.Z{
		Score:  float64(now.Unix()),
		Member: story.StoryHash,
	}).Err(); err != nil {
		return nil, fmt.Errorf("push briefing story to feed timeline: %w", err)
	}
	if err := s.SetNeedsUnreadRecalc(userID, briefingFeedID); err != nil {
		return nil, err
	}
	return &story, nil
}
