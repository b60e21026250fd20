package briefing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"newsbrief/internal/activity"
	"newsbrief/internal/cache"
	"newsbrief/internal/core"
	"newsbrief/internal/logger"
	"newsbrief/internal/store"
	"newsbrief/internal/summary"
)

// Locks expire after 14 minutes so a crashed worker never wedges
// generation for longer than one sweep interval.
const (
	generateAllLockKey    = "briefing:generate_all_lock"
	generateUserLockKey   = "briefing:generate_user:"
	lockTTL               = 840 * time.Second
	eventsChannel         = "briefing:events"
	eventMessagePrefix    = "briefing:"
)

// storySelector is the scoring surface the worker needs. *scoring.Scorer
// satisfies it.
type storySelector interface {
	SelectBriefingStories(ctx context.Context, userID int64, prefs core.BriefingPreferences, periodStart, now time.Time, maxStories int) ([]core.ScoredStory, error)
}

// Worker runs briefing generation: the periodic sweep over all enabled
// users and single-user on-demand generation.
type Worker struct {
	store    *store.Store
	cache    *cache.Client
	scorer   storySelector
	summary  *summary.Generator
	embedder *summary.Embedder
	activity *activity.Tracker
}

// NewWorker wires a briefing worker.
func NewWorker(s *store.Store, c *cache.Client, scorer storySelector, gen *summary.Generator, embedder *summary.Embedder, tracker *activity.Tracker) *Worker {
	return &Worker{
		store:    s,
		cache:    c,
		scorer:   scorer,
		summary:  gen,
		embedder: embedder,
		activity: tracker,
	}
}

type briefingEvent struct {
	Type           string `json:"type"`
	UserID         int64  `json:"user_id"`
	BriefingFeedID int64  `json:"briefing_feed_id,omitempty"`
	StoryHash      string `json:"story_hash,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (w *Worker) publishEvent(ctx context.Context, ev briefingEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := w.cache.Publish(ctx, eventsChannel, eventMessagePrefix+string(payload)); err != nil {
		logger.Warn("briefing event publish failed", "user_id", ev.UserID, "error", err.Error())
	}
}

// GenerateBriefings sweeps every user with briefings enabled and generates
// for those whose period has elapsed and whose generation time has arrived.
// A global lock keeps concurrent sweeps from doubling up; per-user failures
// log and the sweep continues.
func (w *Worker) GenerateBriefings(ctx context.Context) error {
	acquired, err := w.cache.AcquireLock(ctx, generateAllLockKey, lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		logger.Info("briefing sweep already running, skipping")
		return nil
	}

	userIDs, err := w.store.EnabledPreferenceUserIDs()
	if err != nil {
		return err
	}

	now := time.Now()
	generated := 0
	for _, userID := range userIDs {
		due, err := w.briefingDue(ctx, userID, now)
		if err != nil {
			logger.Error("briefing eligibility check failed", err, "user_id", userID)
			continue
		}
		if !due {
			continue
		}
		if err := w.GenerateUserBriefing(ctx, userID, false); err != nil {
			logger.Error("briefing generation failed", err, "user_id", userID)
			continue
		}
		generated++
	}

	logger.Info("briefing sweep complete", "users", len(userIDs), "generated", generated)
	return nil
}

// briefingDue reports whether the user's period has elapsed since their
// last completed briefing and their local generation time has passed.
func (w *Worker) briefingDue(ctx context.Context, userID int64, now time.Time) (bool, error) {
	prefs, err := w.store.GetOrCreatePreferences(userID)
	if err != nil {
		return false, err
	}
	period := core.BriefingPeriod(prefs.Frequency)

	exists, err := w.store.BriefingExistsSince(userID, now.Add(-period))
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	user, err := w.store.GetUser(userID)
	if err != nil {
		return false, err
	}

	var genTime time.Time
	if prefs.PreferredHour != nil {
		genTime = preferredGenerationTime(*prefs.PreferredHour, user.Timezone, now)
	} else {
		genTime, err = w.activity.BriefingGenerationTime(ctx, userID, user.Timezone, now)
		if err != nil {
			return false, err
		}
	}
	return !now.Before(genTime), nil
}

func preferredGenerationTime(hour int, tz string, now time.Time) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc).
		Add(-30 * time.Minute).UTC()
}

// GenerateUserBriefing generates one user's briefing end to end. On-demand
// runs (user pressed the button) skip the period check, enable briefings if
// this is the user's first, publish start/complete events, and release the
// per-user lock when done — including on failure, so the user can retry
// immediately. Sweep runs leave the lock to expire as a rate limit.
func (w *Worker) GenerateUserBriefing(ctx context.Context, userID int64, onDemand bool) error {
	lockKey := generateUserLockKey + strconv.FormatInt(userID, 10)
	acquired, err := w.cache.AcquireLock(ctx, lockKey, lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		logger.Info("briefing generation already running", "user_id", userID)
		return nil
	}

	if onDemand {
		defer func() {
			if err := w.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
				logger.Warn("briefing lock release failed", "user_id", userID, "error", err.Error())
			}
		}()
		w.publishEvent(ctx, briefingEvent{Type: "start", UserID: userID})
	}

	result, err := w.generateUserBriefing(ctx, userID, onDemand)
	if err != nil {
		if onDemand {
			w.publishEvent(ctx, briefingEvent{Type: "failed", UserID: userID, Error: err.Error()})
		}
		return err
	}

	if onDemand {
		ev := briefingEvent{Type: "complete", UserID: userID}
		if result != nil {
			ev.BriefingFeedID = result.briefingFeedID
			ev.StoryHash = result.storyHash
		}
		w.publishEvent(ctx, ev)
	}
	return nil
}

// generationResult identifies where a completed briefing landed.
type generationResult struct {
	briefingFeedID int64
	storyHash      string
}

func (w *Worker) generateUserBriefing(ctx context.Context, userID int64, onDemand bool) (*generationResult, error) {
	now := time.Now()

	user, err := w.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	prefs, err := w.store.GetOrCreatePreferences(userID)
	if err != nil {
		return nil, err
	}

	if !prefs.Enabled {
		if !onDemand {
			return nil, nil
		}
		// First on-demand generation turns briefings on.
		prefs.Enabled = true
		if err := w.store.SavePreferences(*prefs); err != nil {
			return nil, err
		}
	}

	period := core.BriefingPeriod(prefs.Frequency)
	if !onDemand {
		exists, err := w.store.BriefingExistsSince(userID, now.Add(-period))
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, nil
		}
	}

	feed, err := EnsureBriefingFeed(w.store, userID)
	if err != nil {
		return nil, err
	}
	prefs.BriefingFeedID = feed.ID

	periodStart := now.Add(-period)
	scored, err := w.scorer.SelectBriefingStories(ctx, userID, *prefs, periodStart, now, prefs.StoryCount)
	if err != nil {
		return nil, err
	}
	if len(scored) < MinCandidates(prefs.Frequency) {
		// Terminal skip, not a failure: there is nothing to brief yet.
		logger.Info("briefing skipped, not enough stories", "user_id", userID,
			"have", len(scored), "need", MinCandidates(prefs.Frequency))
		return nil, nil
	}

	summaryHTML, meta, err := w.summary.GenerateBriefingSummary(ctx, userID, scored, now, *prefs)
	if err != nil {
		return nil, err
	}
	if summaryHTML == "" || meta == nil {
		return nil, errors.New("briefing summary generation produced no output")
	}

	sections := summary.ExtractSectionSummaries(summaryHTML)
	sectionHashes := summary.ExtractSectionStoryHashes(sections)
	filtered := summary.FilterDisabledSections(summaryHTML, prefs.Sections)

	embedded, err := w.embed(filtered, scored)
	if err != nil {
		return nil, err
	}
	embedded += w.debugFooter(meta)

	loc, lerr := time.LoadLocation(user.Timezone)
	if lerr != nil || user.Timezone == "" {
		loc = time.UTC
	}
	story, err := CreateBriefingStory(ctx, w.store, w.cache, userID, feed.ID, embedded, now.In(loc), now)
	if err != nil {
		return nil, err
	}

	curated := make([]string, len(scored))
	for i, s := range scored {
		curated[i] = s.StoryHash
	}
	if _, err := w.store.CreateBriefing(core.Briefing{
		UserID:             userID,
		BriefingFeedID:     feed.ID,
		BriefingDate:       now,
		PeriodStart:        periodStart,
		GeneratedAt:        now,
		Status:             core.BriefingComplete,
		CuratedStoryHashes: curated,
		CuratedSections:    w.curatedSections(scored, prefs.Sections, sectionHashes),
		SectionSummaries:   sections,
		SummaryStoryHash:   story.StoryHash,
		Model:              meta.ModelName,
		InputTokens:        meta.InputTokens,
		OutputTokens:       meta.OutputTokens,
	}); err != nil {
		return nil, err
	}

	logger.Info("briefing generated", "user_id", userID, "stories", len(scored),
		"model", meta.ModelName, "briefing_feed_id", feed.ID)
	return &generationResult{briefingFeedID: feed.ID, storyHash: story.StoryHash}, nil
}

// curatedSections groups the curated story hashes by category. Categories
// whose section is disabled remap to trending_global, mirroring the prompt
// remap, so the stored curation never references a hidden section. Hashes
// the model actually placed in sections keep that placement.
func (w *Worker) curatedSections(scored []core.ScoredStory, sections map[string]bool, sectionHashes map[string][]string) map[string][]string {
	placed := make(map[string]string)
	for key, hashes := range sectionHashes {
		for _, h := range hashes {
			placed[h] = key
		}
	}

	active := sections
	if len(active) == 0 {
		active = core.DefaultSections()
	}

	curated := make(map[string][]string)
	for _, s := range scored {
		key, ok := placed[s.StoryHash]
		if !ok {
			key = s.Category
		}
		if key == "" {
			key = core.SectionTrendingGlobal
		}
		if !strings.HasPrefix(key, "custom_") && key != core.SectionTrendingGlobal && !active[key] {
			key = core.SectionTrendingGlobal
		}
		curated[key] = append(curated[key], s.StoryHash)
	}
	return curated
}

func (w *Worker) embed(summaryHTML string, scored []core.ScoredStory) (string, error) {
	hashes := make([]string, len(scored))
	for i, s := range scored {
		hashes[i] = s.StoryHash
	}
	stories, err := w.store.StoriesByHashes(hashes)
	if err != nil {
		return "", err
	}

	feedIDSet := make(map[int64]bool)
	for _, s := range stories {
		feedIDSet[s.FeedID] = true
	}
	feedIDs := make([]int64, 0, len(feedIDSet))
	for id := range feedIDSet {
		feedIDs = append(feedIDs, id)
	}

	feeds, err := w.store.FeedsByIDs(feedIDs)
	if err != nil {
		return "", err
	}
	feedTitles := make(map[int64]string, len(feeds))
	for id, f := range feeds {
		feedTitles[id] = f.Title
	}

	favicons, err := w.store.FeedIcons(feedIDs)
	if err != nil {
		logger.Warn("feed icon lookup failed, embedding without favicons", "error", err.Error())
		favicons = map[int64]string{}
	}

	return w.embedder.EmbedBriefingIcons(summaryHTML, stories, feedTitles, favicons), nil
}

// debugFooter appends the model attribution line readers see at the bottom
// of each briefing.
func (w *Worker) debugFooter(meta *summary.Metadata) string {
	return fmt.Sprintf(
		`<div class="NB-briefing-debug" style="margin-top:16px;font-size:11px;color:#999;">`+
			`Generated by %s · %d input / %d output tokens</div>`,
		meta.DisplayName, meta.InputTokens, meta.OutputTokens)
}
