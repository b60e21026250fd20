package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"newsbrief/internal/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the SQLite-backed relational store for users, feeds,
// subscriptions, classifiers, story metadata, briefings, and briefing
// preferences.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store instance backed by a SQLite database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "newsbrief.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		is_archive INTEGER NOT NULL DEFAULT 0
	);`

	feedsTable := `
	CREATE TABLE IF NOT EXISTS feeds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		address TEXT UNIQUE NOT NULL,
		branch_from_feed INTEGER NOT NULL DEFAULT 0,
		archive_subscribers INTEGER NOT NULL DEFAULT 0
	);`

	subscriptionsTable := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		user_id INTEGER NOT NULL,
		feed_id INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		folder TEXT NOT NULL DEFAULT '',
		needs_unread_recalc INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, feed_id)
	);`

	classifiersTable := `
	CREATE TABLE IF NOT EXISTS classifiers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		feed_id INTEGER NOT NULL DEFAULT 0,
		value TEXT NOT NULL,
		score INTEGER NOT NULL,
		folder TEXT NOT NULL DEFAULT ''
	);`

	storiesTable := `
	CREATE TABLE IF NOT EXISTS stories (
		story_hash TEXT PRIMARY KEY,
		feed_id INTEGER NOT NULL,
		title TEXT,
		author TEXT,
		story_date DATETIME,
		content TEXT,
		word_count INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '[]'
	);`

	briefingsTable := `
	CREATE TABLE IF NOT EXISTS briefings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		briefing_feed_id INTEGER NOT NULL,
		briefing_date DATETIME NOT NULL,
		period_start DATETIME NOT NULL,
		generated_at DATETIME,
		status TEXT NOT NULL DEFAULT 'pending',
		curated_story_hashes TEXT NOT NULL DEFAULT '[]',
		curated_sections TEXT NOT NULL DEFAULT '{}',
		section_summaries TEXT NOT NULL DEFAULT '{}',
		summary_story_hash TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0
	);`

	preferencesTable := `
	CREATE TABLE IF NOT EXISTS briefing_preferences (
		user_id INTEGER PRIMARY KEY,
		enabled INTEGER NOT NULL DEFAULT 0,
		frequency TEXT NOT NULL DEFAULT 'daily',
		preferred_hour INTEGER,
		story_count INTEGER NOT NULL DEFAULT 5,
		summary_length TEXT NOT NULL DEFAULT 'medium',
		summary_style TEXT NOT NULL DEFAULT 'editorial',
		sections TEXT NOT NULL DEFAULT '{}',
		custom_section_prompts TEXT NOT NULL DEFAULT '[]',
		briefing_model TEXT NOT NULL DEFAULT '',
		story_sources TEXT NOT NULL DEFAULT 'all',
		read_filter TEXT NOT NULL DEFAULT 'unread',
		briefing_feed_id INTEGER NOT NULL DEFAULT 0
	);`

	feedIconsTable := `
	CREATE TABLE IF NOT EXISTS feed_icons (
		feed_id INTEGER PRIMARY KEY,
		data TEXT NOT NULL
	);`

	indexes := `
	CREATE INDEX IF NOT EXISTS idx_stories_feed_date ON stories (feed_id, story_date);
	CREATE INDEX IF NOT EXISTS idx_briefings_user_date ON briefings (user_id, briefing_date);
	CREATE INDEX IF NOT EXISTS idx_classifiers_user ON classifiers (user_id);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_feed ON subscriptions (feed_id);`

	tables := []string{usersTable, feedsTable, subscriptionsTable, classifiersTable,
		storiesTable, briefingsTable, preferencesTable, feedIconsTable, indexes}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Users ---

// CreateUser inserts a user and returns it with the assigned id.
func (s *Store) CreateUser(user core.User) (core.User, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (username, timezone, is_archive) VALUES (?, ?, ?)`,
		user.Username, user.Timezone, boolToInt(user.IsArchive),
	)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	user.ID, _ = res.LastInsertId()
	return user, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(id int64) (*core.User, error) {
	row := s.db.QueryRow(`SELECT id, username, timezone, is_archive FROM users WHERE id = ?`, id)

	var u core.User
	var isArchive int
	if err := row.Scan(&u.ID, &u.Username, &u.Timezone, &isArchive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	u.IsArchive = isArchive != 0
	return &u, nil
}

// --- Feeds ---

// CreateFeed inserts a feed and returns it with the assigned id.
func (s *Store) CreateFeed(feed core.Feed) (core.Feed, error) {
	res, err := s.db.Exec(
		`INSERT INTO feeds (title, address, branch_from_feed, archive_subscribers) VALUES (?, ?, ?, ?)`,
		feed.Title, feed.Address, feed.BranchFromFeed, feed.ArchiveSubscribers,
	)
	if err != nil {
		return core.Feed{}, fmt.Errorf("create feed: %w", err)
	}
	feed.ID, _ = res.LastInsertId()
	return feed, nil
}

// GetFeed fetches a feed by id.
func (s *Store) GetFeed(id int64) (*core.Feed, error) {
	row := s.db.QueryRow(
		`SELECT id, title, address, branch_from_feed, archive_subscribers FROM feeds WHERE id = ?`, id)

	var f core.Feed
	if err := row.Scan(&f.ID, &f.Title, &f.Address, &f.BranchFromFeed, &f.ArchiveSubscribers); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get feed %d: %w", id, err)
	}
	return &f, nil
}

// GetFeedByAddress fetches a feed by its address.
func (s *Store) GetFeedByAddress(address string) (*core.Feed, error) {
	row := s.db.QueryRow(
		`SELECT id, title, address, branch_from_feed, archive_subscribers FROM feeds WHERE address = ?`, address)

	var f core.Feed
	if err := row.Scan(&f.ID, &f.Title, &f.Address, &f.BranchFromFeed, &f.ArchiveSubscribers); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get feed by address: %w", err)
	}
	return &f, nil
}

// FeedsByIDs fetches feeds in bulk, keyed by id. Queries run in batches of
// 100 ids; missing ids are simply absent from the result.
func (s *Store) FeedsByIDs(ids []int64) (map[int64]core.Feed, error) {
	feeds := make(map[int64]core.Feed, len(ids))
	if len(ids) == 0 {
		return feeds, nil
	}

	for start := 0; start < len(ids); start += 100 {
		end := start + 100
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}

		rows, err := s.db.Query(
			`SELECT id, title, address, branch_from_feed, archive_subscribers FROM feeds WHERE id IN (`+placeholders+`)`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("feeds by ids: %w", err)
		}
		for rows.Next() {
			var f core.Feed
			if err := rows.Scan(&f.ID, &f.Title, &f.Address, &f.BranchFromFeed, &f.ArchiveSubscribers); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan feed: %w", err)
			}
			feeds[f.ID] = f
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("feeds by ids: %w", err)
		}
		rows.Close()
	}

	return feeds, nil
}

// --- Subscriptions ---

// CreateSubscription upserts a user/feed subscription.
func (s *Store) CreateSubscription(sub core.Subscription) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO subscriptions (user_id, feed_id, active, folder, needs_unread_recalc)
		 VALUES (?, ?, ?, ?, ?)`,
		sub.UserID, sub.FeedID, boolToInt(sub.Active), sub.Folder, boolToInt(sub.NeedsUnreadRecalc),
	)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// ActiveFeedIDs returns the feed ids the user is actively subscribed to.
func (s *Store) ActiveFeedIDs(userID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT feed_id FROM subscriptions WHERE user_id = ? AND active = 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("active feed ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan feed id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FolderFeedIDs returns the user's active feed ids filed under folder.
func (s *Store) FolderFeedIDs(userID int64, folder string) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT feed_id FROM subscriptions WHERE user_id = ? AND active = 1 AND folder = ?`,
		userID, folder)
	if err != nil {
		return nil, fmt.Errorf("folder feed ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan feed id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetSubscription fetches one user/feed subscription.
func (s *Store) GetSubscription(userID, feedID int64) (*core.Subscription, error) {
	row := s.db.QueryRow(
		`SELECT user_id, feed_id, active, folder, needs_unread_recalc
		 FROM subscriptions WHERE user_id = ? AND feed_id = ?`, userID, feedID)

	var sub core.Subscription
	var active, recalc int
	if err := row.Scan(&sub.UserID, &sub.FeedID, &active, &sub.Folder, &recalc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	sub.Active = active != 0
	sub.NeedsUnreadRecalc = recalc != 0
	return &sub, nil
}

// ArchiveSubscriberIDs returns up to limit archive-tier user ids subscribed
// to the feed.
func (s *Store) ArchiveSubscriberIDs(feedID int64, limit int) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT s.user_id FROM subscriptions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.feed_id = ? AND s.active = 1 AND u.is_archive = 1
		 ORDER BY s.user_id LIMIT ?`, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("archive subscribers of feed %d: %w", feedID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FeedIDsForUsers returns the distinct active feed ids across a set of users,
// capped at limit.
func (s *Store) FeedIDsForUsers(userIDs []int64, limit int) ([]int64, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, 0, len(userIDs)+1)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := s.db.Query(
		`SELECT DISTINCT feed_id FROM subscriptions
		 WHERE user_id IN (`+placeholders+`) AND active = 1
		 ORDER BY feed_id LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("feed ids for users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan feed id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetNeedsUnreadRecalc flags a subscription so the reader recounts unreads.
func (s *Store) SetNeedsUnreadRecalc(userID, feedID int64) error {
	_, err := s.db.Exec(
		`UPDATE subscriptions SET needs_unread_recalc = 1 WHERE user_id = ? AND feed_id = ?`,
		userID, feedID)
	if err != nil {
		return fmt.Errorf("set needs_unread_recalc: %w", err)
	}
	return nil
}

// --- Classifiers ---

// CreateClassifier inserts a trained like/dislike signal.
func (s *Store) CreateClassifier(c core.Classifier) error {
	_, err := s.db.Exec(
		`INSERT INTO classifiers (user_id, kind, feed_id, value, score, folder)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Kind, c.FeedID, c.Value, c.Score, c.Folder)
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}
	return nil
}

// ClassifiersForUser returns all classifiers trained by the user.
func (s *Store) ClassifiersForUser(userID int64) ([]core.Classifier, error) {
	rows, err := s.db.Query(
		`SELECT user_id, kind, feed_id, value, score, folder FROM classifiers WHERE user_id = ?`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("classifiers for user %d: %w", userID, err)
	}
	defer rows.Close()

	var classifiers []core.Classifier
	for rows.Next() {
		var c core.Classifier
		if err := rows.Scan(&c.UserID, &c.Kind, &c.FeedID, &c.Value, &c.Score, &c.Folder); err != nil {
			return nil, fmt.Errorf("scan classifier: %w", err)
		}
		classifiers = append(classifiers, c)
	}
	return classifiers, rows.Err()
}

// --- Stories ---

// CreateStory upserts story metadata and content.
func (s *Store) CreateStory(story core.Story) error {
	tags, _ := json.Marshal(story.Tags)

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO stories
		 (story_hash, feed_id, title, author, story_date, content, word_count, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		story.StoryHash, story.FeedID, story.Title, story.Author,
		story.Date.UTC(), story.Content, story.WordCount, string(tags))
	if err != nil {
		return fmt.Errorf("create story %s: %w", story.StoryHash, err)
	}
	return nil
}

// GetStory fetches one story by hash.
func (s *Store) GetStory(storyHash string) (*core.Story, error) {
	stories, err := s.StoriesByHashes([]string{storyHash})
	if err != nil {
		return nil, err
	}
	story, ok := stories[storyHash]
	if !ok {
		return nil, ErrNotFound
	}
	return &story, nil
}

// StoriesByHashes fetches story metadata in bulk, keyed by story hash.
// Queries run in batches of 100 hashes. Missing hashes are absent from the
// result rather than errors.
func (s *Store) StoriesByHashes(hashes []string) (map[string]core.Story, error) {
	stories := make(map[string]core.Story, len(hashes))
	if len(hashes) == 0 {
		return stories, nil
	}

	for start := 0; start < len(hashes); start += 100 {
		end := start + 100
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, len(batch))
		for i, h := range batch {
			args[i] = h
		}

		rows, err := s.db.Query(
			`SELECT story_hash, feed_id, title, author, story_date, content, word_count, tags
			 FROM stories WHERE story_hash IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("stories by hashes: %w", err)
		}
		for rows.Next() {
			var story core.Story
			var tags string
			if err := rows.Scan(&story.StoryHash, &story.FeedID, &story.Title, &story.Author,
				&story.Date, &story.Content, &story.WordCount, &tags); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan story: %w", err)
			}
			if tags != "" {
				_ = json.Unmarshal([]byte(tags), &story.Tags)
			}
			stories[story.StoryHash] = story
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("stories by hashes: %w", err)
		}
		rows.Close()
	}

	return stories, nil
}

// --- Briefings ---

// CreateBriefing inserts a briefing row and returns it with the assigned id.
func (s *Store) CreateBriefing(b core.Briefing) (core.Briefing, error) {
	curated, _ := json.Marshal(b.CuratedStoryHashes)
	sections, _ := json.Marshal(b.CuratedSections)
	summaries, _ := json.Marshal(b.SectionSummaries)

	res, err := s.db.Exec(
		`INSERT INTO briefings
		 (user_id, briefing_feed_id, briefing_date, period_start, generated_at, status,
		  curated_story_hashes, curated_sections, section_summaries, summary_story_hash,
		  model, input_tokens, output_tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.BriefingFeedID, b.BriefingDate.UTC(), b.PeriodStart.UTC(),
		b.GeneratedAt.UTC(), b.Status, string(curated), string(sections),
		string(summaries), b.SummaryStoryHash, b.Model, b.InputTokens, b.OutputTokens)
	if err != nil {
		return core.Briefing{}, fmt.Errorf("create briefing: %w", err)
	}
	b.ID, _ = res.LastInsertId()
	return b, nil
}

// LatestBriefing returns the user's most recent briefing, or ErrNotFound.
func (s *Store) LatestBriefing(userID int64) (*core.Briefing, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, briefing_feed_id, briefing_date, period_start, generated_at,
		        status, curated_story_hashes, curated_sections, section_summaries,
		        summary_story_hash, model, input_tokens, output_tokens
		 FROM briefings WHERE user_id = ? ORDER BY briefing_date DESC LIMIT 1`, userID)

	b, err := scanBriefing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest briefing for user %d: %w", userID, err)
	}
	return b, nil
}

// BriefingExistsSince reports whether a completed briefing newer than since
// exists for the user.
func (s *Store) BriefingExistsSince(userID int64, since time.Time) (bool, error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*) FROM briefings
		 WHERE user_id = ? AND status = ? AND briefing_date > ?`,
		userID, core.BriefingComplete, since.UTC())

	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("briefing exists since: %w", err)
	}
	return count > 0, nil
}

func scanBriefing(row *sql.Row) (*core.Briefing, error) {
	var b core.Briefing
	var curated, sections, summaries string
	err := row.Scan(&b.ID, &b.UserID, &b.BriefingFeedID, &b.BriefingDate, &b.PeriodStart,
		&b.GeneratedAt, &b.Status, &curated, &sections, &summaries,
		&b.SummaryStoryHash, &b.Model, &b.InputTokens, &b.OutputTokens)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(curated), &b.CuratedStoryHashes)
	_ = json.Unmarshal([]byte(sections), &b.CuratedSections)
	_ = json.Unmarshal([]byte(summaries), &b.SectionSummaries)
	return &b, nil
}

// --- Briefing preferences ---

// GetOrCreatePreferences fetches the user's briefing preferences, creating a
// default row (disabled, daily, 5 stories, every fixed section enabled) on
// first access.
func (s *Store) GetOrCreatePreferences(userID int64) (*core.BriefingPreferences, error) {
	prefs, err := s.getPreferences(userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	defaults := core.BriefingPreferences{
		UserID:        userID,
		Enabled:       false,
		Frequency:     core.FrequencyDaily,
		StoryCount:    5,
		SummaryLength: "medium",
		SummaryStyle:  "editorial",
		Sections:      core.DefaultSections(),
		StorySources:  "all",
		ReadFilter:    "unread",
	}
	if err := s.SavePreferences(defaults); err != nil {
		return nil, err
	}
	return s.getPreferences(userID)
}

func (s *Store) getPreferences(userID int64) (*core.BriefingPreferences, error) {
	row := s.db.QueryRow(
		`SELECT user_id, enabled, frequency, preferred_hour, story_count, summary_length,
		        summary_style, sections, custom_section_prompts, briefing_model,
		        story_sources, read_filter, briefing_feed_id
		 FROM briefing_preferences WHERE user_id = ?`, userID)

	var p core.BriefingPreferences
	var enabled int
	var preferredHour sql.NullInt64
	var sections, prompts string
	err := row.Scan(&p.UserID, &enabled, &p.Frequency, &preferredHour, &p.StoryCount,
		&p.SummaryLength, &p.SummaryStyle, &sections, &prompts, &p.BriefingModel,
		&p.StorySources, &p.ReadFilter, &p.BriefingFeedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get preferences for user %d: %w", userID, err)
	}
	p.Enabled = enabled != 0
	if preferredHour.Valid {
		hour := int(preferredHour.Int64)
		p.PreferredHour = &hour
	}
	_ = json.Unmarshal([]byte(sections), &p.Sections)
	_ = json.Unmarshal([]byte(prompts), &p.CustomSectionPrompts)
	if p.Sections == nil {
		p.Sections = core.DefaultSections()
	}
	return &p, nil
}

// SavePreferences upserts briefing preferences. Section keys outside the
// valid set are dropped rather than stored.
func (s *Store) SavePreferences(p core.BriefingPreferences) error {
	filtered := make(map[string]bool, len(p.Sections))
	for key, enabled := range p.Sections {
		if core.ValidSectionKeys[key] {
			filtered[key] = enabled
		}
	}
	if len(p.CustomSectionPrompts) > core.MaxCustomSections {
		p.CustomSectionPrompts = p.CustomSectionPrompts[:core.MaxCustomSections]
	}

	sections, _ := json.Marshal(filtered)
	prompts, _ := json.Marshal(p.CustomSectionPrompts)

	var preferredHour any
	if p.PreferredHour != nil {
		preferredHour = *p.PreferredHour
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO briefing_preferences
		 (user_id, enabled, frequency, preferred_hour, story_count, summary_length,
		  summary_style, sections, custom_section_prompts, briefing_model,
		  story_sources, read_filter, briefing_feed_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, boolToInt(p.Enabled), p.Frequency, preferredHour, p.StoryCount,
		p.SummaryLength, p.SummaryStyle, string(sections), string(prompts),
		p.BriefingModel, p.StorySources, p.ReadFilter, p.BriefingFeedID)
	if err != nil {
		return fmt.Errorf("save preferences for user %d: %w", p.UserID, err)
	}
	return nil
}

// EnabledPreferenceUserIDs returns the user ids with briefings enabled.
func (s *Store) EnabledPreferenceUserIDs() ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT user_id FROM briefing_preferences WHERE enabled = 1 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("enabled preference users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
