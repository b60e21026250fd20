package core

import (
	"strings"
	"time"
)

// Story is the metadata view of a fetched story. The briefing and clustering
// engines never mutate stories; they only read them and reference them by
// story hash (format: "<feed_id>:<guid_hash>").
type Story struct {
	StoryHash string    `json:"story_hash"`
	FeedID    int64     `json:"story_feed_id"`
	Title     string    `json:"story_title"`
	Author    string    `json:"story_author_name"`
	Date      time.Time `json:"story_date"`
	Content   string    `json:"story_content"`
	WordCount int       `json:"word_count"`
	Tags      []string  `json:"story_tags"`
}

// GUIDHash extracts the GUID suffix from a story hash. Stories from
// duplicate/branched feed copies share the same GUID hash, so matching on it
// detects the same underlying article regardless of feed.
func GUIDHash(storyHash string) string {
	if i := strings.IndexByte(storyHash, ':'); i >= 0 {
		return storyHash[i+1:]
	}
	return storyHash
}

// StoryFeedID extracts the feed id prefix from a story hash, or 0 if the
// hash carries no numeric feed prefix.
func StoryFeedID(storyHash string) int64 {
	i := strings.IndexByte(storyHash, ':')
	if i <= 0 {
		return 0
	}
	var id int64
	for _, c := range storyHash[:i] {
		if c < '0' || c > '9' {
			return 0
		}
		id = id*10 + int64(c-'0')
	}
	return id
}

// Feed is the relational feed record. BranchFromFeed points at the original
// feed when this feed is a branched copy; 0 means the feed is its own
// original.
type Feed struct {
	ID                 int64
	Title              string
	Address            string
	BranchFromFeed     int64
	ArchiveSubscribers int
}

// User carries the fields the briefing engine needs; the full profile lives
// elsewhere.
type User struct {
	ID        int64
	Username  string
	Timezone  string
	IsArchive bool
}

// Subscription ties a user to a feed.
type Subscription struct {
	UserID            int64
	FeedID            int64
	Active            bool
	Folder            string
	NeedsUnreadRecalc bool
}

// Classifier kinds. Each classifier scores a feed, author, tag, or title
// -1, 0, or +1, optionally scoped to a folder.
const (
	ClassifierFeed   = "feed"
	ClassifierAuthor = "author"
	ClassifierTag    = "tag"
	ClassifierTitle  = "title"
)

// Classifier is one trained like/dislike signal for a user.
type Classifier struct {
	UserID int64
	Kind   string
	FeedID int64
	Value  string
	Score  int
	Folder string
}

// ScoredStory is one briefing candidate produced by the scorer.
type ScoredStory struct {
	StoryHash         string   `json:"story_hash"`
	Score             float64  `json:"score"`
	IsRead            bool     `json:"is_read"`
	Category          string   `json:"category"`
	ContentWordCount  int      `json:"content_word_count"`
	ClassifierMatches []string `json:"classifier_matches,omitempty"`
}

// ClusterStory is the sidecar metadata attached to a cluster representative
// for members that are not the representative itself.
type ClusterStory struct {
	StoryHash      string `json:"story_hash"`
	StoryFeedID    int64  `json:"story_feed_id"`
	StoryTitle     string `json:"story_title"`
	StoryDate      string `json:"story_date"`
	StoryTimestamp string `json:"story_timestamp"`
	FeedTitle      string `json:"feed_title"`
}

// PageStory is a story as it appears on a scored river page, carrying the
// optional cluster sidecar. Consumers must treat a nil and an empty
// ClusterStories slice identically.
type PageStory struct {
	Story
	Score          float64        `json:"score"`
	ClusterStories []ClusterStory `json:"cluster_stories,omitempty"`
}

// Briefing frequency values.
const (
	FrequencyDaily      = "daily"
	FrequencyTwiceDaily = "twice_daily"
	FrequencyWeekly     = "weekly"
)

// BriefingPeriod maps a frequency to the regeneration period.
func BriefingPeriod(frequency string) time.Duration {
	switch frequency {
	case FrequencyTwiceDaily:
		return 12 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// BriefingPreferences is the per-user briefing configuration.
type BriefingPreferences struct {
	UserID               int64
	Enabled              bool
	Frequency            string
	PreferredHour        *int // local hour, nil = auto from activity
	StoryCount           int
	SummaryLength        string // short, medium, detailed
	SummaryStyle         string // editorial, bullets, headlines
	Sections             map[string]bool
	CustomSectionPrompts []string
	BriefingModel        string // empty = default
	StorySources         string // "all" or "folder:<name>"
	ReadFilter           string // all, unread, focus
	BriefingFeedID       int64
}

// Briefing statuses.
const (
	BriefingPending  = "pending"
	BriefingComplete = "complete"
	BriefingFailed   = "failed"
)

// Briefing is one generated artifact for one user and one period. Immutable
// once its status reaches complete.
type Briefing struct {
	ID                 int64
	UserID             int64
	BriefingFeedID     int64
	BriefingDate       time.Time
	PeriodStart        time.Time
	GeneratedAt        time.Time
	Status             string
	CuratedStoryHashes []string
	CuratedSections    map[string][]string
	SectionSummaries   map[string]string
	SummaryStoryHash   string
	Model              string
	InputTokens        int
	OutputTokens       int
}
