package store

import (
	"fmt"
	"strings"
)

// SaveFeedIcon upserts a feed's favicon as base64-encoded PNG data.
func (s *Store) SaveFeedIcon(feedID int64, data string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO feed_icons (feed_id, data) VALUES (?, ?)`, feedID, data)
	if err != nil {
		return fmt.Errorf("save feed icon %d: %w", feedID, err)
	}
	return nil
}

// FeedIcons returns PNG data URIs for the feeds that have favicons, keyed by
// feed id.
func (s *Store) FeedIcons(feedIDs []int64) (map[int64]string, error) {
	icons := make(map[int64]string, len(feedIDs))
	if len(feedIDs) == 0 {
		return icons, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(feedIDs)), ",")
	args := make([]any, len(feedIDs))
	for i, id := range feedIDs {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT feed_id, data FROM feed_icons WHERE feed_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("feed icons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var feedID int64
		var data string
		if err := rows.Scan(&feedID, &data); err != nil {
			return nil, fmt.Errorf("scan feed icon: %w", err)
		}
		if data != "" {
			icons[feedID] = "data:image/png;base64," + data
		}
	}
	return icons, rows.Err()
}
