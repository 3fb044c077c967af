package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// IsThrottled reports whether a send for the given key is currently
// suppressed. A key with no record is never throttled; neither is any key
// when the interval is non-positive.
func (s *SQLiteStore) IsThrottled(category, recipientID, contextID string, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return false, nil
	}
	id := makeThrottleID(category, recipientID, contextID)

	var lastSentAt time.Time
	err := s.db.QueryRow(`SELECT last_sent_at FROM email_throttle WHERE id = ?`, id).Scan(&lastSentAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		slog.Error("SQLiteStore IsThrottled query failed", "error", err, "id", id)
		return false, fmt.Errorf("failed to query throttle record %s: %w", id, err)
	}

	throttled := time.Since(lastSentAt) < interval
	slog.Debug("SQLiteStore IsThrottled", "id", id, "throttled", throttled)
	return throttled, nil
}

// RecordSent upserts the throttle record for the given key with the current
// time. Safe to call repeatedly for the same key.
func (s *SQLiteStore) RecordSent(category, recipientID, contextID string) error {
	id := makeThrottleID(category, recipientID, contextID)
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO email_throttle (id, channel, category, recipient_id, context_id, last_sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET last_sent_at = excluded.last_sent_at`,
		id, ThrottleChannel, category, recipientID, contextID, now,
	)
	if err != nil {
		slog.Error("SQLiteStore RecordSent failed", "error", err, "id", id)
		return fmt.Errorf("failed to upsert throttle record %s: %w", id, err)
	}
	slog.Debug("SQLiteStore RecordSent succeeded", "id", id)
	return nil
}
