package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/courierhq/courier/internal/models"
	"github.com/courierhq/courier/internal/util"
)

const emailQueueColumns = `id, template_name, status, recipient_id, recipient_email, recipient_name,
	subject, body_html, body_text, category, metadata, attempts, last_error, created_at, sent_at`

// CreateEmailQueueItem inserts a new pending queue row and returns the
// persisted record. The ID, status, attempts, and created_at are assigned
// here; content fields are write-once.
func (s *SQLiteStore) CreateEmailQueueItem(item models.CreateEmailQueueItem) (models.EmailQueueItem, error) {
	id := util.GenerateQueueID()
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO email_queue (id, template_name, status, recipient_id, recipient_email, recipient_name,
			subject, body_html, body_text, category, metadata, attempts, last_error, created_at, sent_at)
		 VALUES (?, ?, 'pending', ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, NULL)`,
		id, nilIfEmpty(item.TemplateName), item.RecipientID, item.RecipientEmail, item.RecipientName,
		item.Subject, item.BodyHTML, item.BodyText, nilIfEmpty(item.Category), nilIfEmpty(item.Metadata), now,
	)
	if err != nil {
		slog.Error("SQLiteStore CreateEmailQueueItem failed", "error", err, "recipient", item.RecipientEmail)
		return models.EmailQueueItem{}, fmt.Errorf("failed to insert email queue item: %w", err)
	}

	created, err := s.GetEmailQueueItem(id)
	if err != nil {
		return models.EmailQueueItem{}, err
	}
	if created == nil {
		return models.EmailQueueItem{}, fmt.Errorf("email queue item %s not found after insert", id)
	}
	slog.Debug("SQLiteStore CreateEmailQueueItem succeeded", "id", id, "recipient", item.RecipientEmail)
	return *created, nil
}

// GetEmailQueueItem retrieves a single queue row by ID. Returns nil if absent.
func (s *SQLiteStore) GetEmailQueueItem(id string) (*models.EmailQueueItem, error) {
	row := s.db.QueryRow(`SELECT `+emailQueueColumns+` FROM email_queue WHERE id = ?`, id)
	item, err := scanEmailQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetEmailQueueItem failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get email queue item %s: %w", id, err)
	}
	return &item, nil
}

// FindPendingEmails returns up to limit pending rows, oldest first. Ties on
// created_at break by insertion order (rowid).
func (s *SQLiteStore) FindPendingEmails(limit int) ([]models.EmailQueueItem, error) {
	rows, err := s.db.Query(
		`SELECT `+emailQueueColumns+` FROM email_queue
		 WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		slog.Error("SQLiteStore FindPendingEmails query failed", "error", err)
		return nil, fmt.Errorf("failed to query pending emails: %w", err)
	}
	defer rows.Close()

	var items []models.EmailQueueItem
	for rows.Next() {
		item, err := scanEmailQueueItem(rows)
		if err != nil {
			slog.Error("SQLiteStore FindPendingEmails scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan email queue row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore FindPendingEmails rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate email queue rows: %w", err)
	}
	slog.Debug("SQLiteStore FindPendingEmails succeeded", "count", len(items), "limit", limit)
	return items, nil
}

// MarkEmailSending sets status = sending. A row in sending status is
// invisible to FindPendingEmails, preventing double pickup within one pass.
func (s *SQLiteStore) MarkEmailSending(id string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE email_queue SET status = 'sending', sending_at = ? WHERE id = ?`, now, id)
	if err != nil {
		slog.Error("SQLiteStore MarkEmailSending failed", "error", err, "id", id)
		return fmt.Errorf("failed to mark email %s sending: %w", id, err)
	}
	return nil
}

// MarkEmailSent sets status = sent and stamps sent_at.
func (s *SQLiteStore) MarkEmailSent(id string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE email_queue SET status = 'sent', sent_at = ?, sending_at = NULL WHERE id = ?`, now, id)
	if err != nil {
		slog.Error("SQLiteStore MarkEmailSent failed", "error", err, "id", id)
		return fmt.Errorf("failed to mark email %s sent: %w", id, err)
	}
	return nil
}

// MarkEmailFailed records one failed delivery attempt. The row returns to
// pending while attempts stays below maxAttempts; otherwise it becomes
// permanently failed. Unknown IDs are a no-op.
func (s *SQLiteStore) MarkEmailFailed(id string, errMsg string, maxAttempts int) error {
	var attempts int
	err := s.db.QueryRow(`SELECT attempts FROM email_queue WHERE id = ?`, id).Scan(&attempts)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore MarkEmailFailed: id not found", "id", id)
		return nil
	}
	if err != nil {
		slog.Error("SQLiteStore MarkEmailFailed lookup failed", "error", err, "id", id)
		return fmt.Errorf("failed to look up email %s: %w", id, err)
	}

	newAttempts := attempts + 1
	newStatus := models.EmailStatusPending
	if newAttempts >= maxAttempts {
		newStatus = models.EmailStatusFailed
	}

	_, err = s.db.Exec(
		`UPDATE email_queue SET status = ?, attempts = ?, last_error = ?, sending_at = NULL WHERE id = ?`,
		string(newStatus), newAttempts, errMsg, id,
	)
	if err != nil {
		slog.Error("SQLiteStore MarkEmailFailed update failed", "error", err, "id", id)
		return fmt.Errorf("failed to mark email %s failed: %w", id, err)
	}
	slog.Debug("SQLiteStore MarkEmailFailed", "id", id, "attempts", newAttempts, "status", newStatus)
	return nil
}

// RequeueStaleSending resets rows stuck in sending since before staleBefore
// back to pending. Run once at processor startup; a row only lands here when
// the process died between MarkEmailSending and the terminal transition.
func (s *SQLiteStore) RequeueStaleSending(staleBefore time.Time) (int, error) {
	result, err := s.db.Exec(
		`UPDATE email_queue SET status = 'pending', sending_at = NULL
		 WHERE status = 'sending' AND sending_at < ?`,
		staleBefore.UTC(),
	)
	if err != nil {
		slog.Error("SQLiteStore RequeueStaleSending failed", "error", err)
		return 0, fmt.Errorf("failed to requeue stale sending emails: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		slog.Info("SQLiteStore RequeueStaleSending", "requeued", n)
	}
	return int(n), nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmailQueueItem(row rowScanner) (models.EmailQueueItem, error) {
	var item models.EmailQueueItem
	var templateName, category, metadata, lastError sql.NullString
	var status string
	var sentAt sql.NullTime
	err := row.Scan(
		&item.ID, &templateName, &status, &item.RecipientID, &item.RecipientEmail, &item.RecipientName,
		&item.Subject, &item.BodyHTML, &item.BodyText, &category, &metadata,
		&item.Attempts, &lastError, &item.CreatedAt, &sentAt,
	)
	if err != nil {
		return item, err
	}
	item.Status = models.EmailStatus(status)
	item.TemplateName = templateName.String
	item.Category = category.String
	item.Metadata = metadata.String
	item.LastError = lastError.String
	if sentAt.Valid {
		item.SentAt = &sentAt.Time
	}
	return item, nil
}
