// Package store provides storage backends for Courier.
//
// This file implements the PostgreSQL-backed store for deployments that
// outgrow the single-file SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/courierhq/courier/internal/models"
	"github.com/courierhq/courier/internal/util"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is the PostgreSQL implementation of Store.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}

// CreateEmailQueueItem inserts a new pending queue row and returns the persisted record.
func (s *PostgresStore) CreateEmailQueueItem(item models.CreateEmailQueueItem) (models.EmailQueueItem, error) {
	id := util.GenerateQueueID()
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO email_queue (id, template_name, status, recipient_id, recipient_email, recipient_name,
			subject, body_html, body_text, category, metadata, attempts, last_error, created_at, sent_at)
		 VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7, $8, $9, $10, 0, NULL, $11, NULL)`,
		id, nilIfEmpty(item.TemplateName), item.RecipientID, item.RecipientEmail, item.RecipientName,
		item.Subject, item.BodyHTML, item.BodyText, nilIfEmpty(item.Category), nilIfEmpty(item.Metadata), now,
	)
	if err != nil {
		slog.Error("PostgresStore CreateEmailQueueItem failed", "error", err, "recipient", item.RecipientEmail)
		return models.EmailQueueItem{}, fmt.Errorf("failed to insert email queue item: %w", err)
	}

	created, err := s.GetEmailQueueItem(id)
	if err != nil {
		return models.EmailQueueItem{}, err
	}
	if created == nil {
		return models.EmailQueueItem{}, fmt.Errorf("email queue item %s not found after insert", id)
	}
	return *created, nil
}

// GetEmailQueueItem retrieves a single queue row by ID. Returns nil if absent.
func (s *PostgresStore) GetEmailQueueItem(id string) (*models.EmailQueueItem, error) {
	row := s.db.QueryRow(`SELECT `+emailQueueColumns+` FROM email_queue WHERE id = $1`, id)
	item, err := scanEmailQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetEmailQueueItem failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get email queue item %s: %w", id, err)
	}
	return &item, nil
}

// FindPendingEmails returns up to limit pending rows, oldest first. Ties on
// created_at break by insertion order (seq).
func (s *PostgresStore) FindPendingEmails(limit int) ([]models.EmailQueueItem, error) {
	rows, err := s.db.Query(
		`SELECT `+emailQueueColumns+` FROM email_queue
		 WHERE status = 'pending' ORDER BY created_at ASC, seq ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		slog.Error("PostgresStore FindPendingEmails query failed", "error", err)
		return nil, fmt.Errorf("failed to query pending emails: %w", err)
	}
	defer rows.Close()

	var items []models.EmailQueueItem
	for rows.Next() {
		item, err := scanEmailQueueItem(rows)
		if err != nil {
			slog.Error("PostgresStore FindPendingEmails scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan email queue row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore FindPendingEmails rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate email queue rows: %w", err)
	}
	return items, nil
}

// MarkEmailSending sets status = sending.
func (s *PostgresStore) MarkEmailSending(id string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE email_queue SET status = 'sending', sending_at = $1 WHERE id = $2`, now, id)
	if err != nil {
		slog.Error("PostgresStore MarkEmailSending failed", "error", err, "id", id)
		return fmt.Errorf("failed to mark email %s sending: %w", id, err)
	}
	return nil
}

// MarkEmailSent sets status = sent and stamps sent_at.
func (s *PostgresStore) MarkEmailSent(id string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE email_queue SET status = 'sent', sent_at = $1, sending_at = NULL WHERE id = $2`, now, id)
	if err != nil {
		slog.Error("PostgresStore MarkEmailSent failed", "error", err, "id", id)
		return fmt.Errorf("failed to mark email %s sent: %w", id, err)
	}
	return nil
}

// MarkEmailFailed records one failed delivery attempt; see the SQLite
// implementation for the transition rules.
func (s *PostgresStore) MarkEmailFailed(id string, errMsg string, maxAttempts int) error {
	var attempts int
	err := s.db.QueryRow(`SELECT attempts FROM email_queue WHERE id = $1`, id).Scan(&attempts)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		slog.Error("PostgresStore MarkEmailFailed lookup failed", "error", err, "id", id)
		return fmt.Errorf("failed to look up email %s: %w", id, err)
	}

	newAttempts := attempts + 1
	newStatus := models.EmailStatusPending
	if newAttempts >= maxAttempts {
		newStatus = models.EmailStatusFailed
	}

	_, err = s.db.Exec(
		`UPDATE email_queue SET status = $1, attempts = $2, last_error = $3, sending_at = NULL WHERE id = $4`,
		string(newStatus), newAttempts, errMsg, id,
	)
	if err != nil {
		slog.Error("PostgresStore MarkEmailFailed update failed", "error", err, "id", id)
		return fmt.Errorf("failed to mark email %s failed: %w", id, err)
	}
	return nil
}

// RequeueStaleSending resets rows stuck in sending since before staleBefore.
func (s *PostgresStore) RequeueStaleSending(staleBefore time.Time) (int, error) {
	result, err := s.db.Exec(
		`UPDATE email_queue SET status = 'pending', sending_at = NULL
		 WHERE status = 'sending' AND sending_at < $1`,
		staleBefore.UTC(),
	)
	if err != nil {
		slog.Error("PostgresStore RequeueStaleSending failed", "error", err)
		return 0, fmt.Errorf("failed to requeue stale sending emails: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		slog.Info("PostgresStore RequeueStaleSending", "requeued", n)
	}
	return int(n), nil
}

// IsThrottled reports whether a send for the given key is currently suppressed.
func (s *PostgresStore) IsThrottled(category, recipientID, contextID string, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return false, nil
	}
	id := makeThrottleID(category, recipientID, contextID)

	var lastSentAt time.Time
	err := s.db.QueryRow(`SELECT last_sent_at FROM email_throttle WHERE id = $1`, id).Scan(&lastSentAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		slog.Error("PostgresStore IsThrottled query failed", "error", err, "id", id)
		return false, fmt.Errorf("failed to query throttle record %s: %w", id, err)
	}
	return time.Since(lastSentAt) < interval, nil
}

// RecordSent upserts the throttle record for the given key with the current time.
func (s *PostgresStore) RecordSent(category, recipientID, contextID string) error {
	id := makeThrottleID(category, recipientID, contextID)
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO email_throttle (id, channel, category, recipient_id, context_id, last_sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET last_sent_at = EXCLUDED.last_sent_at`,
		id, ThrottleChannel, category, recipientID, contextID, now,
	)
	if err != nil {
		slog.Error("PostgresStore RecordSent failed", "error", err, "id", id)
		return fmt.Errorf("failed to upsert throttle record %s: %w", id, err)
	}
	return nil
}

// GetTemplate retrieves a template by name. Returns nil if absent.
func (s *PostgresStore) GetTemplate(name string) (*models.EmailTemplate, error) {
	var tmpl models.EmailTemplate
	err := s.db.QueryRow(
		`SELECT name, subject, body_html, body_text, created_at, updated_at FROM email_templates WHERE name = $1`,
		name,
	).Scan(&tmpl.Name, &tmpl.Subject, &tmpl.BodyHTML, &tmpl.BodyText, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetTemplate failed", "error", err, "name", name)
		return nil, fmt.Errorf("failed to get template %s: %w", name, err)
	}
	return &tmpl, nil
}

// ListTemplates returns all templates ordered by name.
func (s *PostgresStore) ListTemplates() ([]models.EmailTemplate, error) {
	rows, err := s.db.Query(
		`SELECT name, subject, body_html, body_text, created_at, updated_at FROM email_templates ORDER BY name`,
	)
	if err != nil {
		slog.Error("PostgresStore ListTemplates query failed", "error", err)
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []models.EmailTemplate
	for rows.Next() {
		var tmpl models.EmailTemplate
		if err := rows.Scan(&tmpl.Name, &tmpl.Subject, &tmpl.BodyHTML, &tmpl.BodyText, &tmpl.CreatedAt, &tmpl.UpdatedAt); err != nil {
			slog.Error("PostgresStore ListTemplates scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate template rows: %w", err)
	}
	return templates, nil
}

// CreateTemplate registers a new template.
func (s *PostgresStore) CreateTemplate(data models.CreateEmailTemplate) (models.EmailTemplate, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO email_templates (name, subject, body_html, body_text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		data.Name, data.Subject, data.BodyHTML, data.BodyText, now, now,
	)
	if err != nil {
		slog.Error("PostgresStore CreateTemplate failed", "error", err, "name", data.Name)
		return models.EmailTemplate{}, fmt.Errorf("failed to insert template %s: %w", data.Name, err)
	}
	return models.EmailTemplate{
		Name:      data.Name,
		Subject:   data.Subject,
		BodyHTML:  data.BodyHTML,
		BodyText:  data.BodyText,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateTemplate applies a partial update to an existing template. Returns
// the updated template, or nil if the template does not exist.
func (s *PostgresStore) UpdateTemplate(name string, data models.UpdateEmailTemplate) (*models.EmailTemplate, error) {
	existing, err := s.GetTemplate(name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	subject := existing.Subject
	if data.Subject != nil {
		subject = *data.Subject
	}
	bodyHTML := existing.BodyHTML
	if data.BodyHTML != nil {
		bodyHTML = *data.BodyHTML
	}
	bodyText := existing.BodyText
	if data.BodyText != nil {
		bodyText = *data.BodyText
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		`UPDATE email_templates SET subject = $1, body_html = $2, body_text = $3, updated_at = $4 WHERE name = $5`,
		subject, bodyHTML, bodyText, now, name,
	)
	if err != nil {
		slog.Error("PostgresStore UpdateTemplate failed", "error", err, "name", name)
		return nil, fmt.Errorf("failed to update template %s: %w", name, err)
	}

	return &models.EmailTemplate{
		Name:      name,
		Subject:   subject,
		BodyHTML:  bodyHTML,
		BodyText:  bodyText,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now,
	}, nil
}

// DeleteTemplate removes a template by name. Reports whether a row existed.
func (s *PostgresStore) DeleteTemplate(name string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM email_templates WHERE name = $1`, name)
	if err != nil {
		slog.Error("PostgresStore DeleteTemplate failed", "error", err, "name", name)
		return false, fmt.Errorf("failed to delete template %s: %w", name, err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ClearEmailQueue deletes all records in the email queue table (for tests).
func (s *PostgresStore) ClearEmailQueue() error {
	_, err := s.db.Exec("DELETE FROM email_queue")
	return err
}

// ClearThrottle deletes all throttle records (for tests).
func (s *PostgresStore) ClearThrottle() error {
	_, err := s.db.Exec("DELETE FROM email_throttle")
	return err
}

// ClearTemplates deletes all email templates (for tests).
func (s *PostgresStore) ClearTemplates() error {
	_, err := s.db.Exec("DELETE FROM email_templates")
	return err
}
