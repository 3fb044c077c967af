// Package store provides storage backends for Courier.
//
// It persists the email queue, throttle records, and email templates. SQLite
// is the primary backend (single writer); a PostgreSQL backend and an
// in-memory store for tests implement the same interface.
package store

import (
	"fmt"
	"time"

	"github.com/courierhq/courier/internal/models"
)

// ThrottleChannel is the delivery channel baked into every throttle key.
// The service only delivers email; the column is persisted so adding another
// channel later is a data change, not a schema change.
const ThrottleChannel = "email"

// Store is the persistence interface consumed by the enqueue service and the
// queue processor.
type Store interface {
	// Email queue. MarkEmailSending, MarkEmailSent, and MarkEmailFailed are
	// no-ops for unknown IDs.
	CreateEmailQueueItem(item models.CreateEmailQueueItem) (models.EmailQueueItem, error)
	GetEmailQueueItem(id string) (*models.EmailQueueItem, error)
	FindPendingEmails(limit int) ([]models.EmailQueueItem, error)
	MarkEmailSending(id string) error
	MarkEmailSent(id string) error
	MarkEmailFailed(id string, errMsg string, maxAttempts int) error

	// RequeueStaleSending resets rows stuck in sending since before
	// staleBefore back to pending (crash recovery). Returns the number of
	// rows requeued.
	RequeueStaleSending(staleBefore time.Time) (int, error)

	// Throttle. RecordSent is an upsert: repeat calls for the same key
	// overwrite last_sent_at. IsThrottled returns false for unknown keys and
	// for non-positive intervals.
	IsThrottled(category, recipientID, contextID string, interval time.Duration) (bool, error)
	RecordSent(category, recipientID, contextID string) error

	// Email templates. GetTemplate and UpdateTemplate return nil (no error)
	// when the template does not exist.
	GetTemplate(name string) (*models.EmailTemplate, error)
	ListTemplates() ([]models.EmailTemplate, error)
	CreateTemplate(data models.CreateEmailTemplate) (models.EmailTemplate, error)
	UpdateTemplate(name string, data models.UpdateEmailTemplate) (*models.EmailTemplate, error)
	DeleteTemplate(name string) (bool, error)

	// Truncation helpers for tests and ops tooling.
	ClearEmailQueue() error
	ClearThrottle() error
	ClearTemplates() error

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// makeThrottleID builds the composite throttle key. At most one record exists
// per distinct (channel, category, recipientID, contextID) tuple.
func makeThrottleID(category, recipientID, contextID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", ThrottleChannel, category, recipientID, contextID)
}
