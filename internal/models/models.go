// Package models defines the core data structures for Courier.
//
// It includes the email queue item, throttle record, template, and transport
// message types shared across modules.
package models

import (
	"errors"
	"time"
)

// EmailStatus represents the lifecycle state of a queued email.
type EmailStatus string

const (
	// EmailStatusPending marks an email waiting for delivery.
	EmailStatusPending EmailStatus = "pending"
	// EmailStatusSending marks an email currently being handed to the transport.
	EmailStatusSending EmailStatus = "sending"
	// EmailStatusSent marks a successfully delivered email (terminal).
	EmailStatusSent EmailStatus = "sent"
	// EmailStatusFailed marks an email that exhausted its delivery attempts (terminal).
	EmailStatusFailed EmailStatus = "failed"
)

// Validation constants for input validation
const (
	// MaxQueueIDLength defines the maximum length of a queue item ID
	MaxQueueIDLength = 16
	// MaxSubjectLength defines the maximum allowed length for an email subject
	MaxSubjectLength = 500
	// MaxCategoryLength defines the maximum allowed length for a throttle category
	MaxCategoryLength = 50
)

// Error variables for better error handling and testability
var (
	ErrEmptyRecipientID    = errors.New("recipient id cannot be empty")
	ErrEmptyRecipientEmail = errors.New("recipient email cannot be empty")
	ErrEmptyTemplateName   = errors.New("template name cannot be empty")
	ErrEmptySubject        = errors.New("subject cannot be empty")
	ErrSubjectTooLong      = errors.New("subject exceeds maximum length")
	ErrEmptyBody           = errors.New("email body cannot be empty")
)

// Recipient is the denormalized recipient snapshot captured at enqueue time.
type Recipient struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate checks that the recipient carries the fields the queue requires.
func (r *Recipient) Validate() error {
	if r.ID == "" {
		return ErrEmptyRecipientID
	}
	if r.Email == "" {
		return ErrEmptyRecipientEmail
	}
	return nil
}

// EmailQueueItem represents one outbound email awaiting or having undergone delivery.
//
// Content fields are write-once at creation; only Status, Attempts, LastError,
// and SentAt mutate afterward.
type EmailQueueItem struct {
	ID             string      `json:"id"`
	TemplateName   string      `json:"template_name,omitempty"` // empty for raw emails
	Status         EmailStatus `json:"status"`
	RecipientID    string      `json:"recipient_id"`
	RecipientEmail string      `json:"recipient_email"`
	RecipientName  string      `json:"recipient_name"`
	Subject        string      `json:"subject"`
	BodyHTML       string      `json:"body_html"`
	BodyText       string      `json:"body_text"`
	Category       string      `json:"category,omitempty"`
	Metadata       string      `json:"metadata,omitempty"`
	Attempts       int         `json:"attempts"`
	LastError      string      `json:"last_error,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	SentAt         *time.Time  `json:"sent_at,omitempty"`
}

// CreateEmailQueueItem carries the write-once fields of a new queue item.
// ID, status, attempts, and timestamps are assigned by the store.
type CreateEmailQueueItem struct {
	TemplateName   string
	RecipientID    string
	RecipientEmail string
	RecipientName  string
	Subject        string
	BodyHTML       string
	BodyText       string
	Category       string
	Metadata       string
}

// ThrottleRecord represents the most recent send timestamp for a rate-limited key.
type ThrottleRecord struct {
	ID          string    `json:"id"` // channel:category:recipient_id:context_id
	Channel     string    `json:"channel"`
	Category    string    `json:"category"`
	RecipientID string    `json:"recipient_id"`
	ContextID   string    `json:"context_id"`
	LastSentAt  time.Time `json:"last_sent_at"`
}

// EmailTemplate is a named, reusable email body with {{placeholder}} tokens.
type EmailTemplate struct {
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	BodyHTML  string    `json:"body_html"`
	BodyText  string    `json:"body_text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateEmailTemplate carries the fields for registering a new template.
type CreateEmailTemplate struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text"`
}

// Validate checks template registration input.
func (c *CreateEmailTemplate) Validate() error {
	if c.Name == "" {
		return ErrEmptyTemplateName
	}
	if c.Subject == "" {
		return ErrEmptySubject
	}
	if len(c.Subject) > MaxSubjectLength {
		return ErrSubjectTooLong
	}
	return nil
}

// UpdateEmailTemplate carries a partial template update; nil fields are left unchanged.
type UpdateEmailTemplate struct {
	Subject  *string `json:"subject,omitempty"`
	BodyHTML *string `json:"body_html,omitempty"`
	BodyText *string `json:"body_text,omitempty"`
}

// EmailContent is fully rendered email content ready to be queued.
type EmailContent struct {
	Subject string
	HTML    string
	Text    string
}

// EmailAddress is a display name plus address pair used by the transport.
type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EmailMessage is the transport-level representation of one outbound email.
type EmailMessage struct {
	From    EmailAddress
	To      []EmailAddress
	Subject string
	HTML    string
	Text    string
	ReplyTo *EmailAddress
}

// EmailSendResult is the outcome reported by an email transport. Transports
// return failures through Error rather than panicking or escaping.
type EmailSendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendResult is the outcome of an enqueue request. A throttled send is a
// success with Throttled set; it is an expected de-duplication outcome, not
// an error.
type SendResult struct {
	Success   bool   `json:"success"`
	Throttled bool   `json:"throttled"`
	Error     string `json:"error,omitempty"`
}

// ProcessResult aggregates the counters of one queue-processor invocation.
type ProcessResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}
