// Package store provides storage backends for Courier.
//
// This file implements an in-memory store used by unit tests and local
// development. It honors the same transition rules as the SQL backends.
package store

import (
	"sync"
	"time"

	"github.com/courierhq/courier/internal/models"
	"github.com/courierhq/courier/internal/util"
)

// InMemoryStore is a mutex-guarded Store implementation with no durability.
type InMemoryStore struct {
	mu        sync.Mutex
	queue     []*models.EmailQueueItem // insertion order
	sendingAt map[string]time.Time
	throttle  map[string]models.ThrottleRecord
	templates map[string]models.EmailTemplate
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sendingAt: make(map[string]time.Time),
		throttle:  make(map[string]models.ThrottleRecord),
		templates: make(map[string]models.EmailTemplate),
	}
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) find(id string) *models.EmailQueueItem {
	for _, item := range s.queue {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// CreateEmailQueueItem appends a new pending item.
func (s *InMemoryStore) CreateEmailQueueItem(item models.CreateEmailQueueItem) (models.EmailQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := &models.EmailQueueItem{
		ID:             util.GenerateQueueID(),
		TemplateName:   item.TemplateName,
		Status:         models.EmailStatusPending,
		RecipientID:    item.RecipientID,
		RecipientEmail: item.RecipientEmail,
		RecipientName:  item.RecipientName,
		Subject:        item.Subject,
		BodyHTML:       item.BodyHTML,
		BodyText:       item.BodyText,
		Category:       item.Category,
		Metadata:       item.Metadata,
		CreatedAt:      time.Now().UTC(),
	}
	s.queue = append(s.queue, created)
	return *created, nil
}

// GetEmailQueueItem retrieves an item by ID. Returns nil if absent.
func (s *InMemoryStore) GetEmailQueueItem(id string) (*models.EmailQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return nil, nil
	}
	out := *item
	return &out, nil
}

// FindPendingEmails returns up to limit pending items in insertion order.
func (s *InMemoryStore) FindPendingEmails(limit int) ([]models.EmailQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.EmailQueueItem
	for _, item := range s.queue {
		if item.Status != models.EmailStatusPending {
			continue
		}
		items = append(items, *item)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

// MarkEmailSending sets status = sending. No-op for unknown IDs.
func (s *InMemoryStore) MarkEmailSending(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(id); item != nil {
		item.Status = models.EmailStatusSending
		s.sendingAt[id] = time.Now().UTC()
	}
	return nil
}

// MarkEmailSent sets status = sent and stamps sent_at. No-op for unknown IDs.
func (s *InMemoryStore) MarkEmailSent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(id); item != nil {
		now := time.Now().UTC()
		item.Status = models.EmailStatusSent
		item.SentAt = &now
		delete(s.sendingAt, id)
	}
	return nil
}

// MarkEmailFailed records one failed attempt; pending below maxAttempts,
// failed at or above it. No-op for unknown IDs.
func (s *InMemoryStore) MarkEmailFailed(id string, errMsg string, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return nil
	}
	item.Attempts++
	item.LastError = errMsg
	if item.Attempts >= maxAttempts {
		item.Status = models.EmailStatusFailed
	} else {
		item.Status = models.EmailStatusPending
	}
	delete(s.sendingAt, id)
	return nil
}

// RequeueStaleSending resets items stuck in sending since before staleBefore.
func (s *InMemoryStore) RequeueStaleSending(staleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, item := range s.queue {
		if item.Status != models.EmailStatusSending {
			continue
		}
		at, ok := s.sendingAt[item.ID]
		if ok && at.Before(staleBefore) {
			item.Status = models.EmailStatusPending
			delete(s.sendingAt, item.ID)
			n++
		}
	}
	return n, nil
}

// IsThrottled reports whether a send for the given key is currently suppressed.
func (s *InMemoryStore) IsThrottled(category, recipientID, contextID string, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.throttle[makeThrottleID(category, recipientID, contextID)]
	if !ok {
		return false, nil
	}
	return time.Since(rec.LastSentAt) < interval, nil
}

// RecordSent upserts the throttle record for the given key with the current time.
func (s *InMemoryStore) RecordSent(category, recipientID, contextID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := makeThrottleID(category, recipientID, contextID)
	s.throttle[id] = models.ThrottleRecord{
		ID:          id,
		Channel:     ThrottleChannel,
		Category:    category,
		RecipientID: recipientID,
		ContextID:   contextID,
		LastSentAt:  time.Now().UTC(),
	}
	return nil
}

// GetTemplate retrieves a template by name. Returns nil if absent.
func (s *InMemoryStore) GetTemplate(name string) (*models.EmailTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl, ok := s.templates[name]
	if !ok {
		return nil, nil
	}
	return &tmpl, nil
}

// ListTemplates returns all templates (unordered; callers sort if needed).
func (s *InMemoryStore) ListTemplates() ([]models.EmailTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var templates []models.EmailTemplate
	for _, tmpl := range s.templates {
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// CreateTemplate registers a new template.
func (s *InMemoryStore) CreateTemplate(data models.CreateEmailTemplate) (models.EmailTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	tmpl := models.EmailTemplate{
		Name:      data.Name,
		Subject:   data.Subject,
		BodyHTML:  data.BodyHTML,
		BodyText:  data.BodyText,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.templates[data.Name] = tmpl
	return tmpl, nil
}

// UpdateTemplate applies a partial update. Returns nil if the template is absent.
func (s *InMemoryStore) UpdateTemplate(name string, data models.UpdateEmailTemplate) (*models.EmailTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl, ok := s.templates[name]
	if !ok {
		return nil, nil
	}
	if data.Subject != nil {
		tmpl.Subject = *data.Subject
	}
	if data.BodyHTML != nil {
		tmpl.BodyHTML = *data.BodyHTML
	}
	if data.BodyText != nil {
		tmpl.BodyText = *data.BodyText
	}
	tmpl.UpdatedAt = time.Now().UTC()
	s.templates[name] = tmpl
	return &tmpl, nil
}

// DeleteTemplate removes a template by name.
func (s *InMemoryStore) DeleteTemplate(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[name]; !ok {
		return false, nil
	}
	delete(s.templates, name)
	return true, nil
}

// ClearEmailQueue drops all queue items.
func (s *InMemoryStore) ClearEmailQueue() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	s.sendingAt = make(map[string]time.Time)
	return nil
}

// ClearThrottle drops all throttle records.
func (s *InMemoryStore) ClearThrottle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttle = make(map[string]models.ThrottleRecord)
	return nil
}

// ClearTemplates drops all templates.
func (s *InMemoryStore) ClearTemplates() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = make(map[string]models.EmailTemplate)
	return nil
}
