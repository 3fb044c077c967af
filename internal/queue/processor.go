package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courierhq/courier/internal/email"
	"github.com/courierhq/courier/internal/metrics"
	"github.com/courierhq/courier/internal/models"
	"github.com/courierhq/courier/internal/store"
)

// ProcessorConfig holds the delivery settings for one processor.
type ProcessorConfig struct {
	// BatchSize bounds how many pending rows one Process call claims.
	BatchSize int

	// MaxAttempts is the failure count at which a job goes terminal.
	MaxAttempts int

	// FromEmail and FromName form the envelope sender.
	FromEmail string
	FromName  string

	// StaleAfter is how long a job may sit in sending before RecoverStale
	// treats it as orphaned by a crash.
	StaleAfter time.Duration
}

// Processor drains pending queue rows through an email transport. It is
// stateless between invocations; every decision re-reads the store.
type Processor struct {
	st     store.Store
	sender email.Sender
	cfg    ProcessorConfig
}

// NewProcessor creates a Processor.
func NewProcessor(st store.Store, sender email.Sender, cfg ProcessorConfig) *Processor {
	return &Processor{st: st, sender: sender, cfg: cfg}
}

// Process claims one batch of pending jobs and attempts delivery for each in
// creation order. Failures are isolated per job; a batch-fetch failure yields
// a zero result rather than an error so the cron endpoint always gets counts.
func (p *Processor) Process(ctx context.Context) models.ProcessResult {
	var result models.ProcessResult

	pending, err := p.st.FindPendingEmails(p.cfg.BatchSize)
	if err != nil {
		slog.Error("queue processor could not fetch pending emails", "error", err)
		return result
	}
	if len(pending) == 0 {
		return result
	}

	slog.Info("processing pending emails", "count", len(pending), "transport", p.sender.Name())

	for _, item := range pending {
		result.Processed++
		if p.deliver(ctx, item) {
			result.Sent++
			metrics.EmailsSent.Inc()
		} else {
			result.Failed++
			metrics.EmailsFailed.Inc()
		}
	}

	return result
}

// deliver attempts one job and records the outcome. A panic below the
// transport boundary is treated as a failed attempt.
func (p *Processor) deliver(ctx context.Context, item models.EmailQueueItem) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			errMsg := fmt.Sprintf("panic during delivery: %v", r)
			slog.Error("error processing email", "id", item.ID, "error", errMsg)
			if err := p.st.MarkEmailFailed(item.ID, errMsg, p.cfg.MaxAttempts); err != nil {
				slog.Error("failed to mark email failed", "id", item.ID, "error", err)
			}
			sent = false
		}
	}()

	if err := p.st.MarkEmailSending(item.ID); err != nil {
		slog.Error("failed to mark email sending", "id", item.ID, "error", err)
		if err := p.st.MarkEmailFailed(item.ID, err.Error(), p.cfg.MaxAttempts); err != nil {
			slog.Error("failed to mark email failed", "id", item.ID, "error", err)
		}
		return false
	}

	sendResult := p.sender.Send(ctx, models.EmailMessage{
		From:    models.EmailAddress{Email: p.cfg.FromEmail, Name: p.cfg.FromName},
		To:      []models.EmailAddress{{Email: item.RecipientEmail, Name: item.RecipientName}},
		Subject: item.Subject,
		HTML:    item.BodyHTML,
		Text:    item.BodyText,
	})
	if !sendResult.Success {
		errMsg := sendResult.Error
		if errMsg == "" {
			errMsg = "unknown error"
		}
		slog.Error("failed to send email", "id", item.ID, "error", errMsg)
		if err := p.st.MarkEmailFailed(item.ID, errMsg, p.cfg.MaxAttempts); err != nil {
			slog.Error("failed to mark email failed", "id", item.ID, "error", err)
		}
		return false
	}

	if err := p.st.MarkEmailSent(item.ID); err != nil {
		slog.Error("failed to mark email sent", "id", item.ID, "error", err)
	}
	slog.Info("sent email", "id", item.ID, "recipient", item.RecipientEmail, "messageId", sendResult.MessageID)
	return true
}

// RecoverStale requeues jobs stuck in sending longer than StaleAfter, which
// happens when a previous process crashed mid-delivery.
func (p *Processor) RecoverStale() (int, error) {
	if p.cfg.StaleAfter <= 0 {
		return 0, nil
	}
	n, err := p.st.RequeueStaleSending(time.Now().Add(-p.cfg.StaleAfter))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale sending emails: %w", err)
	}
	if n > 0 {
		slog.Warn("requeued stale sending emails", "count", n)
	}
	return n, nil
}

// Run drains the queue on a fixed interval until the context is canceled.
// The cron endpoint remains the primary trigger; Run is for deployments
// without an external scheduler.
func (p *Processor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("queue processor poll loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("queue processor poll loop stopped")
			return
		case <-ticker.C:
			result := p.Process(ctx)
			if result.Processed > 0 {
				slog.Info("queue poll cycle complete",
					"processed", result.Processed, "sent", result.Sent, "failed", result.Failed)
			}
		}
	}
}
