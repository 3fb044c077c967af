// Package email provides the outbound email transports. A transport takes a
// fully rendered message and attempts delivery, reporting the outcome as a
// result value rather than letting errors escape its boundary.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courierhq/courier/internal/models"
)

// Sender delivers one rendered email. Implementations report delivery
// failures through the result's Error field; Send never panics outward.
type Sender interface {
	// Send attempts delivery of the message. The context bounds any network
	// I/O the transport performs.
	Send(ctx context.Context, msg models.EmailMessage) models.EmailSendResult

	// Name identifies the transport in logs.
	Name() string
}

// ConsoleSender logs messages instead of delivering them. It is the default
// transport for local development.
type ConsoleSender struct{}

var _ Sender = (*ConsoleSender)(nil)

// NewConsoleSender creates a console transport.
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

func (s *ConsoleSender) Name() string {
	return "console"
}

func (s *ConsoleSender) Send(_ context.Context, msg models.EmailMessage) models.EmailSendResult {
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		recipients = append(recipients, to.Email)
	}
	slog.Info("console email transport delivering message",
		"from", msg.From.Email,
		"to", recipients,
		"subject", msg.Subject,
		"textLength", len(msg.Text),
		"htmlLength", len(msg.HTML))
	return models.EmailSendResult{
		Success:   true,
		MessageID: fmt.Sprintf("console-%d", time.Now().UnixMilli()),
	}
}
