package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/gomail.v2"

	"github.com/courierhq/courier/internal/models"
)

// SMTPConfig holds the connection settings for the SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// RetryWindow bounds how long a single Send keeps retrying transient
	// failures. Zero disables retries.
	RetryWindow time.Duration
}

// SMTPSender delivers messages over SMTP using gomail, retrying transient
// failures with exponential backoff inside the configured window.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender creates an SMTP transport from the given settings.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *SMTPSender) Name() string {
	return "smtp"
}

func (s *SMTPSender) Send(ctx context.Context, msg models.EmailMessage) models.EmailSendResult {
	m := gomail.NewMessage()
	m.SetHeader("From", formatAddress(m, msg.From))
	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, formatAddress(m, addr))
	}
	m.SetHeader("To", to...)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != nil {
		m.SetHeader("Reply-To", formatAddress(m, *msg.ReplyTo))
	}
	m.SetBody("text/html", msg.HTML)
	if msg.Text != "" {
		m.AddAlternative("text/plain", msg.Text)
	}

	operation := func() error {
		return s.dialer.DialAndSend(m)
	}

	var err error
	if s.cfg.RetryWindow > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 500 * time.Millisecond
		b.MaxElapsedTime = s.cfg.RetryWindow
		err = backoff.Retry(operation, backoff.WithContext(b, ctx))
	} else {
		err = operation()
	}
	if err != nil {
		slog.Error("smtp delivery failed", "host", s.cfg.Host, "subject", msg.Subject, "error", err)
		return models.EmailSendResult{
			Success: false,
			Error:   fmt.Sprintf("smtp send error: %v", err),
		}
	}

	return models.EmailSendResult{
		Success:   true,
		MessageID: fmt.Sprintf("smtp-%d", time.Now().UnixMilli()),
	}
}

// formatAddress renders an address with its optional display name.
func formatAddress(m *gomail.Message, addr models.EmailAddress) string {
	if addr.Name == "" {
		return addr.Email
	}
	return m.FormatAddress(addr.Email, addr.Name)
}
