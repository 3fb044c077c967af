package email

import (
	"context"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"

	"github.com/courierhq/courier/internal/models"
)

func TestConsoleSenderSend(t *testing.T) {
	sender := NewConsoleSender()
	if sender.Name() != "console" {
		t.Errorf("Name() = %q, want console", sender.Name())
	}

	result := sender.Send(context.Background(), models.EmailMessage{
		From:    models.EmailAddress{Email: "noreply@courier.test", Name: "Courier"},
		To:      []models.EmailAddress{{Email: "user@test.com", Name: "Test User"}},
		Subject: "Hello",
		HTML:    "<p>Hello</p>",
		Text:    "Hello",
	})
	if !result.Success {
		t.Fatalf("Send failed: %s", result.Error)
	}
	if !strings.HasPrefix(result.MessageID, "console-") {
		t.Errorf("MessageID = %q, want console- prefix", result.MessageID)
	}
	if result.Error != "" {
		t.Errorf("Error = %q, want empty", result.Error)
	}
}

func TestSMTPSenderName(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025})
	if sender.Name() != "smtp" {
		t.Errorf("Name() = %q, want smtp", sender.Name())
	}
}

func TestSMTPSenderUnreachableHostReturnsError(t *testing.T) {
	// Port 1 on localhost refuses connections, so DialAndSend fails fast.
	sender := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1})
	result := sender.Send(context.Background(), models.EmailMessage{
		From:    models.EmailAddress{Email: "noreply@courier.test"},
		To:      []models.EmailAddress{{Email: "user@test.com"}},
		Subject: "Hello",
		HTML:    "<p>Hello</p>",
	})
	if result.Success {
		t.Fatal("Send succeeded against unreachable host")
	}
	if result.Error == "" {
		t.Error("Error empty on failed send")
	}
}

func TestFormatAddress(t *testing.T) {
	m := gomail.NewMessage()
	if got := formatAddress(m, models.EmailAddress{Email: "user@test.com"}); got != "user@test.com" {
		t.Errorf("formatAddress without name = %q", got)
	}
	got := formatAddress(m, models.EmailAddress{Email: "user@test.com", Name: "Test User"})
	if !strings.Contains(got, "user@test.com") || !strings.Contains(got, "Test User") {
		t.Errorf("formatAddress with name = %q", got)
	}
}
