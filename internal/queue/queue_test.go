package queue

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/courierhq/courier/internal/models"
	"github.com/courierhq/courier/internal/store"
)

// fakeSender records every message and returns scripted outcomes.
type fakeSender struct {
	sent    []models.EmailMessage
	fail    bool
	failMsg string
	panics  bool
}

func (f *fakeSender) Name() string { return "fake" }

func (f *fakeSender) Send(_ context.Context, msg models.EmailMessage) models.EmailSendResult {
	if f.panics {
		panic("transport blew up")
	}
	f.sent = append(f.sent, msg)
	if f.fail {
		return models.EmailSendResult{Success: false, Error: f.failMsg}
	}
	return models.EmailSendResult{Success: true, MessageID: "fake-1"}
}

func testRecipient() models.Recipient {
	return models.Recipient{ID: "user-1", Email: "user@test.com", Name: "Test User"}
}

func registerTemplate(t *testing.T, st store.Store) {
	t.Helper()
	_, err := st.CreateTemplate(models.CreateEmailTemplate{
		Name:     "test-welcome",
		Subject:  "Welcome {{name}}!",
		BodyHTML: "<p>Hello {{name}}, welcome to {{appName}}!</p>",
		BodyText: "Hello {{name}}, welcome to {{appName}}!",
	})
	if err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
}

func TestSendEmailRendersTemplate(t *testing.T) {
	st := store.NewInMemoryStore()
	registerTemplate(t, st)
	enq := NewEnqueuer(st)

	result := enq.SendEmail(models.SendEmailInput{
		Template:  "test-welcome",
		Recipient: testRecipient(),
		Variables: `{"name":"Alice","appName":"TestApp"}`,
	})
	if !result.Success || result.Throttled {
		t.Fatalf("SendEmail = %+v", result)
	}

	pending, err := st.FindPendingEmails(10)
	if err != nil {
		t.Fatalf("FindPendingEmails failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("queue has %d items, want 1", len(pending))
	}
	if pending[0].Subject != "Welcome Alice!" {
		t.Errorf("Subject = %q", pending[0].Subject)
	}
	if pending[0].BodyHTML != "<p>Hello Alice, welcome to TestApp!</p>" {
		t.Errorf("BodyHTML = %q", pending[0].BodyHTML)
	}
	if pending[0].TemplateName != "test-welcome" {
		t.Errorf("TemplateName = %q", pending[0].TemplateName)
	}
}

func TestSendEmailTemplateNotFound(t *testing.T) {
	st := store.NewInMemoryStore()
	enq := NewEnqueuer(st)

	result := enq.SendEmail(models.SendEmailInput{
		Template:  "non-existent",
		Recipient: testRecipient(),
	})
	if result.Success {
		t.Fatal("SendEmail succeeded for missing template")
	}
	if !strings.Contains(result.Error, "not found") {
		t.Errorf("Error = %q, want mention of not found", result.Error)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 0 {
		t.Errorf("queue has %d items after terminal error, want 0", len(pending))
	}
}

func TestSendEmailInvalidVariables(t *testing.T) {
	st := store.NewInMemoryStore()
	registerTemplate(t, st)
	enq := NewEnqueuer(st)

	result := enq.SendEmail(models.SendEmailInput{
		Template:  "test-welcome",
		Recipient: testRecipient(),
		Variables: "not-valid-json",
	})
	if result.Success {
		t.Fatal("SendEmail succeeded with malformed variables")
	}
	if result.Error == "" {
		t.Error("Error empty for malformed variables")
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 0 {
		t.Errorf("queue has %d items after terminal error, want 0", len(pending))
	}
}

func TestSendEmailThrottlesSecondCall(t *testing.T) {
	st := store.NewInMemoryStore()
	registerTemplate(t, st)
	enq := NewEnqueuer(st)

	input := models.SendEmailInput{
		Template:           "test-welcome",
		Recipient:          testRecipient(),
		Variables:          `{"name":"Alice","appName":"App"}`,
		Category:           "welcome",
		ContextID:          "signup-1",
		ThrottleIntervalMs: 60000,
	}

	first := enq.SendEmail(input)
	if !first.Success || first.Throttled {
		t.Fatalf("first SendEmail = %+v", first)
	}
	second := enq.SendEmail(input)
	if !second.Success || !second.Throttled {
		t.Fatalf("second SendEmail = %+v, want throttled success", second)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 1 {
		t.Errorf("queue has %d items, want 1", len(pending))
	}
}

func TestSendEmailStoresCategoryAndMetadata(t *testing.T) {
	st := store.NewInMemoryStore()
	registerTemplate(t, st)
	enq := NewEnqueuer(st)

	result := enq.SendEmail(models.SendEmailInput{
		Template:  "test-welcome",
		Recipient: testRecipient(),
		Variables: `{"name":"Bob","appName":"App"}`,
		Category:  "onboarding",
		Metadata:  `{"source":"signup"}`,
	})
	if !result.Success {
		t.Fatalf("SendEmail failed: %s", result.Error)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 1 {
		t.Fatalf("queue has %d items, want 1", len(pending))
	}
	if pending[0].Category != "onboarding" {
		t.Errorf("Category = %q", pending[0].Category)
	}
	if pending[0].Metadata != `{"source":"signup"}` {
		t.Errorf("Metadata = %q", pending[0].Metadata)
	}
}

func TestSendRawEmail(t *testing.T) {
	st := store.NewInMemoryStore()
	enq := NewEnqueuer(st)

	result := enq.SendRawEmail(models.SendRawEmailInput{
		Recipient: testRecipient(),
		Subject:   "Plain subject",
		BodyHTML:  "<p>Body</p>",
		BodyText:  "Body",
	})
	if !result.Success {
		t.Fatalf("SendRawEmail failed: %s", result.Error)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 1 {
		t.Fatalf("queue has %d items, want 1", len(pending))
	}
	if pending[0].TemplateName != "" {
		t.Errorf("TemplateName = %q, want empty for raw email", pending[0].TemplateName)
	}
	if pending[0].Subject != "Plain subject" {
		t.Errorf("Subject = %q", pending[0].Subject)
	}
}

func TestSendNotificationAppliesTypePolicy(t *testing.T) {
	st := store.NewInMemoryStore()
	enq := NewEnqueuer(st)

	payload := models.NotificationPayload{
		Type:      models.NotificationOutbid,
		Recipient: testRecipient(),
		Data: map[string]interface{}{
			"itemId":     "item-42",
			"itemTitle":  "Vintage Camera",
			"newHighBid": float64(150),
			"yourBid":    float64(120),
		},
	}

	first := enq.SendNotification(payload)
	if !first.Success || first.Throttled {
		t.Fatalf("first SendNotification = %+v", first)
	}
	second := enq.SendNotification(payload)
	if !second.Success || !second.Throttled {
		t.Fatalf("second SendNotification = %+v, want throttled success", second)
	}

	// A different item is a different throttle context.
	payload.Data["itemId"] = "item-43"
	third := enq.SendNotification(payload)
	if !third.Success || third.Throttled {
		t.Fatalf("third SendNotification = %+v, want unthrottled success", third)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 2 {
		t.Errorf("queue has %d items, want 2", len(pending))
	}
	if !strings.Contains(pending[0].Subject, "Vintage Camera") {
		t.Errorf("Subject = %q", pending[0].Subject)
	}
	if pending[0].Category != string(models.NotificationOutbid) {
		t.Errorf("Category = %q", pending[0].Category)
	}
}

func TestSendNotificationUnthrottledType(t *testing.T) {
	st := store.NewInMemoryStore()
	enq := NewEnqueuer(st)

	payload := models.NotificationPayload{
		Type:      models.NotificationAuctionWon,
		Recipient: testRecipient(),
		Data:      map[string]interface{}{"itemTitle": "Vintage Camera"},
	}
	for i := 0; i < 2; i++ {
		result := enq.SendNotification(payload)
		if !result.Success || result.Throttled {
			t.Fatalf("SendNotification #%d = %+v", i+1, result)
		}
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 2 {
		t.Errorf("queue has %d items, want 2 for unthrottled type", len(pending))
	}
}

func newTestProcessor(st store.Store, sender *fakeSender) *Processor {
	return NewProcessor(st, sender, ProcessorConfig{
		BatchSize:   10,
		MaxAttempts: 3,
		FromEmail:   "noreply@courier.test",
		FromName:    "Courier",
		StaleAfter:  10 * time.Minute,
	})
}

func TestProcessDeliversPending(t *testing.T) {
	st := store.NewInMemoryStore()
	enq := NewEnqueuer(st)
	enq.SendRawEmail(models.SendRawEmailInput{
		Recipient: testRecipient(),
		Subject:   "Hello",
		BodyHTML:  "<p>Hello</p>",
		BodyText:  "Hello",
	})

	sender := &fakeSender{}
	result := newTestProcessor(st, sender).Process(context.Background())
	if result.Processed != 1 || result.Sent != 1 || result.Failed != 0 {
		t.Fatalf("Process = %+v, want {1 1 0}", result)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("transport saw %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.From.Email != "noreply@courier.test" || msg.From.Name != "Courier" {
		t.Errorf("From = %+v", msg.From)
	}
	if len(msg.To) != 1 || msg.To[0].Email != "user@test.com" {
		t.Errorf("To = %+v", msg.To)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 0 {
		t.Errorf("queue has %d pending after successful process", len(pending))
	}
}

func TestProcessEmptyQueue(t *testing.T) {
	st := store.NewInMemoryStore()
	result := newTestProcessor(st, &fakeSender{}).Process(context.Background())
	if result.Processed != 0 || result.Sent != 0 || result.Failed != 0 {
		t.Errorf("Process on empty queue = %+v", result)
	}
}

func TestProcessFailureRetries(t *testing.T) {
	st := store.NewInMemoryStore()
	enq := NewEnqueuer(st)
	enq.SendRawEmail(models.SendRawEmailInput{
		Recipient: testRecipient(),
		Subject:   "Hello",
		BodyHTML:  "<p>Hello</p>",
	})

	sender := &fakeSender{fail: true, failMsg: "smtp timeout"}
	proc := newTestProcessor(st, sender)

	result := proc.Process(context.Background())
	if result.Processed != 1 || result.Sent != 0 || result.Failed != 1 {
		t.Fatalf("Process = %+v, want {1 0 1}", result)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 1 {
		t.Fatalf("failed job missing from pending: %d items", len(pending))
	}
	if pending[0].Attempts != 1 || pending[0].LastError != "smtp timeout" {
		t.Errorf("job = attempts %d, lastError %q", pending[0].Attempts, pending[0].LastError)
	}

	// Two more failures exhaust the attempt budget.
	proc.Process(context.Background())
	proc.Process(context.Background())

	pending, _ = st.FindPendingEmails(10)
	if len(pending) != 0 {
		t.Errorf("terminally failed job still pending: %d items", len(pending))
	}
}

func TestProcessTransportPanicIsFailedAttempt(t *testing.T) {
	st := store.NewInMemoryStore()
	enq := NewEnqueuer(st)
	enq.SendRawEmail(models.SendRawEmailInput{
		Recipient: testRecipient(),
		Subject:   "Hello",
		BodyHTML:  "<p>Hello</p>",
	})

	sender := &fakeSender{panics: true}
	result := newTestProcessor(st, sender).Process(context.Background())
	if result.Processed != 1 || result.Sent != 0 || result.Failed != 1 {
		t.Fatalf("Process = %+v, want {1 0 1}", result)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 1 {
		t.Fatalf("job after panic: %d pending, want 1", len(pending))
	}
	if !strings.Contains(pending[0].LastError, "panic") {
		t.Errorf("LastError = %q", pending[0].LastError)
	}
}

func TestRecoverStale(t *testing.T) {
	st := store.NewInMemoryStore()
	enq := NewEnqueuer(st)
	enq.SendRawEmail(models.SendRawEmailInput{
		Recipient: testRecipient(),
		Subject:   "Hello",
		BodyHTML:  "<p>Hello</p>",
	})
	pending, _ := st.FindPendingEmails(1)
	if err := st.MarkEmailSending(pending[0].ID); err != nil {
		t.Fatalf("MarkEmailSending failed: %v", err)
	}

	// Fresh sending rows stay claimed.
	proc := newTestProcessor(st, &fakeSender{})
	n, err := proc.RecoverStale()
	if err != nil {
		t.Fatalf("RecoverStale failed: %v", err)
	}
	if n != 0 {
		t.Errorf("RecoverStale requeued %d fresh rows", n)
	}

	// With no stale threshold, recovery is a no-op.
	procNoStale := NewProcessor(st, &fakeSender{}, ProcessorConfig{BatchSize: 10, MaxAttempts: 3})
	n, err = procNoStale.RecoverStale()
	if err != nil || n != 0 {
		t.Errorf("RecoverStale without threshold = %d, %v", n, err)
	}
}
