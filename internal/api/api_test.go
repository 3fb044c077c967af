package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/courierhq/courier/internal/email"
	"github.com/courierhq/courier/internal/models"
	"github.com/courierhq/courier/internal/queue"
	"github.com/courierhq/courier/internal/store"
)

const testCronSecret = "test-cron-secret"

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	st := store.NewInMemoryStore()
	enq := queue.NewEnqueuer(st)
	proc := queue.NewProcessor(st, email.NewConsoleSender(), queue.ProcessorConfig{
		BatchSize:   10,
		MaxAttempts: 3,
		FromEmail:   "noreply@courier.test",
		FromName:    "Courier",
	})
	srv := httptest.NewServer(NewServer(st, enq, proc, testCronSecret).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) models.APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return envelope
}

func decodeSendResult(t *testing.T, envelope models.APIResponse) models.SendResult {
	t.Helper()
	data, err := json.Marshal(envelope.Result)
	if err != nil {
		t.Fatalf("failed to re-marshal result: %v", err)
	}
	var result models.SendResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to decode send result: %v", err)
	}
	return result
}

func registerTestTemplate(t *testing.T, baseURL string) {
	t.Helper()
	resp := postJSON(t, baseURL+"/templates", models.CreateEmailTemplate{
		Name:     "test-welcome",
		Subject:  "Welcome {{name}}!",
		BodyHTML: "<p>Hello {{name}}!</p>",
		BodyText: "Hello {{name}}!",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("template registration returned %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", resp.StatusCode)
	}
	envelope := decodeResponse(t, resp)
	if envelope.Status != "ok" {
		t.Errorf("status = %q, want ok", envelope.Status)
	}
}

func TestSendEmailEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	registerTestTemplate(t, srv.URL)

	input := models.SendEmailInput{
		Template:           "test-welcome",
		Recipient:          models.Recipient{ID: "user-1", Email: "user@test.com", Name: "User"},
		Variables:          `{"name":"Alice"}`,
		Category:           "welcome",
		ContextID:          "signup-1",
		ThrottleIntervalMs: 60000,
	}

	resp := postJSON(t, srv.URL+"/emails", input)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /emails = %d, want 200", resp.StatusCode)
	}
	result := decodeSendResult(t, decodeResponse(t, resp))
	if !result.Success || result.Throttled {
		t.Fatalf("first send = %+v", result)
	}

	resp = postJSON(t, srv.URL+"/emails", input)
	result = decodeSendResult(t, decodeResponse(t, resp))
	if !result.Success || !result.Throttled {
		t.Fatalf("second send = %+v, want throttled", result)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 1 {
		t.Errorf("queue has %d items, want 1", len(pending))
	}
	if pending[0].Subject != "Welcome Alice!" {
		t.Errorf("Subject = %q", pending[0].Subject)
	}
}

func TestSendEmailMissingTemplate(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/emails", models.SendEmailInput{
		Template:  "non-existent",
		Recipient: models.Recipient{ID: "user-1", Email: "user@test.com"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /emails = %d, want 200", resp.StatusCode)
	}
	result := decodeSendResult(t, decodeResponse(t, resp))
	if result.Success {
		t.Fatal("send succeeded for missing template")
	}
	if result.Error == "" {
		t.Error("result missing error message")
	}
}

func TestSendEmailInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/emails", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST /emails failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST /emails with bad JSON = %d, want 400", resp.StatusCode)
	}
}

func TestSendRawEmailValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/emails/raw", models.SendRawEmailInput{
		Recipient: models.Recipient{ID: "user-1", Email: "user@test.com"},
		BodyHTML:  "<p>no subject</p>",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST /emails/raw without subject = %d, want 400", resp.StatusCode)
	}
}

func TestSendNotificationEndpoint(t *testing.T) {
	srv, st := newTestServer(t)

	resp := postJSON(t, srv.URL+"/notifications", models.NotificationPayload{
		Type:      models.NotificationAuctionWon,
		Recipient: models.Recipient{ID: "user-1", Email: "user@test.com", Name: "User"},
		Data: map[string]interface{}{
			"itemTitle":  "Vintage Camera",
			"finalPrice": 125,
			"sellerName": "Bob",
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /notifications = %d, want 200", resp.StatusCode)
	}
	result := decodeSendResult(t, decodeResponse(t, resp))
	if !result.Success {
		t.Fatalf("send failed: %s", result.Error)
	}

	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 1 {
		t.Fatalf("queue has %d items, want 1", len(pending))
	}
	if pending[0].Category != string(models.NotificationAuctionWon) {
		t.Errorf("Category = %q", pending[0].Category)
	}
}

func TestSendNotificationUnknownType(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/notifications", models.NotificationPayload{
		Type:      "BOGUS",
		Recipient: models.Recipient{ID: "user-1", Email: "user@test.com"},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST /notifications with unknown type = %d, want 400", resp.StatusCode)
	}
}

func TestTemplateCRUDEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	registerTestTemplate(t, srv.URL)

	// Duplicate registration conflicts.
	resp := postJSON(t, srv.URL+"/templates", models.CreateEmailTemplate{
		Name:    "test-welcome",
		Subject: "Again",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate registration = %d, want 409", resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/templates/test-welcome")
	if err != nil {
		t.Fatalf("GET template failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET existing template = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/templates/absent")
	if err != nil {
		t.Fatalf("GET template failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing template = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	newSubject := "Hi {{name}}!"
	data, _ := json.Marshal(models.UpdateEmailTemplate{Subject: &newSubject})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/templates/test-welcome", bytes.NewReader(data))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT template failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("PUT template = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/templates/test-welcome", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE template failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("DELETE template = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/templates/test-welcome", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE template failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestProcessQueueEndpointAuth(t *testing.T) {
	srv, st := newTestServer(t)
	enq := queue.NewEnqueuer(st)
	enq.SendRawEmail(models.SendRawEmailInput{
		Recipient: models.Recipient{ID: "user-1", Email: "user@test.com"},
		Subject:   "Hello",
		BodyHTML:  "<p>Hello</p>",
	})

	// Missing token.
	resp, err := http.Post(srv.URL+"/internal/cron/process-queue", "application/json", nil)
	if err != nil {
		t.Fatalf("POST cron failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("cron without token = %d, want 401", resp.StatusCode)
	}

	// Wrong token.
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/internal/cron/process-queue", nil)
	req.Header.Set("Authorization", "Bearer wrong-secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST cron failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("cron with wrong token = %d, want 401", resp.StatusCode)
	}

	// Unauthorized calls must not have touched the queue.
	pending, _ := st.FindPendingEmails(10)
	if len(pending) != 1 {
		t.Fatalf("queue has %d pending after rejected cron calls, want 1", len(pending))
	}

	// Correct token drains the batch.
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/internal/cron/process-queue", nil)
	req.Header.Set("Authorization", "Bearer "+testCronSecret)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST cron failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cron with valid token = %d, want 200", resp.StatusCode)
	}
	envelope := decodeResponse(t, resp)
	data, _ := json.Marshal(envelope.Result)
	var counts models.ProcessResult
	if err := json.Unmarshal(data, &counts); err != nil {
		t.Fatalf("failed to decode process result: %v", err)
	}
	if counts.Processed != 1 || counts.Sent != 1 || counts.Failed != 0 {
		t.Errorf("process counts = %+v, want {1 1 0}", counts)
	}

	pending, _ = st.FindPendingEmails(10)
	if len(pending) != 0 {
		t.Errorf("queue has %d pending after drain, want 0", len(pending))
	}
}

func TestProcessQueueEndpointMethodGuard(t *testing.T) {
	srv, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/internal/cron/process-queue", nil)
	req.Header.Set("Authorization", "Bearer "+testCronSecret)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET cron failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET cron = %d, want 405", resp.StatusCode)
	}
}
