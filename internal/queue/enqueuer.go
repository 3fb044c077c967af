// Package queue holds the two halves of the email pipeline: the Enqueuer
// accepts send requests and persists queue rows, and the Processor drains
// pending rows through an email transport.
package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/courierhq/courier/internal/catalog"
	"github.com/courierhq/courier/internal/metrics"
	"github.com/courierhq/courier/internal/models"
	"github.com/courierhq/courier/internal/store"
	"github.com/courierhq/courier/internal/template"
	"github.com/courierhq/courier/internal/throttle"
)

// Enqueuer is the single path by which outbound email jobs are accepted.
// Every method returns a SendResult and never panics outward; storage and
// formatting failures surface through the result's Error field.
type Enqueuer struct {
	st store.Store
}

// NewEnqueuer creates an Enqueuer backed by the given store.
func NewEnqueuer(st store.Store) *Enqueuer {
	return &Enqueuer{st: st}
}

// SendNotification formats and enqueues one catalog notification email,
// applying the static per-type throttle policy.
func (e *Enqueuer) SendNotification(payload models.NotificationPayload) (result models.SendResult) {
	defer recoverToResult(&result)

	throttled := throttle.ShouldThrottle(payload.Type)
	contextID := throttle.ContextIDFromData(payload.Type, payload.Data)
	if throttled {
		suppressed, err := e.st.IsThrottled(string(payload.Type), payload.Recipient.ID, contextID, throttle.Interval(payload.Type))
		if err != nil {
			return failure(fmt.Errorf("throttle check failed: %w", err))
		}
		if suppressed {
			slog.Info("throttled notification email",
				"type", payload.Type, "recipient", payload.Recipient.Email, "context", contextID)
			metrics.EmailsThrottled.Inc()
			return models.SendResult{Success: true, Throttled: true}
		}
	}

	content, err := catalog.FormatNotification(payload.Type, payload.Recipient.Name, payload.Data)
	if err != nil {
		return failure(err)
	}

	metadata, err := json.Marshal(payload.Data)
	if err != nil {
		return failure(fmt.Errorf("failed to encode notification data: %w", err))
	}

	if _, err := e.st.CreateEmailQueueItem(models.CreateEmailQueueItem{
		RecipientID:    payload.Recipient.ID,
		RecipientEmail: payload.Recipient.Email,
		RecipientName:  payload.Recipient.Name,
		Subject:        content.Subject,
		BodyHTML:       content.HTML,
		BodyText:       content.Text,
		Category:       string(payload.Type),
		Metadata:       string(metadata),
	}); err != nil {
		return failure(fmt.Errorf("failed to queue notification: %w", err))
	}

	if throttled {
		if err := e.st.RecordSent(string(payload.Type), payload.Recipient.ID, contextID); err != nil {
			return failure(fmt.Errorf("failed to record send: %w", err))
		}
	}

	slog.Info("queued notification email", "type", payload.Type, "recipient", payload.Recipient.Email)
	metrics.EmailsEnqueued.Inc()
	return models.SendResult{Success: true}
}

// SendEmail renders a stored template and enqueues the result. Throttling is
// opt-in per request via the category/contextId/interval triple.
func (e *Enqueuer) SendEmail(input models.SendEmailInput) (result models.SendResult) {
	defer recoverToResult(&result)

	tmpl, err := e.st.GetTemplate(input.Template)
	if err != nil {
		return failure(fmt.Errorf("template lookup failed: %w", err))
	}
	if tmpl == nil {
		return failure(fmt.Errorf("template %q not found", input.Template))
	}

	interval := time.Duration(input.ThrottleIntervalMs) * time.Millisecond
	throttled := input.Category != "" && input.ContextID != "" && interval > 0
	if throttled {
		suppressed, err := e.st.IsThrottled(input.Category, input.Recipient.ID, input.ContextID, interval)
		if err != nil {
			return failure(fmt.Errorf("throttle check failed: %w", err))
		}
		if suppressed {
			slog.Info("throttled template email",
				"template", input.Template, "recipient", input.Recipient.Email, "context", input.ContextID)
			metrics.EmailsThrottled.Inc()
			return models.SendResult{Success: true, Throttled: true}
		}
	}

	variables, err := parseVariables(input.Variables)
	if err != nil {
		return failure(err)
	}
	content := template.RenderEmail(tmpl, variables)

	if _, err := e.st.CreateEmailQueueItem(models.CreateEmailQueueItem{
		TemplateName:   input.Template,
		RecipientID:    input.Recipient.ID,
		RecipientEmail: input.Recipient.Email,
		RecipientName:  input.Recipient.Name,
		Subject:        content.Subject,
		BodyHTML:       content.HTML,
		BodyText:       content.Text,
		Category:       input.Category,
		Metadata:       input.Metadata,
	}); err != nil {
		return failure(fmt.Errorf("failed to queue email: %w", err))
	}

	if throttled {
		if err := e.st.RecordSent(input.Category, input.Recipient.ID, input.ContextID); err != nil {
			return failure(fmt.Errorf("failed to record send: %w", err))
		}
	}

	slog.Info("queued template email", "template", input.Template, "recipient", input.Recipient.Email)
	metrics.EmailsEnqueued.Inc()
	return models.SendResult{Success: true}
}

// SendRawEmail enqueues a fully rendered email supplied by the caller.
func (e *Enqueuer) SendRawEmail(input models.SendRawEmailInput) (result models.SendResult) {
	defer recoverToResult(&result)

	interval := time.Duration(input.ThrottleIntervalMs) * time.Millisecond
	throttled := input.Category != "" && input.ContextID != "" && interval > 0
	if throttled {
		suppressed, err := e.st.IsThrottled(input.Category, input.Recipient.ID, input.ContextID, interval)
		if err != nil {
			return failure(fmt.Errorf("throttle check failed: %w", err))
		}
		if suppressed {
			slog.Info("throttled raw email",
				"recipient", input.Recipient.Email, "context", input.ContextID)
			metrics.EmailsThrottled.Inc()
			return models.SendResult{Success: true, Throttled: true}
		}
	}

	if _, err := e.st.CreateEmailQueueItem(models.CreateEmailQueueItem{
		RecipientID:    input.Recipient.ID,
		RecipientEmail: input.Recipient.Email,
		RecipientName:  input.Recipient.Name,
		Subject:        input.Subject,
		BodyHTML:       input.BodyHTML,
		BodyText:       input.BodyText,
		Category:       input.Category,
		Metadata:       input.Metadata,
	}); err != nil {
		return failure(fmt.Errorf("failed to queue email: %w", err))
	}

	if throttled {
		if err := e.st.RecordSent(input.Category, input.Recipient.ID, input.ContextID); err != nil {
			return failure(fmt.Errorf("failed to record send: %w", err))
		}
	}

	slog.Info("queued raw email", "recipient", input.Recipient.Email)
	metrics.EmailsEnqueued.Inc()
	return models.SendResult{Success: true}
}

// parseVariables decodes the JSON-encoded variable map. String values pass
// through; numbers and booleans are coerced to their text form.
func parseVariables(encoded string) (map[string]string, error) {
	if encoded == "" {
		return nil, nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON in variables field: %w", err)
	}
	variables := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			variables[key] = v
		default:
			variables[key] = fmt.Sprintf("%v", v)
		}
	}
	return variables, nil
}

func failure(err error) models.SendResult {
	slog.Error("enqueue failed", "error", err)
	return models.SendResult{Success: false, Error: err.Error()}
}

// recoverToResult converts a panic below the enqueue boundary into a failure
// result so nothing escapes to the transport layer.
func recoverToResult(result *models.SendResult) {
	if r := recover(); r != nil {
		*result = models.SendResult{Success: false, Error: fmt.Sprintf("internal error: %v", r)}
	}
}
