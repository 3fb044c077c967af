// Package api provides HTTP handlers for Courier endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/courierhq/courier/internal/models"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}

// sendNotificationHandler accepts a catalog notification request. Enqueue
// outcomes, including throttles and terminal user errors, come back in the
// result body; only a malformed request is an HTTP-level error.
func (s *Server) sendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sendNotificationHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.sendNotificationHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload models.NotificationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.sendNotificationHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := payload.Validate(); err != nil {
		slog.Warn("Server.sendNotificationHandler: validation failed", "error", err, "type", payload.Type)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result := s.enqueuer.SendNotification(payload)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// sendEmailHandler accepts a template-based email request.
func (s *Server) sendEmailHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sendEmailHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.sendEmailHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var input models.SendEmailInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		slog.Warn("Server.sendEmailHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if input.Template == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptyTemplateName.Error()))
		return
	}
	if err := input.Recipient.Validate(); err != nil {
		slog.Warn("Server.sendEmailHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result := s.enqueuer.SendEmail(input)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// sendRawEmailHandler accepts a fully rendered email request.
func (s *Server) sendRawEmailHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sendRawEmailHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.sendRawEmailHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var input models.SendRawEmailInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		slog.Warn("Server.sendRawEmailHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := input.Validate(); err != nil {
		slog.Warn("Server.sendRawEmailHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result := s.enqueuer.SendRawEmail(input)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// processQueueHandler is the cron-triggered internal endpoint that drains one
// batch of the queue. It requires the exact configured bearer token; the
// processor never runs on an auth failure.
func (s *Server) processQueueHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.processQueueHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+s.cronSecret {
		slog.Warn("Server.processQueueHandler: unauthorized cron request", "remote", r.RemoteAddr)
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Unauthorized"))
		return
	}

	result := s.processor.Process(r.Context())
	slog.Info("Server.processQueueHandler: queue batch processed",
		"processed", result.Processed, "sent", result.Sent, "failed", result.Failed)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}
