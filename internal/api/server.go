// Package api provides the HTTP surface of Courier.
//
// It exposes JSON endpoints for sending notification and template emails,
// managing templates, and the authenticated internal cron trigger that
// drains the queue.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courierhq/courier/internal/queue"
	"github.com/courierhq/courier/internal/store"
)

// Server wires the HTTP handlers to the enqueue and processing services.
type Server struct {
	st         store.Store
	enqueuer   *queue.Enqueuer
	processor  *queue.Processor
	cronSecret string
}

// NewServer creates a Server. cronSecret guards the internal routes and must
// not be empty.
func NewServer(st store.Store, enqueuer *queue.Enqueuer, processor *queue.Processor, cronSecret string) *Server {
	return &Server{
		st:         st,
		enqueuer:   enqueuer,
		processor:  processor,
		cronSecret: cronSecret,
	}
}

// Handler returns the route table for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/notifications", s.sendNotificationHandler)
	mux.HandleFunc("/emails", s.sendEmailHandler)
	mux.HandleFunc("/emails/raw", s.sendRawEmailHandler)
	mux.HandleFunc("/templates", s.templatesHandler)
	mux.HandleFunc("/templates/", s.templateHandler)
	mux.HandleFunc("/internal/cron/process-queue", s.processQueueHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
