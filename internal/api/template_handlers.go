// Package api provides HTTP handlers for the template registry.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/courierhq/courier/internal/models"
)

// templatesHandler serves the collection routes: list and register.
func (s *Server) templatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		s.listTemplates(w)
	case http.MethodPost:
		s.createTemplate(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.templatesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// templateHandler serves the per-template routes: get, update, delete.
func (s *Server) templateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	name := strings.TrimPrefix(r.URL.Path, "/templates/")
	if name == "" || strings.Contains(name, "/") {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Template not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getTemplate(w, name)
	case http.MethodPut:
		s.updateTemplate(w, r, name)
	case http.MethodDelete:
		s.deleteTemplate(w, name)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		slog.Warn("Server.templateHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listTemplates(w http.ResponseWriter) {
	templates, err := s.st.ListTemplates()
	if err != nil {
		slog.Error("Server.listTemplates: failed to list templates", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list templates"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(templates))
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	var input models.CreateEmailTemplate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		slog.Warn("Server.createTemplate: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := input.Validate(); err != nil {
		slog.Warn("Server.createTemplate: validation failed", "error", err, "name", input.Name)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	existing, err := s.st.GetTemplate(input.Name)
	if err != nil {
		slog.Error("Server.createTemplate: failed to check existing template", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to register template"))
		return
	}
	if existing != nil {
		writeJSONResponse(w, http.StatusConflict, models.Error("Template already exists"))
		return
	}

	created, err := s.st.CreateTemplate(input)
	if err != nil {
		slog.Error("Server.createTemplate: failed to create template", "error", err, "name", input.Name)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to register template"))
		return
	}
	slog.Info("Server.createTemplate: template registered", "name", created.Name)
	writeJSONResponse(w, http.StatusCreated, models.Success(created))
}

func (s *Server) getTemplate(w http.ResponseWriter, name string) {
	tmpl, err := s.st.GetTemplate(name)
	if err != nil {
		slog.Error("Server.getTemplate: failed to fetch template", "error", err, "name", name)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch template"))
		return
	}
	if tmpl == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Template not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(tmpl))
}

func (s *Server) updateTemplate(w http.ResponseWriter, r *http.Request, name string) {
	var input models.UpdateEmailTemplate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		slog.Warn("Server.updateTemplate: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	updated, err := s.st.UpdateTemplate(name, input)
	if err != nil {
		slog.Error("Server.updateTemplate: failed to update template", "error", err, "name", name)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update template"))
		return
	}
	if updated == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Template not found"))
		return
	}
	slog.Info("Server.updateTemplate: template updated", "name", name)
	writeJSONResponse(w, http.StatusOK, models.Success(updated))
}

func (s *Server) deleteTemplate(w http.ResponseWriter, name string) {
	deleted, err := s.st.DeleteTemplate(name)
	if err != nil {
		slog.Error("Server.deleteTemplate: failed to delete template", "error", err, "name", name)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete template"))
		return
	}
	if !deleted {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Template not found"))
		return
	}
	slog.Info("Server.deleteTemplate: template deleted", "name", name)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Template deleted", nil))
}
