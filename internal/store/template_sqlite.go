package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/courierhq/courier/internal/models"
)

// GetTemplate retrieves a template by name. Returns nil if absent.
func (s *SQLiteStore) GetTemplate(name string) (*models.EmailTemplate, error) {
	var tmpl models.EmailTemplate
	err := s.db.QueryRow(
		`SELECT name, subject, body_html, body_text, created_at, updated_at FROM email_templates WHERE name = ?`,
		name,
	).Scan(&tmpl.Name, &tmpl.Subject, &tmpl.BodyHTML, &tmpl.BodyText, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetTemplate failed", "error", err, "name", name)
		return nil, fmt.Errorf("failed to get template %s: %w", name, err)
	}
	return &tmpl, nil
}

// ListTemplates returns all templates ordered by name.
func (s *SQLiteStore) ListTemplates() ([]models.EmailTemplate, error) {
	rows, err := s.db.Query(
		`SELECT name, subject, body_html, body_text, created_at, updated_at FROM email_templates ORDER BY name`,
	)
	if err != nil {
		slog.Error("SQLiteStore ListTemplates query failed", "error", err)
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []models.EmailTemplate
	for rows.Next() {
		var tmpl models.EmailTemplate
		if err := rows.Scan(&tmpl.Name, &tmpl.Subject, &tmpl.BodyHTML, &tmpl.BodyText, &tmpl.CreatedAt, &tmpl.UpdatedAt); err != nil {
			slog.Error("SQLiteStore ListTemplates scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListTemplates rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate template rows: %w", err)
	}
	return templates, nil
}

// CreateTemplate registers a new template.
func (s *SQLiteStore) CreateTemplate(data models.CreateEmailTemplate) (models.EmailTemplate, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO email_templates (name, subject, body_html, body_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		data.Name, data.Subject, data.BodyHTML, data.BodyText, now, now,
	)
	if err != nil {
		slog.Error("SQLiteStore CreateTemplate failed", "error", err, "name", data.Name)
		return models.EmailTemplate{}, fmt.Errorf("failed to insert template %s: %w", data.Name, err)
	}
	slog.Debug("SQLiteStore CreateTemplate succeeded", "name", data.Name)
	return models.EmailTemplate{
		Name:      data.Name,
		Subject:   data.Subject,
		BodyHTML:  data.BodyHTML,
		BodyText:  data.BodyText,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateTemplate applies a partial update to an existing template. Returns
// the updated template, or nil if the template does not exist.
func (s *SQLiteStore) UpdateTemplate(name string, data models.UpdateEmailTemplate) (*models.EmailTemplate, error) {
	existing, err := s.GetTemplate(name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	subject := existing.Subject
	if data.Subject != nil {
		subject = *data.Subject
	}
	bodyHTML := existing.BodyHTML
	if data.BodyHTML != nil {
		bodyHTML = *data.BodyHTML
	}
	bodyText := existing.BodyText
	if data.BodyText != nil {
		bodyText = *data.BodyText
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		`UPDATE email_templates SET subject = ?, body_html = ?, body_text = ?, updated_at = ? WHERE name = ?`,
		subject, bodyHTML, bodyText, now, name,
	)
	if err != nil {
		slog.Error("SQLiteStore UpdateTemplate failed", "error", err, "name", name)
		return nil, fmt.Errorf("failed to update template %s: %w", name, err)
	}

	return &models.EmailTemplate{
		Name:      name,
		Subject:   subject,
		BodyHTML:  bodyHTML,
		BodyText:  bodyText,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now,
	}, nil
}

// DeleteTemplate removes a template by name. Reports whether a row existed.
func (s *SQLiteStore) DeleteTemplate(name string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM email_templates WHERE name = ?`, name)
	if err != nil {
		slog.Error("SQLiteStore DeleteTemplate failed", "error", err, "name", name)
		return false, fmt.Errorf("failed to delete template %s: %w", name, err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
