// Package template renders stored email templates by substituting
// {{key}} placeholders with caller-supplied variables.
package template

import (
	"regexp"

	"github.com/courierhq/courier/internal/models"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render replaces every {{key}} placeholder in the given text with the
// matching variable value. Placeholders with no matching variable become the
// empty string. Text that is not a well-formed placeholder, such as
// {{ spaced }} or {{dash-ed}}, is left untouched.
func Render(text string, variables map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		return variables[key]
	})
}

// RenderEmail renders the subject and both bodies of a stored template with
// one shared variable set.
func RenderEmail(tmpl *models.EmailTemplate, variables map[string]string) models.EmailContent {
	return models.EmailContent{
		Subject: Render(tmpl.Subject, variables),
		HTML:    Render(tmpl.BodyHTML, variables),
		Text:    Render(tmpl.BodyText, variables),
	}
}
