package utils

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Add appends a field error
func (e *FieldValidationErrors) Add(field, message string) {
	*e = append(*e, FieldValidationError{Field: field, Message: message})
}

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	htmlTagRegex  = regexp.MustCompile(`<[^>]*>`)
	jsEventRegex  = regexp.MustCompile(`(?i)on\w+\s*=\s*("[^"]*"|'[^']*')`)
	dataURIRegex  = regexp.MustCompile(`data:[^;]+;base64,[^"'\s]+`)
	spaceRegex    = regexp.MustCompile(`\s+`)
)

// SanitizeString strips markup from free text: HTML tags, inline event
// handlers and data URIs. Entities are decoded first so escaped tags are
// stripped too.
func SanitizeString(input string) string {
	sanitized := html.UnescapeString(input)
	sanitized = htmlTagRegex.ReplaceAllString(sanitized, "")
	sanitized = jsEventRegex.ReplaceAllString(sanitized, "")
	sanitized = dataURIRegex.ReplaceAllString(sanitized, "")
	sanitized = strings.NewReplacer("<", "", ">", "").Replace(sanitized)
	sanitized = spaceRegex.ReplaceAllString(sanitized, " ")
	return strings.TrimSpace(sanitized)
}

// TruncateRunes bounds s to max runes
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// IsValidEmail reports whether email looks like a deliverable address
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsCurrencyCode reports whether code is a three letter upper-case code
func IsCurrencyCode(code string) bool {
	return currencyRegex.MatchString(code)
}
