// Package validation checks request input before it reaches the services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
	// MaxPasswordLength keeps passwords inside bcrypt's 72 byte input limit.
	MaxPasswordLength = 72
	// MaxTextLength bounds free-text fields such as names and version labels.
	MaxTextLength = 255
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// Error is a validation failure over one or more fields. Messages are safe
// to show to clients.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Details returns field -> message for error responses.
func (e *Error) Details() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = f.Message
	}
	return out
}

// Checker collects field errors.
type Checker struct {
	fields []FieldError
}

// Fail records a failure for field.
func (c *Checker) Fail(field, message string) {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
}

// Required fails when value is blank.
func (c *Checker) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		c.Fail(field, "is required")
		return false
	}
	return true
}

// Text requires a non-blank value of at most MaxTextLength characters.
func (c *Checker) Text(field, value string) {
	if c.Required(field, value) && utf8.RuneCountInString(value) > MaxTextLength {
		c.Fail(field, fmt.Sprintf("must be at most %d characters", MaxTextLength))
	}
}

// Email requires a plausible email address.
func (c *Checker) Email(field, value string) {
	if c.Required(field, value) && !IsValidEmail(value) {
		c.Fail(field, "must be a valid email address")
	}
}

// Password enforces the length policy.
func (c *Checker) Password(field, value string) {
	if !c.Required(field, value) {
		return
	}
	switch n := len(value); {
	case n < MinPasswordLength:
		c.Fail(field, fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	case n > MaxPasswordLength:
		c.Fail(field, fmt.Sprintf("must be at most %d bytes", MaxPasswordLength))
	}
}

// Err returns nil when nothing failed, otherwise *Error.
func (c *Checker) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &Error{Fields: c.fields}
}

// IsValidEmail reports whether email looks like an address.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// Single builds an *Error for one field.
func Single(field, message string) error {
	return &Error{Fields: []FieldError{{Field: field, Message: message}}}
}
