package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrConflict     = errors.New("domain: conflict")
	ErrUnauthorized = errors.New("domain: unauthorized")
	ErrForbidden    = errors.New("domain: forbidden")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ValidationError carries field-level detail for a rejected payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "domain: validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason, Message: message}}}
}

// DependentsError is returned when a task cannot be deleted because other
// tasks still list it as a prerequisite.
type DependentsError struct {
	Count int
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("domain: task has %d dependent task(s)", e.Count)
}

// Unwrap lets errors.Is(err, ErrConflict) match.
func (e *DependentsError) Unwrap() error {
	return ErrConflict
}
