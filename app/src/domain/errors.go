package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData is returned by read paths when the store holds no measurements.
	ErrNoData = errors.New("no measurements recorded")

	// ErrStorage wraps failures of the underlying storage medium.
	ErrStorage = errors.New("measurement storage unavailable")

	// ErrPredictionUnavailable wraps AI service failures. It never fails the
	// write path, only the optional prediction.
	ErrPredictionUnavailable = errors.New("prediction service unavailable")

	// ErrUnsupportedMedia is returned for bulk uploads in an unknown format.
	ErrUnsupportedMedia = errors.New("unsupported bulk payload format")
)

// FieldError names one invalid field of an inbound payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field violation of one payload so the caller
// can fix all of them in a single round trip.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends one field violation.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any violation was recorded.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}
