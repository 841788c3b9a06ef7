// Package errs defines the error taxonomy shared by the engines and mapped
// to HTTP statuses at the handler boundary.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller is authenticated but not authorized for
	// this resource or action.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateApplication means the developer already applied to the
	// project, whatever the earlier application's status.
	ErrDuplicateApplication = errors.New("already applied to this project")
	// ErrConflict means an optimistic-concurrency check failed; the caller
	// may re-read and retry.
	ErrConflict = errors.New("conflicting concurrent update")
	// ErrUnavailable means the storage layer failed or timed out; retryable.
	ErrUnavailable = errors.New("storage unavailable")
)

// FieldError is a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the full list of invalid fields for a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
}

// Validation builds a ValidationError from field/message pairs.
func Validation(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Field is shorthand for a FieldError.
func Field(field, message string) FieldError {
	return FieldError{Field: field, Message: message}
}

// AsValidation extracts a ValidationError if err is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
