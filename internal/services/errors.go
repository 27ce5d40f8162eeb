package services

import (
	"errors"
	"pharmacist/internal/schedule"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNothingDue    = errors.New("no pending dose is due")
	ErrDisabled      = errors.New("service is not configured")
)

// ValidationError reports a request field that cannot be accepted
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// asValidation converts schedule rule errors into ValidationError and passes others through
func asValidation(err error) error {
	var serr *schedule.ValidationError
	if errors.As(err, &serr) {
		return &ValidationError{Field: serr.Field, Message: serr.Message}
	}
	if errors.Is(err, schedule.ErrWindow) {
		return &ValidationError{Field: "days", Message: err.Error()}
	}
	return err
}

// ErrAssistantUnavailable wraps failures of the remote AI provider
var ErrAssistantUnavailable = errors.New("assistant is unavailable")
