package common

import (
	"errors"
	"fmt"
)

// Business logic errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")

	ErrNotificationNotFound = fmt.Errorf("notification: %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user: %w", ErrNotFound)
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// ValidationError reports a malformed request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// DeliveryCause classifies why every delivery path failed
type DeliveryCause string

const (
	CauseTimeout DeliveryCause = "timeout"
	CauseNetwork DeliveryCause = "network"
	CauseServer  DeliveryCause = "server"
)

// DeliveryError is returned once every backend attempt has been exhausted
type DeliveryError struct {
	Op    string
	Cause DeliveryCause
	Last  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s failed on all backends (%s)", e.Op, e.Cause)
}

func (e *DeliveryError) Unwrap() error { return e.Last }

// Message returns the human-readable cause shown to users
func (e *DeliveryError) Message() string {
	switch e.Cause {
	case CauseTimeout:
		return "message service timed out, please retry"
	case CauseNetwork:
		return "message service unreachable, please retry"
	default:
		return "message service error, please retry"
	}
}

// PartialFanoutError reports recipients whose notification could not be written.
// It is informational: the fan-out itself completed.
type PartialFanoutError struct {
	Failed int
	Total  int
}

func (e *PartialFanoutError) Error() string {
	return fmt.Sprintf("fan-out incomplete: %d of %d notifications failed", e.Failed, e.Total)
}
