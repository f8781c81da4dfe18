// Package common defines shared constants and sentinel errors used across
// the memorial board server and its CLI. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed session token).
	ErrInvalidToken = errors.New("invalid token")

	// Account management errors.
	ErrSelfLockout       = errors.New("cannot deactivate or delete your own account")
	ErrBootstrapClosed   = errors.New("approvers already exist")
	ErrBootstrapDisabled = errors.New("bootstrap is disabled")
	ErrRateLimited       = errors.New("too many attempts")

	// Moderation errors.
	ErrAlreadyResolved = errors.New("message already resolved")

	// Submission errors.
	ErrCaptchaFailed = errors.New("captcha verification failed")
)

// ValidationError describes a single user-correctable input problem.
// It matches ErrorValidation via errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrorValidation
}

// NewValidationError is a shorthand for &ValidationError{...}.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
