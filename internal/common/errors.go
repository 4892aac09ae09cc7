// Package common defines shared constants and sentinel errors used across
// the client layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Credential and account errors.
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailNotVerified       = errors.New("email not verified")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrWeakCredential         = errors.New("weak credential")
	ErrUserNotFound           = errors.New("user not found")

	// Link and session errors.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrNoSession            = errors.New("no active session")

	// Profile errors.
	ErrHandleTaken        = errors.New("handle taken")
	ErrValidation         = errors.New("validation error")
	ErrProfileCheckFailed = errors.New("profile check failed")

	// Infrastructure errors.
	ErrKeyStoreUnavailable = errors.New("key store unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrProviderError       = errors.New("provider error")
)

// ValidationError reports a single invalid input field. It matches
// ErrValidation through errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
