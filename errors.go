package goQuiz

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the Engine. Callers match with errors.Is.
// Every credential or token failure surfaced to an HTTP client must be
// rendered identically; the distinct values exist for metrics and audit.
var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginRateLimited   = errors.New("login rate limited")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrRefreshMissing = errors.New("refresh token missing")
	ErrRefreshInvalid = errors.New("refresh token invalid or expired")
	ErrRefreshRevoked = errors.New("refresh token revoked")

	ErrUserNotFound     = errors.New("user not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrSessionNotFound  = errors.New("quiz session not found")

	ErrEmailTaken     = errors.New("email already registered")
	ErrCategoryExists = errors.New("category already exists")

	// ErrInvalidSession is returned when submitting to a finished session or
	// when a concurrent submission already consumed the cursor.
	ErrInvalidSession = errors.New("invalid quiz session")
	ErrNotFinished    = errors.New("quiz session not finished")
	ErrEmptyCategory  = errors.New("category has too few questions")

	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError reports one rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
