// Package common defines shared constants and sentinel errors used across
// the MailReminder server, CLI and gRPC layers. Callers should use errors.Is
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound         = errors.New("not found")
	ErrorDuplicateEmail   = errors.New("email already registered")
	ErrorStoreUnavailable = errors.New("store unavailable")

	// Service-level errors.
	ErrorInternal       = errors.New("internal error")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorBadCredentials = errors.New("bad credentials")
	ErrorValidation     = errors.New("validation error")

	// Dispatch errors.
	ErrorDecryption = errors.New("decryption failed")
	ErrorSendFailed = errors.New("mail send failed")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Validation reasons reported by ValidationError.
const (
	ReasonMissingField     = "missing_field"
	ReasonMalformedAddress = "malformed_address"
	ReasonInvalidTime      = "invalid_time"
)

// ValidationError describes rejected user input. Message is safe to show to
// the requester; Reason names the violated policy.
type ValidationError struct {
	Reason  string
	Message string
}

func NewValidationError(reason, message string) *ValidationError {
	return &ValidationError{Reason: reason, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap makes errors.Is(err, ErrorValidation) hold for every ValidationError.
func (e *ValidationError) Unwrap() error {
	return ErrorValidation
}
