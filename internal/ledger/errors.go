package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized failure taxonomy for ledger errors.
//
// Ledger implementations classify every failure into one of these categories
// so that read-side policy (retry, treat-as-revoked) never inspects messages.
type ErrorCategory string

const (
	// ErrorNotFound indicates the record does not exist or was revoked (burned).
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorReverted indicates the ledger rejected a write.
	ErrorReverted ErrorCategory = "reverted"

	// ErrorUnauthorized indicates the caller may not perform the operation.
	ErrorUnauthorized ErrorCategory = "unauthorized"

	// ErrorTimeout indicates the ledger took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorUnavailable indicates the ledger endpoint is unreachable.
	ErrorUnavailable ErrorCategory = "unavailable"

	// ErrorRateLimited indicates too many requests.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorBadData indicates a malformed response.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorInternal indicates an unexpected internal error.
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps ledger failures with a normalized category.
type Error struct {
	Category   ErrorCategory
	Op         string // ledger operation, e.g. "ownerOf"
	Message    string
	Underlying error
	Retryable  bool // set from Category (timeout, unavailable, rate-limited)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("ledger %s [%s]: %s: %v", e.Op, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("ledger %s [%s]: %s", e.Op, e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized ledger error with automatic retry classification.
func NewError(category ErrorCategory, op, message string, underlying error) *Error {
	retryable := category == ErrorTimeout ||
		category == ErrorUnavailable ||
		category == ErrorRateLimited

	return &Error{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error
func CategoryOf(err error) ErrorCategory {
	var le *Error
	if errors.As(err, &le) {
		return le.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorInternal
}

// RevertReason returns the ledger-provided reason carried by err, if any.
func RevertReason(err error) string {
	var le *Error
	if errors.As(err, &le) && (le.Category == ErrorReverted || le.Category == ErrorUnauthorized) {
		return le.Message
	}
	return ""
}

// Outcome is the tagged result of a read at the ledger boundary.
type Outcome string

const (
	OutcomeFound     Outcome = "found"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeTransient Outcome = "transient"
)

// Classify tags a read result. NotFound is a statement about the record;
// everything else is a statement about the path to the ledger.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeFound
	}
	if CategoryOf(err) == ErrorNotFound {
		return OutcomeNotFound
	}
	return OutcomeTransient
}
