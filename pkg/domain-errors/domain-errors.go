package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal_error"
	CodeTimeout      Code = "timeout"
	CodeConflict     Code = "conflict"

	// Credential ledger taxonomy. Write-side codes double as the stage tag of
	// the step that failed, so callers can tell upload, submit and confirm apart.
	CodeNotConnected         Code = "not_connected"          // No active ledger session
	CodeNotAuthorized        Code = "not_authorized"         // Caller lacks issuer/admin capability
	CodeInvalidOrRevoked     Code = "invalid_or_revoked"     // Any read failure during verification/enumeration
	CodeUploadFailed         Code = "upload_failed"          // Content storage refused or failed the upload
	CodeWriteRejected        Code = "write_rejected"         // Ledger declined a write
	CodeConfirmationTimedOut Code = "confirmation_timed_out" // Write was submitted but not confirmed in time
	CodeLedgerUnavailable    Code = "ledger_unavailable"     // A ledger read needed to decide failed transiently
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Stage wraps err under code unconditionally, replacing any code already in
// the chain. Write coordinators use it so the outermost code is always the
// stage that failed, even when the cause was itself a domain error.
func Stage(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
// Only the outermost domain error in the chain is consulted.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
