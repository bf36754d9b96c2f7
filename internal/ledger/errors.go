package ledger

import (
	"errors"
	"fmt"
)

// Error represents a structured error from the ledger package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	ErrCodeValidation        ErrorCode = "validation"
	ErrCodeNotFound          ErrorCode = "not_found"
	ErrCodeConflict          ErrorCode = "conflict"
	ErrCodeForbidden         ErrorCode = "forbidden"
	ErrCodeAnchorageNotFound ErrorCode = "anchorage_not_found"
	ErrCodeInternal          ErrorCode = "internal"
)

// LedgerError is returned by the node rules, the stores and the node transports.
type LedgerError struct {

	// code is the ledger error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *LedgerError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *LedgerError) Code() ErrorCode { return e.code }
func (e *LedgerError) Unwrap() error   { return e.wrapped }

// NewError creates a ledger error with an explicit code.
// Transports use it to rebuild errors received from a remote node.
func NewError(code ErrorCode, msg string) error {
	return &LedgerError{code: code, message: msg}
}

// NewValidationError creates an error for malformed packets, bad signatures or bad queries.
func NewValidationError(msg string) error {
	return &LedgerError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
func WrapValidationError(err error, msg string) error {
	return &LedgerError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewNotFoundError creates an error for unknown channels or messages.
func NewNotFoundError(msg string) error {
	return &LedgerError{code: ErrCodeNotFound, message: msg}
}

// NewConflictError creates an error for channels or messages that already exist.
func NewConflictError(msg string) error {
	return &LedgerError{code: ErrCodeConflict, message: msg}
}

// NewForbiddenError creates an error for publishers or subscribers lacking the required capability.
func NewForbiddenError(msg string) error {
	return &LedgerError{code: ErrCodeForbidden, message: msg}
}

// NewAnchorageNotFoundError creates an error for a publish whose link does not reference
// an anchorable message of the channel.
func NewAnchorageNotFoundError(msg string) error {
	return &LedgerError{code: ErrCodeAnchorageNotFound, message: msg}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &LedgerError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &LedgerError{code: ErrCodeInternal, message: msg, wrapped: err}
}

// CodeOf returns the code of the first LedgerError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.code
	}
	return ""
}

// IsNotFound reports whether err is a not_found ledger error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}
