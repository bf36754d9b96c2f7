package anchors

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed set of failure kinds of anchoring channel operations
type ErrorCode string

const (
	ErrCodeChannelCreation          ErrorCode = "CHANNEL_CREATION_ERROR"
	ErrCodeChannelBinding           ErrorCode = "CHANNEL_BINDING_ERROR"
	ErrCodeChannelAlreadyBound      ErrorCode = "CHANNEL_ALREADY_BOUND"
	ErrCodeChannelNotBound          ErrorCode = "CHANNEL_NOT_BOUND"
	ErrCodeInvalidChannelIdentifier ErrorCode = "INVALID_CHANNEL_IDENTIFIER"
	ErrCodeAnchoring                ErrorCode = "ANCHORING_ERROR"
	ErrCodeMessageNotFound          ErrorCode = "MESSAGE_NOT_FOUND"
	ErrCodeFetch                    ErrorCode = "FETCH_ERROR"
)

// AnchorError is returned by every exported operation of this package.
// Use CodeOf or errors.As to branch on the failure kind.
type AnchorError struct {

	// code is the failure kind
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error (ledger or transport)
	wrapped error
}

func (e *AnchorError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *AnchorError) Code() ErrorCode { return e.code }
func (e *AnchorError) Unwrap() error   { return e.wrapped }

// CodeOf returns the code of the first AnchorError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var anchorErr *AnchorError
	if errors.As(err, &anchorErr) {
		return anchorErr.code
	}
	return ""
}

// NewChannelCreationError is returned when the node rejects an announce or the transport fails during create.
func NewChannelCreationError(err error, msg string) error {
	return &AnchorError{code: ErrCodeChannelCreation, message: msg, wrapped: err}
}

// NewChannelBindingError is returned when attaching to an existing channel fails.
func NewChannelBindingError(err error, msg string) error {
	return &AnchorError{code: ErrCodeChannelBinding, message: msg, wrapped: err}
}

// NewChannelAlreadyBoundError is returned by a second Bind on the same channel.
func NewChannelAlreadyBoundError() error {
	return &AnchorError{code: ErrCodeChannelAlreadyBound, message: "channel is already bound"}
}

// NewChannelNotBoundError is returned by operations on a channel that was never bound.
func NewChannelNotBoundError() error {
	return &AnchorError{code: ErrCodeChannelNotBound, message: "channel is not bound"}
}

// NewInvalidChannelIdentifierError is returned for identifiers that are not "address:announceId".
func NewInvalidChannelIdentifierError(id string) error {
	return &AnchorError{code: ErrCodeInvalidChannelIdentifier, message: fmt.Sprintf("invalid channel identifier %q", id)}
}

// NewAnchoringError is returned when a publish is rejected or cannot be delivered.
func NewAnchoringError(err error, msg string) error {
	return &AnchorError{code: ErrCodeAnchoring, message: msg, wrapped: err}
}

// NewMessageNotFoundError is returned when an explicitly requested message does not exist at the anchorage.
func NewMessageNotFoundError(err error, msgID string) error {
	return &AnchorError{code: ErrCodeMessageNotFound, message: fmt.Sprintf("message %s not found", msgID), wrapped: err}
}

// NewFetchError is returned when reading from the node fails or returns a message that does not verify.
func NewFetchError(err error, msg string) error {
	return &AnchorError{code: ErrCodeFetch, message: msg, wrapped: err}
}
