// Package api holds the JSON wire types shared by the node HTTP server and its client,
// and the helpers the server uses to write them.
//
// Ledger error codes travel in the errorCode field of ErrorResponse. The HTTP status is
// derived from the code and is only used to rebuild an error when the code is missing
// (e.g. when a proxy answered instead of the node).
package api

import (
	"fmt"
	"net/http"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
)

// ChannelsPath is the route prefix of the ledger API
const ChannelsPath = "/api/v1/channels"

// ErrorResponse is the error body returned by every node endpoint
type ErrorResponse struct {

	// The HTTP method used to make the request e.g. GET, POST, etc
	HTTPMethod string `json:"httpMethod"`

	// The URI that was requested
	RequestURI string `json:"requestUri"`

	// The HTTP status code returned
	StatusCode int `json:"statusCode"`

	// A standard short description corresponding to the HTTP status code
	StatusCodeText string `json:"statusCodeText"`

	// The ledger, identity or transport error code
	ErrorCode string `json:"errorCode"`

	// The error message
	ErrorMessage string `json:"errorMessage"`

	// A unique identifier of the HTTP request within the node
	ProviderCorrelationReference string `json:"providerCorrelationReference,omitempty"`

	// The DateTime corresponding to the error occurring
	ErrorDateTime string `json:"errorDateTime"`
}

// Err rebuilds the ledger error carried by the response.
func (e *ErrorResponse) Err() error {
	code := ledger.ErrorCode(e.ErrorCode)
	if StatusForCode(code) == http.StatusInternalServerError && code != ledger.ErrCodeInternal {
		code = CodeForStatus(e.StatusCode)
	}
	msg := e.ErrorMessage
	if msg == "" {
		msg = fmt.Sprintf("node returned %d %s", e.StatusCode, e.StatusCodeText)
	}
	return ledger.NewError(code, msg)
}

// MessagesResponse is the body of the message list endpoint
type MessagesResponse struct {
	Messages []*ledger.Message `json:"messages"`
}

// StatusForCode maps a ledger error code to the HTTP status returned by the node.
func StatusForCode(code ledger.ErrorCode) int {
	switch code {
	case ledger.ErrCodeValidation:
		return http.StatusBadRequest
	case ledger.ErrCodeNotFound:
		return http.StatusNotFound
	case ledger.ErrCodeConflict:
		return http.StatusConflict
	case ledger.ErrCodeForbidden:
		return http.StatusForbidden
	case ledger.ErrCodeAnchorageNotFound:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CodeForStatus is the inverse of StatusForCode. Unknown statuses map to internal.
func CodeForStatus(status int) ledger.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return ledger.ErrCodeValidation
	case http.StatusNotFound:
		return ledger.ErrCodeNotFound
	case http.StatusConflict:
		return ledger.ErrCodeConflict
	case http.StatusForbidden, http.StatusUnauthorized:
		return ledger.ErrCodeForbidden
	case http.StatusUnprocessableEntity:
		return ledger.ErrCodeAnchorageNotFound
	default:
		return ledger.ErrCodeInternal
	}
}
