package api

// responses.go maps errors to ErrorResponse bodies and writes the node's JSON responses

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/identity"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/logger"
)

// Codes of errors raised by the HTTP layer itself
const (
	ErrCodeRequestTooLarge   = "request_too_large"
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
)

// HTTPError is an error raised before a request reaches the ledger (size and rate limits).
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

func NewRequestTooLargeError(msg string) error {
	return &HTTPError{Status: http.StatusRequestEntityTooLarge, Code: ErrCodeRequestTooLarge, Message: msg}
}

func NewRateLimitError(msg string) error {
	return &HTTPError{Status: http.StatusTooManyRequests, Code: ErrCodeRateLimitExceeded, Message: msg}
}

// MapErrorToResponse maps HTTP, ledger and identity errors to an ErrorResponse.
// Errors of any other type are reported as internal errors without their message.
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	status := http.StatusInternalServerError
	code := string(ledger.ErrCodeInternal)
	msg := "an internal error occurred"

	var (
		httpErr   *HTTPError
		ledgerErr *ledger.LedgerError
		idErr     *identity.IdentityError
	)
	switch {
	case errors.As(err, &httpErr):
		status, code, msg = httpErr.Status, httpErr.Code, httpErr.Message
	case errors.As(err, &ledgerErr):
		status, code = StatusForCode(ledgerErr.Code()), string(ledgerErr.Code())
		if ledgerErr.Code() != ledger.ErrCodeInternal {
			msg = ledgerErr.Error()
		}
	case errors.As(err, &idErr):
		status, code = statusForIdentityCode(idErr.Code()), string(idErr.Code())
		if idErr.Code() != identity.ErrCodeRuntime {
			msg = idErr.Error()
		}
	default:
		logger.ContextRequestLogger(r.Context()).Error("BUG: unmapped error type",
			slog.String("error_type", fmt.Sprintf("%T", err)),
			slog.String("error", err.Error()),
		)
	}

	return &ErrorResponse{
		HTTPMethod:                   r.Method,
		RequestURI:                   r.RequestURI,
		StatusCode:                   status,
		StatusCodeText:               http.StatusText(status),
		ErrorCode:                    code,
		ErrorMessage:                 msg,
		ProviderCorrelationReference: middleware.GetReqID(r.Context()),
		ErrorDateTime:                time.Now().UTC().Format(time.RFC3339),
	}
}

func statusForIdentityCode(code identity.ErrorCode) int {
	switch code {
	case identity.ErrCodeDIDNotFound:
		return http.StatusNotFound
	case identity.ErrCodeDIDNotVerified:
		return http.StatusUnprocessableEntity
	case identity.ErrCodeRuntime:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// RespondWithErrorResponse logs err server side and sends the mapped ErrorResponse.
func RespondWithErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse := MapErrorToResponse(err, r)

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Warn("Request failed",
		slog.String("error", err.Error()),
		slog.Int("status_code", errorResponse.StatusCode),
		slog.String("error_code", errorResponse.ErrorCode),
		slog.String("request_id", errorResponse.ProviderCorrelationReference),
	)

	RespondWithJSONPayload(w, errorResponse.StatusCode, errorResponse)
}

// RespondWithJSONPayload sends a JSON response with the given status code
func RespondWithJSONPayload(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// headers are already written
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}
