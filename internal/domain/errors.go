package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by ServiceError. Codes are machine-readable and stable;
// consumers branch on Code, not on message text.
const (
	CodeMissingAPIKey      = "MISSING_API_KEY"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInputTooLong       = "INPUT_TOO_LONG"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInvalidResponse    = "INVALID_RESPONSE"
	CodeMaxRetriesExceeded = "MAX_RETRIES_EXCEEDED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeTimeout            = "TIMEOUT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeBadGateway         = "BAD_GATEWAY"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeUnknownError       = "UNKNOWN_ERROR"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

// ServiceError is the structured error type for every failure surfaced by the
// AI service. Retryable is decided at the point of creation, never inferred
// later.
type ServiceError struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	StatusCode int    `json:"status_code,omitempty"`
	Retryable  bool   `json:"retryable"`
	Err        error  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError with an explicit retryable flag.
func NewServiceError(message, code string, statusCode int, retryable bool) *ServiceError {
	return &ServiceError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// AsServiceError extracts a ServiceError from err, or nil if there is none in
// the chain.
func AsServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// CodeForStatus maps an upstream HTTP status to an error code.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusRequestTimeout:
		return CodeTimeout
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusInternalServerError:
		return CodeInternalError
	case http.StatusBadGateway:
		return CodeBadGateway
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	default:
		return CodeUnknownError
	}
}

// RetryableStatus reports whether an upstream status is worth retrying:
// server-side failures, throttling, and request timeouts.
func RetryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
}
