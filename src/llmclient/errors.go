package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Common error variables
var (
	// ErrNoAPIKey indicates the API key is missing
	ErrNoAPIKey = errors.New("API key is required")

	// ErrEmptyResponse indicates the API returned an empty response
	ErrEmptyResponse = errors.New("empty response from API")

	// ErrStreamClosed indicates the stream has been closed
	ErrStreamClosed = errors.New("stream closed")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("operation timed out")
)

// ErrorResponse matches the backend error format:
// {"error":{"message":"...","code":"..."}}
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError represents an error response from the chat backend.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Code       string
	RequestID  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error is worth another attempt.
// Auth failures and rate limits are not: they trip the circuit instead.
func (e *APIError) IsRetryable() bool {
	if e.IsAuthError() || e.IsRateLimit() {
		return false
	}
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return true
	}
	switch e.Code {
	case "timeout", "connection_error", "server_error":
		return true
	}
	return false
}

// IsRateLimit returns true if this is a rate limit error.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limit_exceeded"
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "invalid_api_key"
}

// TripsImmediately reports whether the error should open the circuit
// without counting toward the failure threshold.
func (e *APIError) TripsImmediately() bool {
	return e.IsAuthError() || e.IsRateLimit()
}

// CircuitOpenError is returned when the breaker short-circuits a call.
// It is deliberate back-pressure, never retried locally.
type CircuitOpenError struct {
	OpenedAt   time.Time
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open: backend unavailable, retry in %s", e.RetryAfter.Round(time.Second))
}

// IsCircuitOpen reports whether err is a circuit short-circuit.
func IsCircuitOpen(err error) bool {
	var ce *CircuitOpenError
	return errors.As(err, &ce)
}

// ParseError indicates a malformed response body or streaming chunk.
type ParseError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// isRetryable classifies any gateway error. Network errors, timeouts,
// parse errors and 5xx responses are retryable; 401/429 and open circuits
// are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsCircuitOpen(err) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	return true
}
