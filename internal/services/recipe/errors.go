package recipe

import (
	"context"
	"errors"
	"net"
	"strings"

	apperrors "github.com/socialchef/recipe-agent/internal/errors"
)

const (
	ErrorTypeRateLimit       = "rate_limit"
	ErrorTypeCreditExhausted = "credit_exhausted"
	ErrorTypeServer          = "server_error"
	ErrorTypeClient          = "client_error"
	ErrorTypeNetwork         = "network_error"
	ErrorTypeUnknown         = "unknown"
)

// ProviderError represents a classified error from an AI provider
type ProviderError struct {
	Type     string // one of the ErrorType constants
	Message  string
	Provider string
	Err      error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ClassifyError analyzes an error and returns a ProviderError with classification.
// Errors that are already classified are returned unchanged.
func ClassifyError(err error, provider string) *ProviderError {
	if err == nil {
		return nil
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr
	}

	msg := err.Error()
	classified := func(typ string) *ProviderError {
		return &ProviderError{Type: typ, Message: msg, Provider: provider, Err: err}
	}

	// Check for rate limit (429)
	if containsAny(msg, "status 429", "HTTP 429", "rate limit", "too many requests") {
		return classified(ErrorTypeRateLimit)
	}

	// Check for credit exhaustion (402 or credit-related messages)
	if containsAny(msg, "status 402", "HTTP 402", "insufficient credit", "credit exhausted", "billing", "quota exceeded") {
		return classified(ErrorTypeCreditExhausted)
	}

	// Check for AppError with status code
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode >= 500 {
			return classified(ErrorTypeServer)
		}
		if appErr.StatusCode >= 400 {
			return classified(ErrorTypeClient)
		}
	}

	// Deadlines and transport failures
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return classified(ErrorTypeNetwork)
	}

	// Check for server errors (5xx) in message
	if containsAny(msg, "status 5", "HTTP 5", "server error", "internal error") {
		return classified(ErrorTypeServer)
	}

	// Check for client errors (4xx) in message
	if containsAny(msg, "status 4", "HTTP 4", "bad request", "unauthorized", "forbidden") {
		return classified(ErrorTypeClient)
	}

	if containsAny(msg, "connection refused", "connection reset", "no such host", "timeout") {
		return classified(ErrorTypeNetwork)
	}

	return classified(ErrorTypeUnknown)
}

// IsRetryableError reports whether another provider may succeed where this one
// failed (rate limit, credit exhausted, server or network error).
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	switch ClassifyError(err, "").Type {
	case ErrorTypeRateLimit, ErrorTypeCreditExhausted, ErrorTypeServer, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// IsTransient reports whether repeating the same call may succeed.
// Exhausted credit does not recover within a request.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	switch ClassifyError(err, "").Type {
	case ErrorTypeRateLimit, ErrorTypeServer, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive)
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, substr := range substrs {
		if strings.Contains(lower, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
