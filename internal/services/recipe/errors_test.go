package recipe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	apperrors "github.com/socialchef/recipe-agent/internal/errors"
)

func TestClassifyError_RateLimit(t *testing.T) {
	testCases := []string{
		"watsonx API error (status 429): {}",
		"rate limit exceeded",
		"Rate Limit Error",
		"too many requests",
	}

	for _, tc := range testCases {
		err := errors.New(tc)
		providerErr := ClassifyError(err, "watsonx")

		if providerErr.Type != ErrorTypeRateLimit {
			t.Errorf("Expected rate_limit for '%s', got %s", tc, providerErr.Type)
		}
		if providerErr.Provider != "watsonx" {
			t.Errorf("Expected provider 'watsonx', got %s", providerErr.Provider)
		}
	}
}

func TestClassifyError_CreditExhausted(t *testing.T) {
	testCases := []string{
		"API error: status 402",
		"insufficient credits",
		"Credit exhausted",
		"billing issue",
		"token quota exceeded for instance",
	}

	for _, tc := range testCases {
		err := errors.New(tc)
		providerErr := ClassifyError(err, "groq")

		if providerErr.Type != ErrorTypeCreditExhausted {
			t.Errorf("Expected credit_exhausted for '%s', got %s", tc, providerErr.Type)
		}
	}
}

func TestClassifyError_ServerError(t *testing.T) {
	testCases := []string{
		"watsonx API error (status 500): oops",
		"HTTP 503",
		"server error occurred",
		"Internal Server Error",
	}

	for _, tc := range testCases {
		err := errors.New(tc)
		providerErr := ClassifyError(err, "openai")

		if providerErr.Type != ErrorTypeServer {
			t.Errorf("Expected server_error for '%s', got %s", tc, providerErr.Type)
		}
	}
}

func TestClassifyError_ClientError(t *testing.T) {
	testCases := []string{
		"watsonx API error (status 400): bad model_id",
		"IAM token error (status 401): {}",
		"bad request",
		"Unauthorized",
	}

	for _, tc := range testCases {
		err := errors.New(tc)
		providerErr := ClassifyError(err, "watsonx")

		if providerErr.Type != ErrorTypeClient {
			t.Errorf("Expected client_error for '%s', got %s", tc, providerErr.Type)
		}
	}
}

func TestClassifyError_Network(t *testing.T) {
	testCases := []error{
		context.DeadlineExceeded,
		fmt.Errorf("generate: %w", context.DeadlineExceeded),
		&url.Error{Op: "Post", URL: "https://us-south.ml.cloud.ibm.com", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}},
		errors.New("read tcp: connection reset by peer"),
	}

	for _, tc := range testCases {
		providerErr := ClassifyError(tc, "watsonx")

		if providerErr.Type != ErrorTypeNetwork {
			t.Errorf("Expected network_error for '%v', got %s", tc, providerErr.Type)
		}
	}
}

func TestClassifyError_AppError(t *testing.T) {
	appErr := apperrors.NewInternalError("server failed", "SERVER_ERROR", nil)
	providerErr := ClassifyError(appErr, "watsonx")

	if providerErr.Type != ErrorTypeServer {
		t.Errorf("Expected server_error for AppError with 500 status, got %s", providerErr.Type)
	}

	appErr2 := apperrors.NewValidationError("bad input", "BAD_INPUT", "")
	providerErr2 := ClassifyError(appErr2, "watsonx")

	if providerErr2.Type != ErrorTypeClient {
		t.Errorf("Expected client_error for AppError with 400 status, got %s", providerErr2.Type)
	}
}

func TestClassifyError_AlreadyClassified(t *testing.T) {
	original := &ProviderError{Type: ErrorTypeRateLimit, Message: "slow down", Provider: "watsonx"}
	wrapped := fmt.Errorf("attempt 2: %w", original)

	if got := ClassifyError(wrapped, "other"); got != original {
		t.Errorf("Expected the original ProviderError, got %+v", got)
	}
}

func TestClassifyError_Unknown(t *testing.T) {
	err := errors.New("malformed response: watsonx returned no generated text")
	providerErr := ClassifyError(err, "watsonx")

	if providerErr.Type != ErrorTypeUnknown {
		t.Errorf("Expected unknown for random error, got %s", providerErr.Type)
	}
	if !errors.Is(providerErr, err) {
		t.Errorf("Expected ProviderError to unwrap to the cause")
	}
}

func TestClassifyError_Nil(t *testing.T) {
	providerErr := ClassifyError(nil, "watsonx")

	if providerErr != nil {
		t.Errorf("Expected nil for nil error, got %v", providerErr)
	}
}

func TestIsRetryableError(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		retryable bool
		transient bool
	}{
		{"rate limit", errors.New("status 429"), true, true},
		{"credit exhausted", errors.New("insufficient credits"), true, false},
		{"server error", errors.New("status 500"), true, true},
		{"network error", context.DeadlineExceeded, true, true},
		{"client error", errors.New("status 400"), false, false},
		{"unknown error", errors.New("random"), false, false},
		{"nil error", nil, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableError(tc.err); got != tc.retryable {
				t.Errorf("IsRetryableError(%v) = %v, expected %v", tc.err, got, tc.retryable)
			}
			if got := IsTransient(tc.err); got != tc.transient {
				t.Errorf("IsTransient(%v) = %v, expected %v", tc.err, got, tc.transient)
			}
		})
	}
}
