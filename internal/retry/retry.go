package retry

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Config holds the configuration for the retry mechanism.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Timeout bounds each attempt, not the whole sequence. Zero means no per-attempt deadline.
	Timeout time.Duration
	// Retryable decides whether a failed attempt is worth repeating.
	// When nil, errors are matched against RetryableErrors.
	Retryable       func(error) bool
	RetryableErrors []string
	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Func defines the signature for operations that can be retried.
type Func[T any] func(ctx context.Context) (T, error)

// DefaultConfig allows a single retry after a short backoff.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   2,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Timeout:       60 * time.Second,
		RetryableErrors: []string{
			"timeout",
			"connection reset",
			"rate limit",
			"connection refused",
			"status 5", // 5xx status codes as formatted by the provider clients
		},
	}
}

// IsRetryableError checks if the given error is retryable based on defined patterns.
func IsRetryableError(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(errMsg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func (c Config) retryable(err error) bool {
	if c.Retryable != nil {
		return c.Retryable(err)
	}
	return IsRetryableError(err, c.RetryableErrors)
}

// Backoff returns the delay before the attempt following attempt n (1-based), without jitter.
func (c Config) Backoff(attempt int) time.Duration {
	backoff := float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1))
	delay := time.Duration(backoff)
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Do executes the given operation with retries based on the provided config.
func Do[T any](ctx context.Context, operation Func[T], config Config) (T, error) {
	var lastErr error
	var zero T

	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if config.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, config.Timeout)
		}

		result, err := operation(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}

		lastErr = err

		if attempt == maxAttempts {
			break
		}

		if ctx.Err() != nil || !config.retryable(err) {
			break
		}

		delay := config.Backoff(attempt)

		// Add jitter (up to 10% of the delay)
		jitterRange := int64(delay) / 10
		if jitterRange > 0 {
			delay += time.Duration(rand.Int63n(jitterRange))
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
