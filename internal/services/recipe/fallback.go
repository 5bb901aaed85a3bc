package recipe

import (
	"context"
	"log/slog"

	"github.com/socialchef/recipe-agent/internal/metrics"
)

// FallbackProvider implements Provider with fallback logic
type FallbackProvider struct {
	Primary       Provider
	Secondary     Provider
	primaryName   string
	secondaryName string
}

// NewFallbackProvider creates a new fallback provider. The names label logs and metrics.
func NewFallbackProvider(primary, secondary Provider, primaryName, secondaryName string) *FallbackProvider {
	return &FallbackProvider{
		Primary:       primary,
		Secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
	}
}

// Generate tries the primary provider first, falls back to secondary on retryable errors
func (f *FallbackProvider) Generate(ctx context.Context, ingredients string) (*Generation, error) {
	result, err := f.Primary.Generate(ctx, ingredients)
	if err == nil {
		return result, nil
	}

	providerErr := ClassifyError(err, f.primaryName)

	// Not a retryable error (e.g., 4xx), or the caller is gone
	if !IsRetryableError(err) || ctx.Err() != nil {
		slog.Info("Primary provider failed with non-retryable error, not attempting fallback",
			"error_type", providerErr.Type,
			"error", err.Error())
		return nil, providerErr
	}

	slog.Info("Primary provider failed with retryable error, attempting fallback",
		"error_type", providerErr.Type,
		"error", err.Error(),
		"fallback_provider", f.secondaryName)

	metrics.RecordFallback(ctx, f.primaryName, f.secondaryName, providerErr.Type)

	result, fallbackErr := f.Secondary.Generate(ctx, ingredients)
	if fallbackErr == nil {
		slog.Info("Fallback provider succeeded",
			"primary_error_type", providerErr.Type,
			"fallback_provider", f.secondaryName)
		result.Fallback = true
		return result, nil
	}

	fallbackProviderErr := ClassifyError(fallbackErr, f.secondaryName)
	slog.Error("Both primary and secondary providers failed",
		"primary_error_type", providerErr.Type,
		"primary_error", err.Error(),
		"fallback_error_type", fallbackProviderErr.Type,
		"fallback_error", fallbackErr.Error())

	// The primary's classification decides how the failure is reported.
	return nil, providerErr
}
