package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("recipe-agent/business")

	// Recipe metrics
	RecipeGenerationsTotal metric.Int64Counter
	RecipeIngredientCount  metric.Int64Histogram

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// AI metrics
	AIGenerationDuration metric.Float64Histogram

	// Provider fallback metrics
	ProviderFallbackTotal metric.Int64Counter

	// Cache metrics
	CacheLookupsTotal metric.Int64Counter

	// Rate limiting
	RateLimitedTotal metric.Int64Counter
)

func Init() error {
	var err error

	RecipeGenerationsTotal, err = meter.Int64Counter(
		"recipe.generations.total",
		metric.WithDescription("Total number of recipe generation requests by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RecipeIngredientCount, err = meter.Int64Histogram(
		"recipe.ingredient.count",
		metric.WithDescription("Number of ingredient lines parsed from generated recipes"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 3, 5, 8, 12, 20),
	)
	if err != nil {
		return err
	}

	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	AIGenerationDuration, err = meter.Float64Histogram(
		"ai.generation.duration",
		metric.WithDescription("Duration of AI recipe generation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	ProviderFallbackTotal, err = meter.Int64Counter(
		"provider.fallback.total",
		metric.WithDescription("Total number of provider fallback events"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	CacheLookupsTotal, err = meter.Int64Counter(
		"recipe.cache.lookups.total",
		metric.WithDescription("Generation cache lookups by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RateLimitedTotal, err = meter.Int64Counter(
		"http.rate_limited.total",
		metric.WithDescription("Requests rejected by the per-client rate limiter"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

// The helpers below are safe to call before Init; instruments that were
// never created are skipped.

func RecordExternalCall(ctx context.Context, provider string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	if ExternalAPIDuration != nil {
		ExternalAPIDuration.Record(ctx, seconds, attrs)
	}
	if ExternalAPICallsTotal != nil {
		ExternalAPICallsTotal.Add(ctx, 1, attrs)
	}
}

func RecordAIGeneration(ctx context.Context, provider string, seconds float64) {
	if AIGenerationDuration != nil {
		AIGenerationDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("provider", provider)))
	}
}

func RecordGeneration(ctx context.Context, outcome string) {
	if RecipeGenerationsTotal != nil {
		RecipeGenerationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordIngredientCount(ctx context.Context, n int) {
	if RecipeIngredientCount != nil {
		RecipeIngredientCount.Record(ctx, int64(n))
	}
}

func RecordFallback(ctx context.Context, from, to, reason string) {
	if ProviderFallbackTotal != nil {
		ProviderFallbackTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from_provider", from),
			attribute.String("to_provider", to),
			attribute.String("reason", reason),
		))
	}
}

func RecordCacheLookup(ctx context.Context, backend string, hit bool) {
	if CacheLookupsTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("result", result),
	))
}

func RecordRateLimited(ctx context.Context, route string) {
	if RateLimitedTotal != nil {
		RateLimitedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
	}
}
