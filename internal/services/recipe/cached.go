package recipe

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/socialchef/recipe-agent/internal/cache"
	"github.com/socialchef/recipe-agent/internal/metrics"
)

// CachedProvider serves repeated ingredient lists from a cache. Only
// generations of the primary model are stored; fallback output is not.
type CachedProvider struct {
	next  Provider
	cache cache.Cache
	model string
	ttl   time.Duration
}

func NewCachedProvider(next Provider, c cache.Cache, model string, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: c, model: model, ttl: ttl}
}

func (p *CachedProvider) Generate(ctx context.Context, ingredients string) (*Generation, error) {
	key := cache.Key(p.model, strings.TrimSpace(ingredients))

	text, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("Generation cache lookup failed", "backend", p.cache.Name(), "error", err)
	}
	metrics.RecordCacheLookup(ctx, p.cache.Name(), ok)
	if ok {
		return &Generation{
			Text:     text,
			Provider: "cache",
			Model:    p.model,
			Cached:   true,
		}, nil
	}

	gen, err := p.next.Generate(ctx, ingredients)
	if err != nil {
		return nil, err
	}

	if !gen.Fallback {
		if err := p.cache.Set(ctx, key, gen.Text, p.ttl); err != nil {
			slog.Warn("Generation cache store failed", "backend", p.cache.Name(), "error", err)
		}
	}

	return gen, nil
}
