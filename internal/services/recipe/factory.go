package recipe

import (
	"log/slog"

	"github.com/socialchef/recipe-agent/internal/cache"
	"github.com/socialchef/recipe-agent/internal/config"
	"github.com/socialchef/recipe-agent/internal/services/openai"
	"github.com/socialchef/recipe-agent/internal/services/watsonx"
)

// NewProvider creates the recipe provider described by cfg: watsonx as the
// primary, optionally wrapped with a chat-completion fallback and a cache.
// A nil cache disables caching.
func NewProvider(cfg *config.Config, c cache.Cache) Provider {
	client := watsonx.NewClient(watsonx.Options{
		APIKey:    cfg.Watsonx.APIKey,
		ProjectID: cfg.Watsonx.ProjectID,
		URL:       cfg.Watsonx.URL,
		IAMURL:    cfg.Watsonx.IAMURL,
	})

	var provider Provider = NewWatsonxProvider(client, cfg.Generation)

	if cfg.Fallback.Enabled {
		if secondary := newFallbackChatProvider(cfg); secondary != nil {
			provider = NewFallbackProvider(provider, secondary, string(ProviderWatsonx), string(secondary.name))
		} else {
			slog.Warn("Fallback enabled but no API key configured, continuing without fallback",
				"fallback_provider", cfg.Fallback.Provider)
		}
	}

	if c != nil {
		provider = NewCachedProvider(provider, c, cfg.Generation.ModelID, cfg.Cache.TTL)
	}

	return provider
}

func newFallbackChatProvider(cfg *config.Config) *ChatProvider {
	switch ProviderType(cfg.Fallback.Provider) {
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil
		}
		return NewChatProvider(ProviderOpenAI, openai.NewOpenAIClient(cfg.OpenAIKey), cfg.Fallback.Model, cfg.Generation)
	default:
		// Default to groq
		if cfg.GroqKey == "" {
			return nil
		}
		return NewChatProvider(ProviderGroq, openai.NewGroqClient(cfg.GroqKey), cfg.Fallback.Model, cfg.Generation)
	}
}
