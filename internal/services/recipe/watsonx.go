package recipe

import (
	"context"
	"log/slog"
	"time"

	"github.com/socialchef/recipe-agent/internal/config"
	"github.com/socialchef/recipe-agent/internal/retry"
	"github.com/socialchef/recipe-agent/internal/services/ai"
	"github.com/socialchef/recipe-agent/internal/services/watsonx"
)

// TextGenerator is the part of the watsonx client the provider needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, modelID, input string, params watsonx.Parameters) (string, error)
}

// WatsonxProvider generates recipes with a Granite model on watsonx.ai.
type WatsonxProvider struct {
	client TextGenerator
	model  string
	params watsonx.Parameters
	retry  retry.Config
}

// NewWatsonxProvider creates a provider using the model and decoding
// parameters of cfg. Each attempt is bounded by cfg.Timeout.
func NewWatsonxProvider(client TextGenerator, cfg config.GenerationConfig) *WatsonxProvider {
	return &WatsonxProvider{
		client: client,
		model:  cfg.ModelID,
		params: watsonx.Parameters{
			DecodingMethod:    cfg.DecodingMethod,
			MaxNewTokens:      cfg.MaxNewTokens,
			Temperature:       cfg.Temperature,
			TopP:              cfg.TopP,
			RepetitionPenalty: cfg.RepetitionPenalty,
		},
		retry: retryConfig(cfg, string(ProviderWatsonx)),
	}
}

// Model returns the model id sent with every request.
func (p *WatsonxProvider) Model() string {
	return p.model
}

func (p *WatsonxProvider) Generate(ctx context.Context, ingredients string) (*Generation, error) {
	prompt := ai.BuildRecipePrompt(ingredients)

	text, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
		text, err := p.client.GenerateText(ctx, p.model, prompt, p.params)
		if err != nil {
			return "", ClassifyError(err, string(ProviderWatsonx))
		}
		return text, nil
	}, p.retry)
	if err != nil {
		return nil, ClassifyError(err, string(ProviderWatsonx))
	}

	return &Generation{
		Text:     text,
		Provider: string(ProviderWatsonx),
		Model:    p.model,
	}, nil
}

// retryConfig allows cfg.MaxAttempts attempts on transient failures.
func retryConfig(cfg config.GenerationConfig, provider string) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.MaxAttempts
	rc.Timeout = cfg.Timeout
	rc.Retryable = IsTransient
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		slog.Warn("Generation attempt failed, retrying",
			"provider", provider,
			"attempt", attempt,
			"error_type", ClassifyError(err, provider).Type,
			"error", err.Error(),
			"delay", delay)
	}
	return rc
}
