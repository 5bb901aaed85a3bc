package recipe

import (
	"context"

	"github.com/socialchef/recipe-agent/internal/config"
	"github.com/socialchef/recipe-agent/internal/retry"
	"github.com/socialchef/recipe-agent/internal/services/ai"
	"github.com/socialchef/recipe-agent/internal/services/openai"
)

// ChatClient is an OpenAI-compatible chat completion client.
type ChatClient interface {
	Chat(ctx context.Context, model, systemPrompt, userContent string, sampling openai.Sampling) (string, error)
}

// ChatProvider generates recipes through a chat completion API (Groq, OpenAI).
// It sends the same prompt as the primary provider as the user message.
type ChatProvider struct {
	name     ProviderType
	client   ChatClient
	model    string
	sampling openai.Sampling
	retry    retry.Config
}

func NewChatProvider(name ProviderType, client ChatClient, model string, cfg config.GenerationConfig) *ChatProvider {
	return &ChatProvider{
		name:   name,
		client: client,
		model:  model,
		sampling: openai.Sampling{
			MaxTokens:   cfg.MaxNewTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		},
		retry: retryConfig(cfg, string(name)),
	}
}

func (p *ChatProvider) Generate(ctx context.Context, ingredients string) (*Generation, error) {
	prompt := ai.BuildRecipePrompt(ingredients)

	text, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
		text, err := p.client.Chat(ctx, p.model, ai.SystemPrompt, prompt, p.sampling)
		if err != nil {
			return "", ClassifyError(err, string(p.name))
		}
		return text, nil
	}, p.retry)
	if err != nil {
		return nil, ClassifyError(err, string(p.name))
	}

	return &Generation{
		Text:     text,
		Provider: string(p.name),
		Model:    p.model,
	}, nil
}
