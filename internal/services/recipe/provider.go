package recipe

import "context"

// ProviderType represents the type of AI provider
type ProviderType string

const (
	ProviderWatsonx ProviderType = "watsonx"
	ProviderGroq    ProviderType = "groq"
	ProviderOpenAI  ProviderType = "openai"
)

// Generation is a successfully generated recipe text and where it came from.
type Generation struct {
	Text     string
	Provider string
	Model    string
	// Fallback is set when the secondary provider served the request.
	Fallback bool
	// Cached is set when the text was served from the generation cache.
	Cached bool
}

// Provider generates recipe text for a free-text ingredient list.
// Failures are returned as *ProviderError, never as recipe text.
type Provider interface {
	Generate(ctx context.Context, ingredients string) (*Generation, error)
}
