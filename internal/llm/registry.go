package llm

import (
	"context"
	"fmt"
	"strings"
)

// Options selects and configures a provider adapter.
type Options struct {
	Provider string
	Model    string
	APIKey   string // empty falls back to the provider's env var
	BaseURL  string // ollama host or test endpoint override
	RPS      float64
	Burst    int
}

// New dispatches on the provider tag and returns the matching adapter.
// Unknown providers are an error rather than a silent fallback.
func New(ctx context.Context, opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	switch provider {
	case "gemini":
		return NewGeminiClient(ctx, opts.APIKey, opts.Model, opts.RPS, opts.Burst)
	case "groq":
		return NewGroqClient(opts.APIKey, opts.Model, opts.RPS, opts.Burst)
	case "openai":
		return NewOpenAIClient(opts.APIKey, opts.Model, opts.RPS, opts.Burst)
	case "anthropic":
		return NewAnthropicClient(opts.APIKey, opts.Model, opts.RPS, opts.Burst)
	case "ollama":
		return NewOllamaClient(opts.BaseURL, opts.Model), nil
	case "fake", "":
		return NewFakeClient(""), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
	}
}

// Factory builds one client per request, letting callers pick provider
// and model per operation while the wiring stays in one place.
type Factory func(ctx context.Context, provider, model string) (Client, error)

// NewFactory returns a Factory with defaults from base. Request values
// override the defaults when non-empty.
func NewFactory(base Options) Factory {
	return func(ctx context.Context, provider, model string) (Client, error) {
		opts := base
		if strings.TrimSpace(provider) != "" {
			opts.Provider = provider
		}
		if strings.TrimSpace(model) != "" {
			opts.Model = model
		}
		return New(ctx, opts)
	}
}
