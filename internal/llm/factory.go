package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/pkg/anthropic"
)

// NewProvider builds the provider selected by cfg.LLM.Provider.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	l := cfg.LLM
	switch l.Provider {
	case "", "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("llm: anthropic.key is required")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return NewAnthropicProvider(client, cfg.Anthropic.Model, l.MaxTokens, l.Temperature), nil
	case "openai":
		return NewOpenAIProvider(ctx, cfg.OpenAI.BaseURL, cfg.OpenAI.Key, cfg.OpenAI.Model, l.MaxTokens, l.Temperature)
	case "gemini":
		return NewGeminiProvider(ctx, cfg.Gemini.Key, cfg.Gemini.Model, l.MaxTokens, l.Temperature)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", l.Provider)
	}
}
