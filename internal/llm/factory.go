package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/cardquiz/internal/logger"
	"github.com/abhisek/cardquiz/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped with logging
// middleware. Calls are made exactly once; there is no retry layer.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.LLMEventAppender, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		// An empty mock fails every call, which exercises the fallback tables.
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// caller → logging → base
	return WithLogging(base, eventRepo, log), nil
}
