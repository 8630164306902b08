package llm

import (
	"context"
	"fmt"
)

// NewProvider creates a Provider from configuration, wrapped with logging
// and metrics. There is no retry layer: every call is a single attempt.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.APIKey, cfg.model())
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.model())
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.APIKey, cfg.model())
	case ProviderMock:
		base = NewDemoProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithLogging(base), nil
}
