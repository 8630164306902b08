package llm

import "fmt"

// Provider names accepted by NewProvider.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config holds LLM provider configuration.
type Config struct {
	// Provider is one of gemini, openai, anthropic or mock.
	Provider string
	APIKey   string
	// Model is a provider model ID or one of the friendly names
	// (gemini-flash, gpt-4o-mini, claude-haiku, ...). Empty picks the
	// provider default.
	Model string
	// BaseURL overrides the OpenAI endpoint, e.g. a local Ollama server.
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderGemini,
		Temperature: 0.4,
		MaxTokens:   4096,
	}
}

var defaultModels = map[string]string{
	ProviderGemini:    "gemini-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-haiku",
}

func (c Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderAnthropic:
		if c.APIKey == "" {
			return fmt.Errorf("an API key is required for the %s provider", c.Provider)
		}
	case ProviderOpenAI:
		// Local OpenAI-compatible servers accept any key.
		if c.APIKey == "" && c.BaseURL == "" {
			return fmt.Errorf("an API key or base URL is required for the openai provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
