package llm

import "context"

// Provider defines the interface for backing LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete generates a completion for the prompt at the given
	// sampling temperature.
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// MaxRetries bounds rate-limit retries in the gateway
	MaxRetries int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:   "",
		Model:      "",
		Timeout:    30,
		MaxTokens:  1024,
		MaxRetries: 3,
	}
}
