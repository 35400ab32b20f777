package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/pzaytsev/knowchain/internal/util"
)

// OpenAIProvider implements the Provider interface for OpenAI and
// OpenAI-compatible endpoints (Together, Groq, etc. via BaseURL).
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Complete generates a completion via the Chat Completions API.
// Rate-limit rejections are normalized to *RateLimitError and content
// safety rejections to ErrContentFiltered so the gateway can react.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	model := p.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := p.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", fmt.Errorf("completion blocked: %w", ErrContentFiltered)
	}

	return strings.TrimSpace(choice.Message.Content), nil
}

// classifyOpenAIError maps API errors onto the gateway's taxonomy.
func classifyOpenAIError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			wait, _ := ParseRetryAfter(apiErr.Message)
			return &RateLimitError{Wait: wait, Err: err}
		case isContentFiltered(err):
			return fmt.Errorf("%v: %w", apiErr.Message, ErrContentFiltered)
		}
	}
	return fmt.Errorf("OpenAI API error: %w", err)
}
