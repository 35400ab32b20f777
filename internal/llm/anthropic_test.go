package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func anthropicServer(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewAnthropicProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "claude-3-5-sonnet-20241022",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return provider
}

func TestAnthropicProvider_Complete_Success(t *testing.T) {
	provider := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("unexpected x-api-key header: %s", r.Header.Get("x-api-key"))
		}
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"content": [{"type": "text", "text": "Paris."}],
			"model": "claude-3-5-sonnet-20241022",
			"stop_reason": "end_turn"
		}`))
	})

	text, err := provider.Complete(context.Background(), "Capital of France?", 0.0)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "Paris." {
		t.Errorf("unexpected completion: %q", text)
	}
}

func TestAnthropicProvider_Complete_RateLimit(t *testing.T) {
	provider := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "Rate limited."}}`))
	})

	_, err := provider.Complete(context.Background(), "q", 0.0)
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected *RateLimitError, got %v", err)
	}
}

func TestNewAnthropicProvider_RequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
