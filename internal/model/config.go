package model

import "time"

// Config is the complete runtime configuration.
type Config struct {
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	HTTP        HTTPConfig        `yaml:"http" json:"http"`
	Pipeline    PipelineConfig    `yaml:"pipeline" json:"pipeline"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" json:"retrieval"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
}

// LLMConfig configures the backing LLM provider.
type LLMConfig struct {
	Provider   string `yaml:"provider" json:"provider"` // openai, anthropic, ollama
	Model      string `yaml:"model" json:"model"`
	APIKey     string `yaml:"api_key" json:"-"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	Timeout    int    `yaml:"timeout" json:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" json:"max_tokens"`
	MaxRetries int    `yaml:"max_retries" json:"max_retries"` // rate-limit retries

	// Proxy settings
	HTTPProxy  string `yaml:"http_proxy" json:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy" json:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy" json:"no_proxy,omitempty"`
}

// HTTPConfig configures outbound HTTP to knowledge sources.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
}

// PipelineConfig tunes rationale generation and early stopping.
type PipelineConfig struct {
	NumRationales      int     `yaml:"num_rationales" json:"num_rationales"`             // k for QA questions
	NumRationalesClaim int     `yaml:"num_rationales_claim" json:"num_rationales_claim"` // reduced k for claims
	ConsensusThreshold float64 `yaml:"consensus_threshold" json:"consensus_threshold"`
	EarlyStopThreshold float64 `yaml:"early_stop_threshold" json:"early_stop_threshold"` // stricter gate for early stop
}

// RetrievalConfig tunes knowledge retrieval and relevance filtering.
type RetrievalConfig struct {
	TopK             int           `yaml:"top_k" json:"top_k"`
	MinScore         float64       `yaml:"min_score" json:"min_score"`                   // generic fan-out threshold
	FallbackMinScore float64       `yaml:"fallback_min_score" json:"fallback_min_score"` // after an empty primary source
	SourceTimeout    time.Duration `yaml:"source_timeout" json:"source_timeout"`
	MaxQueryLen      int           `yaml:"max_query_len" json:"max_query_len"`
}

// ConcurrencyConfig bounds batch evaluation parallelism.
type ConcurrencyConfig struct {
	BatchWorkers int `yaml:"batch_workers" json:"batch_workers"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "",
			Timeout:    30,
			MaxTokens:  1024,
			MaxRetries: 3,
		},
		HTTP: HTTPConfig{
			Timeout:           10 * time.Second,
			UserAgent:         "knowchain/0.1 (+https://github.com/pzaytsev/knowchain)",
			MaxBodyBytes:      2 << 20,
			RequestsPerSecond: 1.0,
			Burst:             3,
		},
		Pipeline: PipelineConfig{
			NumRationales:      5,
			NumRationalesClaim: 3,
			ConsensusThreshold: 0.5,
			EarlyStopThreshold: 0.7,
		},
		Retrieval: RetrievalConfig{
			TopK:             3,
			MinScore:         0.10,
			FallbackMinScore: 0.15,
			SourceTimeout:    10 * time.Second,
			MaxQueryLen:      300,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 2,
		},
	}
}
