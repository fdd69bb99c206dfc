package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Retry     RetryConfig
	LLM       LLMConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetchConfig controls outbound page fetching.
type FetchConfig struct {
	// Timeout is the per-request deadline for target-site fetches.
	Timeout time.Duration // default: 15s

	// Proxy is an optional proxy URL applied to every request.
	Proxy string

	// MaxRedirects caps redirect chains.
	MaxRedirects int // default: 5
}

// RetryConfig controls the legacy extractor's retry loop.
type RetryConfig struct {
	// BaseDelay is the backoff base; attempt n waits BaseDelay * 2^n.
	BaseDelay time.Duration // default: 1s

	// MaxAttempts bounds retries on detected blocking.
	MaxAttempts int // default: 3
}

// LLMConfig controls the model-assisted extraction stage.
type LLMConfig struct {
	// OpenAIKey enables the OpenAI-compatible provider when non-empty.
	OpenAIKey string

	// OpenAIBaseURL supports any OpenAI-compatible API.
	OpenAIBaseURL string // default: "https://api.openai.com/v1"

	// OpenAIModels is the ordered model fallback list for the provider.
	OpenAIModels []string

	// AnthropicKey enables the Anthropic provider when non-empty.
	AnthropicKey string

	// AnthropicModels is the ordered model fallback list.
	AnthropicModels []string

	// Timeout is the per-call deadline for LLM requests.
	Timeout time.Duration // default: 20s

	// BudgetRequests and BudgetWindow bound process-wide LLM usage:
	// BudgetRequests calls per BudgetWindow, shared across all pipelines.
	BudgetRequests int           // default: 10
	BudgetWindow   time.Duration // default: 60s

	// ExcerptBytes is how much page HTML is fetched for the prompt.
	ExcerptBytes int // default: 50 KB
}

// Configured reports whether at least one provider credential is present.
func (c LLMConfig) Configured() bool {
	return c.OpenAIKey != "" || c.AnthropicKey != ""
}

// CacheConfig controls the extraction response cache.
type CacheConfig struct {
	// TTL is how long a cached record stays fresh.
	TTL time.Duration // default: 30s

	// MaxEntries is the maximum number of cached records.
	MaxEntries int // default: 1000
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key API rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// WebhookConfig controls outbound batch notifications.
type WebhookConfig struct {
	// Secret signs delivery payloads with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("DEALSCOUT_HOST", "0.0.0.0"),
			Port: envIntOr("DEALSCOUT_PORT", 8080),
			Mode: envOr("DEALSCOUT_MODE", "release"),
		},
		Fetch: FetchConfig{
			Timeout:      envDurationOr("DEALSCOUT_FETCH_TIMEOUT", 15*time.Second),
			Proxy:        os.Getenv("DEALSCOUT_PROXY"),
			MaxRedirects: envIntOr("DEALSCOUT_MAX_REDIRECTS", 5),
		},
		Retry: RetryConfig{
			BaseDelay:   envDurationOr("DEALSCOUT_RETRY_BASE_DELAY", 1*time.Second),
			MaxAttempts: envIntOr("DEALSCOUT_RETRY_MAX_ATTEMPTS", 3),
		},
		LLM: LLMConfig{
			OpenAIKey:     os.Getenv("DEALSCOUT_OPENAI_KEY"),
			OpenAIBaseURL: envOr("DEALSCOUT_OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModels: envSliceOr("DEALSCOUT_OPENAI_MODELS", []string{
				"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo",
			}),
			AnthropicKey: os.Getenv("DEALSCOUT_ANTHROPIC_KEY"),
			AnthropicModels: envSliceOr("DEALSCOUT_ANTHROPIC_MODELS", []string{
				"claude-haiku-4-5-20251001", "claude-sonnet-4-5-20250929",
			}),
			Timeout:        envDurationOr("DEALSCOUT_LLM_TIMEOUT", 20*time.Second),
			BudgetRequests: envIntOr("DEALSCOUT_LLM_BUDGET", 10),
			BudgetWindow:   envDurationOr("DEALSCOUT_LLM_BUDGET_WINDOW", 60*time.Second),
			ExcerptBytes:   envIntOr("DEALSCOUT_LLM_EXCERPT_BYTES", 50*1024),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("DEALSCOUT_AUTH_ENABLED", false),
			APIKeys: envSliceOr("DEALSCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("DEALSCOUT_RATE_RPS", 5.0),
			Burst:             envIntOr("DEALSCOUT_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			TTL:        envDurationOr("DEALSCOUT_CACHE_TTL", 30*time.Second),
			MaxEntries: envIntOr("DEALSCOUT_CACHE_MAX_ENTRIES", 1000),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("DEALSCOUT_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("DEALSCOUT_LOG_LEVEL", "info"),
			Format: envOr("DEALSCOUT_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
