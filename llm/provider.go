// Package llm holds the model-assisted extraction stage: provider
// clients with model fallback, the constrained extraction prompt, and
// the validation gate that keeps hallucinated records out of the
// pipeline.
package llm

import (
	"context"
	"net/http"

	"github.com/dealscout/dealscout/config"
)

// Provider is a single language-model backend. Complete sends one
// system+user exchange and returns the raw assistant text, falling
// through the provider's ordered model list when the primary model
// identifier is unavailable.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewProviders builds the static preference order from configuration:
// the OpenAI-compatible provider first, Anthropic second. An empty slice
// means the stage is disabled.
func NewProviders(cfg config.LLMConfig, httpClient *http.Client) []Provider {
	var out []Provider
	if cfg.OpenAIKey != "" {
		out = append(out, NewOpenAIProvider(httpClient, cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModels))
	}
	if cfg.AnthropicKey != "" {
		out = append(out, NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModels))
	}
	return out
}
