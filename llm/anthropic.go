package llm

import (
	"context"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dealscout/dealscout/models"
)

// AnthropicProvider backs the extraction prompt with the official
// anthropic-sdk-go client.
type AnthropicProvider struct {
	client sdk.Client
	models []string
}

// NewAnthropicProvider creates a provider with an ordered model fallback
// list.
func NewAnthropicProvider(apiKey string, modelList []string) *AnthropicProvider {
	return &AnthropicProvider{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		models: modelList,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete tries each model in order, advancing on model-unavailable
// errors and aborting on auth failures.
func (p *AnthropicProvider) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for _, model := range p.models {
		msg, err := p.client.Messages.New(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(model),
			MaxTokens: 1024,
			System: []sdk.TextBlockParam{
				{Text: system},
			},
			Messages: []sdk.MessageParam{
				sdk.NewUserMessage(sdk.NewTextBlock(user)),
			},
		})
		if err == nil {
			return messageText(msg), nil
		}
		lastErr = err

		errText := strings.ToLower(err.Error())
		if strings.Contains(errText, "authentication") || strings.Contains(errText, "permission") {
			return "", models.NewExtractError(models.ErrCodeLLMAuthFailure, "anthropic auth failed", err)
		}
		if strings.Contains(errText, "rate limit") || strings.Contains(errText, "429") {
			return "", models.NewExtractError(models.ErrCodeLLMRateLimited, "anthropic rate limited", err)
		}
		slog.Debug("model failed, trying next", "provider", p.Name(), "model", model, "error", err)
	}
	return "", models.NewExtractError(models.ErrCodeLLMFailure, "all anthropic models failed", lastErr)
}

// messageText concatenates the text blocks of a response.
func messageText(msg *sdk.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
