package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dealscout/dealscout/models"
)

// OpenAIProvider is a lightweight client for any OpenAI-compatible chat
// completion API. It uses net/http directly — no SDK needed.
type OpenAIProvider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	models     []string
}

// NewOpenAIProvider creates a provider with an ordered model fallback
// list. Pass nil to use a default http.Client.
func NewOpenAIProvider(httpClient *http.Client, apiKey, baseURL string, modelList []string) *OpenAIProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIProvider{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		models:     modelList,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// chatRequest is the OpenAI chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error payload.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete tries each model in order; model-unavailable errors advance
// the list, auth and rate-limit errors abort immediately.
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for _, model := range p.models {
		text, err := p.complete(ctx, model, system, user)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var ee *models.ExtractError
		if errors.As(err, &ee) {
			if ee.Code == models.ErrCodeLLMAuthFailure || ee.Code == models.ErrCodeLLMRateLimited {
				return "", err
			}
		}
		slog.Debug("model failed, trying next", "provider", p.Name(), "model", model, "error", err)
	}
	if lastErr == nil {
		lastErr = models.NewExtractError(models.ErrCodeLLMFailure, "no models configured", nil)
	}
	return "", lastErr
}

func (p *OpenAIProvider) complete(ctx context.Context, model, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", models.NewExtractError(models.ErrCodeLLMFailure, "LLM request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewExtractError(models.ErrCodeLLMFailure, "failed to read LLM response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyAPIError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", models.NewExtractError(models.ErrCodeLLMFailure, "failed to parse LLM response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", models.NewExtractError(models.ErrCodeLLMFailure, "LLM returned no choices", nil)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// classifyAPIError maps HTTP status codes to error codes.
func classifyAPIError(statusCode int, body []byte) *models.ExtractError {
	var errResp chatErrorResponse
	msg := "LLM API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewExtractError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewExtractError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewExtractError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg), nil)
	}
}
