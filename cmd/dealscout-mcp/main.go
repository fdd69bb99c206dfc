package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// extractRequest mirrors the Dealscout API request model.
type extractRequest struct {
	URL     string `json:"url"`
	NoCache bool   `json:"no_cache,omitempty"`
}

// productRecord mirrors the Dealscout API product model.
type productRecord struct {
	ProductID    string   `json:"product_id"`
	Title        string   `json:"title"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency"`
	Rating       *float64 `json:"rating"`
	ReviewCount  *int     `json:"review_count"`
	Availability string   `json:"availability"`
	Brand        string   `json:"brand"`
	Category     string   `json:"category"`
	Source       string   `json:"source"`
	URL          string   `json:"url"`
}

// extractResponse mirrors the Dealscout API response model.
type extractResponse struct {
	Success     bool            `json:"success"`
	Product     json.RawMessage `json:"product"`
	CacheStatus string          `json:"cache_status"`
	Error       *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// batchResponse mirrors the Dealscout batch API response.
type batchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// batchStatusResponse mirrors the Dealscout batch status API response.
type batchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []json.RawMessage `json:"results"`
}

func main() {
	apiURL := os.Getenv("DEALSCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("DEALSCOUT_API_KEY")

	s := server.NewMCPServer(
		"dealscout",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_product",
		mcp.WithDescription("Extract structured product data (title, price, rating, availability, images) from an e-commerce product page URL. Always returns a product record."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the product page"),
		),
		mcp.WithBoolean("no_cache",
			mcp.Description("Bypass the short-lived response cache and fetch fresh data"),
		),
	)
	s.AddTool(extractTool, handleExtractProduct(apiURL, apiKey))

	batchTool := mcp.NewTool("extract_products",
		mcp.WithDescription("Extract structured product data from up to 20 e-commerce URLs in one batch. Returns a record per URL."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of product page URLs"),
		),
	)
	s.AddTool(batchTool, handleExtractBatch(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the Dealscout API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollBatch polls the batch endpoint until the job leaves "processing".
func pollBatch(ctx context.Context, client *http.Client, apiURL, apiKey, id string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/api/v1/batch/"+id, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			if apiKey != "" {
				req.Header.Set("X-API-Key", apiKey)
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}

func handleExtractProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		noCache := request.GetBool("no_cache", false)

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/extract", extractRequest{
			URL:     url,
			NoCache: noCache,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract request failed: %v", err)), nil
		}

		var extResp extractResponse
		if err := json.Unmarshal(respBody, &extResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !extResp.Success {
			errMsg := "extraction failed"
			if extResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", extResp.Error.Code, extResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, extResp.Product, "", "  "); err != nil {
			pretty.Write(extResp.Product)
		}
		return mcp.NewToolResultText(pretty.String()), nil
	}
}

func handleExtractBatch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/batch", map[string]interface{}{
			"urls": urls,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var batchResp batchResponse
		if err := json.Unmarshal(respBody, &batchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}
		if batchResp.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		resultBody, err := pollBatch(ctx, client, apiURL, apiKey, batchResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var statusResp batchStatusResponse
		if err := json.Unmarshal(resultBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch status: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Batch %s: %s (%d/%d completed)\n\n", statusResp.ID, statusResp.Status, statusResp.Completed, statusResp.Total))
		for i, raw := range statusResp.Results {
			var p productRecord
			if err := json.Unmarshal(raw, &p); err != nil {
				sb.WriteString(fmt.Sprintf("--- [%d] parse error ---\n\n", i+1))
				continue
			}
			sb.WriteString(fmt.Sprintf("--- [%d] %s ---\nprice: %.2f %s | availability: %s | source: %s\nurl: %s\n\n",
				i+1, p.Title, p.Price, p.Currency, p.Availability, p.Source, p.URL))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
