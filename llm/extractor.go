package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/dealscout/dealscout/content"
	"github.com/dealscout/dealscout/fetch"
	"github.com/dealscout/dealscout/fields"
	"github.com/dealscout/dealscout/models"
)

const extractSystemPrompt = `You extract product data from e-commerce page content.
Respond with a single JSON object and nothing else. Use exactly these keys:
{"title": string, "price": number, "originalPrice": number|null, "currency": string,
"rating": number|null, "reviewCount": number|null, "availability": "in_stock"|"out_of_stock"|"unknown",
"brand": string|null, "description": string|null, "category": string|null,
"features": [string]|null, "images": [string]|null}
Use null for anything not present in the content. Never invent values.
Prices must be plain numbers without separators or symbols.`

const enhanceSystemPrompt = `You enrich an existing product record from page content.
Respond with a single JSON object and nothing else, with keys:
{"brand": string|null, "description": string|null, "category": string|null, "features": [string]|null}
Use null for anything the content does not support. Never invent values.`

// Extractor asks a language model to pull structured product data out of a
// page excerpt. It shares a process-wide request budget across all callers.
type Extractor struct {
	providers    []Provider
	limiter      *rate.Limiter
	client       *fetch.Client
	builder      *content.Builder
	excerptBytes int
}

// NewExtractor wires the configured providers behind a token-bucket budget.
func NewExtractor(providers []Provider, limiter *rate.Limiter, client *fetch.Client, builder *content.Builder, excerptBytes int) *Extractor {
	if excerptBytes <= 0 {
		excerptBytes = 50 * 1024
	}
	return &Extractor{
		providers:    providers,
		limiter:      limiter,
		client:       client,
		builder:      builder,
		excerptBytes: excerptBytes,
	}
}

func (e *Extractor) Name() string { return "llm" }

// Enabled reports whether any provider is configured.
func (e *Extractor) Enabled() bool { return len(e.providers) > 0 }

// Attempt fetches the page and asks a model for a structured record. The
// budget is consumed before any network work so an exhausted window skips
// the fetch entirely.
func (e *Extractor) Attempt(ctx context.Context, rawURL string) (*models.ProductRecord, error) {
	if !e.Enabled() {
		return nil, models.NewExtractError(models.ErrCodeLLMFailure, "no llm provider configured", nil)
	}
	if !e.limiter.Allow() {
		return nil, models.NewExtractError(models.ErrCodeLLMRateLimited, "llm request budget exhausted", nil)
	}

	resp, err := e.client.Get(ctx, rawURL, fetch.Options{
		UserAgent: fetch.RandomUserAgent(),
		MaxBytes:  e.excerptBytes,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, models.NewExtractError(models.ErrCodeFetch, fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}

	excerpt := e.builder.Excerpt(string(resp.Body), rawURL, e.excerptBytes)
	if strings.TrimSpace(excerpt) == "" {
		return nil, models.NewExtractError(models.ErrCodeParse, "no usable content for llm excerpt", nil)
	}
	slog.Debug("llm excerpt ready", "url", rawURL, "tokens", content.EstimateTokens(excerpt))

	raw, err := e.complete(ctx, extractSystemPrompt, excerpt)
	if err != nil {
		return nil, err
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, err
	}
	rec.URL = rawURL
	rec.Source = "llm"
	if rec.ProductID == "" {
		rec.ProductID = fields.ProductIDFromURL(rawURL)
	}
	if rec.Currency == "" {
		rec.Currency = fields.InferCurrency(excerpt, rawURL)
	}
	if len(rec.Images) == 0 {
		rec.Images = metaImages(resp.Body, rawURL)
	}
	if rec.Description == "" {
		rec.Description = content.Description(string(resp.Body), rawURL)
	}
	rec.Normalize()

	if !rec.Acceptable() {
		return nil, models.NewExtractError(models.ErrCodeValidation, "llm output failed acceptance gate", nil)
	}
	return rec, nil
}

// Enhance fills missing descriptive fields on an accepted record. It never
// touches title or price, and a failed call leaves the record as-is.
func (e *Extractor) Enhance(ctx context.Context, rec *models.ProductRecord) {
	if !e.Enabled() || rec == nil {
		return
	}
	if rec.Brand != "" && rec.Description != "" && rec.Category != "" && len(rec.Features) > 0 {
		return
	}
	if !e.limiter.Allow() {
		slog.Debug("skipping enhancement, llm budget exhausted", "url", rec.URL)
		return
	}

	resp, err := e.client.Get(ctx, rec.URL, fetch.Options{
		UserAgent: fetch.RandomUserAgent(),
		MaxBytes:  e.excerptBytes,
	})
	if err != nil || resp.StatusCode >= 400 {
		return
	}

	excerpt := e.builder.Excerpt(string(resp.Body), rec.URL, e.excerptBytes)
	if strings.TrimSpace(excerpt) == "" {
		return
	}

	raw, err := e.complete(ctx, enhanceSystemPrompt, excerpt)
	if err != nil {
		slog.Debug("enhancement call failed", "url", rec.URL, "error", err)
		return
	}

	var extra struct {
		Brand       *string  `json:"brand"`
		Description *string  `json:"description"`
		Category    *string  `json:"category"`
		Features    []string `json:"features"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &extra); err != nil {
		slog.Debug("enhancement response not valid json", "url", rec.URL, "error", err)
		return
	}
	if rec.Brand == "" && extra.Brand != nil {
		rec.Brand = strings.TrimSpace(*extra.Brand)
	}
	if rec.Description == "" && extra.Description != nil {
		rec.Description = strings.TrimSpace(*extra.Description)
	}
	if rec.Category == "" && extra.Category != nil {
		rec.Category = strings.TrimSpace(*extra.Category)
	}
	if len(rec.Features) == 0 {
		rec.Features = extra.Features
	}
}

// complete runs the provider chain in preference order.
func (e *Extractor) complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for _, p := range e.providers {
		out, err := p.Complete(ctx, system, user)
		if err == nil {
			return out, nil
		}
		lastErr = err
		slog.Debug("provider failed, trying next", "provider", p.Name(), "error", err)
	}
	return "", lastErr
}

// flexNumber tolerates numbers the model quotes as strings and treats
// JSON null as absent.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*n = flexNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*n = flexNumber(num.String())
	}
	return nil
}

func (n flexNumber) Float64() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
}

func (n flexNumber) Int64() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
}

type llmRecord struct {
	Title         string            `json:"title"`
	Price         flexNumber        `json:"price"`
	OriginalPrice *flexNumber       `json:"originalPrice"`
	Currency      string            `json:"currency"`
	Rating        *flexNumber       `json:"rating"`
	ReviewCount   *flexNumber       `json:"reviewCount"`
	Availability  string            `json:"availability"`
	Brand         *string           `json:"brand"`
	Description   *string           `json:"description"`
	Category      *string           `json:"category"`
	Features      []string          `json:"features"`
	Images        []string          `json:"images"`
	Specs         map[string]string `json:"specifications"`
}

func decodeRecord(raw string) (*models.ProductRecord, error) {
	cleaned := stripFences(raw)

	var lr llmRecord
	if err := json.Unmarshal([]byte(cleaned), &lr); err != nil {
		return nil, models.NewExtractError(models.ErrCodeParse, "llm response is not valid json", err)
	}

	title := strings.TrimSpace(lr.Title)
	if title == "" || strings.EqualFold(title, "null") || len(title) <= 3 {
		return nil, models.NewExtractError(models.ErrCodeValidation, "llm returned no usable title", nil)
	}
	price, _ := lr.Price.Float64()
	if price <= 0 || price > fields.MaxPrice {
		return nil, models.NewExtractError(models.ErrCodeValidation, "llm returned no usable price", nil)
	}

	rec := &models.ProductRecord{
		Title:          title,
		Price:          price,
		Currency:       strings.ToUpper(strings.TrimSpace(lr.Currency)),
		Availability:   fields.ParseAvailability(lr.Availability),
		Features:       lr.Features,
		Images:         lr.Images,
		Specifications: lr.Specs,
	}
	if lr.OriginalPrice != nil {
		if v, err := lr.OriginalPrice.Float64(); err == nil && v > price {
			rec.OriginalPrice = &v
		}
	}
	if lr.Rating != nil {
		if v, err := lr.Rating.Float64(); err == nil {
			rec.Rating = &v
		}
	}
	if lr.ReviewCount != nil {
		if v, err := lr.ReviewCount.Int64(); err == nil && v >= 0 {
			n := int(v)
			rec.ReviewCount = &n
		}
	}
	if lr.Brand != nil {
		rec.Brand = strings.TrimSpace(*lr.Brand)
	}
	if lr.Description != nil {
		rec.Description = strings.TrimSpace(*lr.Description)
	}
	if lr.Category != nil {
		rec.Category = strings.TrimSpace(*lr.Category)
	}
	return rec, nil
}

// stripFences removes a surrounding ```json fence when the model wraps its
// answer in one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// metaImages recovers og/twitter image hints when the model returns none.
func metaImages(body []byte, rawURL string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var imgs []string
	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
				imgs = append(imgs, strings.TrimSpace(v))
			}
		})
	}
	return models.DedupeImages(imgs)
}
