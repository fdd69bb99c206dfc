package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscout/dealscout/fetch"
	"github.com/dealscout/dealscout/fields"
	"github.com/dealscout/dealscout/models"
)

// Extractor drives platform selector cascades behind an anti-blocking
// fetch loop: rotated user agents, per-domain session cookies, request
// pacing, and exponential backoff when a block page is detected.
type Extractor struct {
	client      *fetch.Client
	sessions    *fetch.SessionStore
	baseDelay   time.Duration
	maxAttempts int
	sleep       func(context.Context, time.Duration) error
}

// NewExtractor builds an extractor sharing the given session store.
func NewExtractor(client *fetch.Client, sessions *fetch.SessionStore, baseDelay time.Duration, maxAttempts int) *Extractor {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if maxAttempts <= 0 || maxAttempts > 3 {
		maxAttempts = 3
	}
	return &Extractor{
		client:      client,
		sessions:    sessions,
		baseDelay:   baseDelay,
		maxAttempts: maxAttempts,
		sleep:       sleepCtx,
	}
}

func (e *Extractor) Name() string { return "legacy" }

// Attempt fetches the page with anti-blocking measures and runs the
// platform cascade over it. Block pages trigger up to maxAttempts
// retries with exponential backoff before giving up.
func (e *Extractor) Attempt(ctx context.Context, rawURL string) (*models.ProductRecord, error) {
	platform := models.DetectPlatform(rawURL)

	body, err := e.fetchUnblocked(ctx, rawURL, platform)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeParse, "document parse failed", err)
	}

	rec := Lookup(platform).Extract(rawURL, doc)
	rec.Source = "legacy"
	if rec.ProductID == "" {
		rec.ProductID = fields.ProductIDFromURL(rawURL)
	}
	if rec.Currency == "" {
		rec.Currency = fields.InferCurrency(doc.Text(), rawURL)
	}
	rec.Normalize()

	if lowConfidence(rec) {
		return rec, models.NewExtractError(models.ErrCodeValidation, "cascade produced a low-confidence record", nil)
	}
	return rec, nil
}

// fetchUnblocked retries the fetch until the response no longer looks
// like a block page or the attempt budget is spent.
func (e *Extractor) fetchUnblocked(ctx context.Context, rawURL string, platform models.Platform) (string, error) {
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		// Human pacing precedes every request; retries add exponential
		// backoff with up to a second of jitter on top.
		delay := time.Duration(500+rand.Intn(1000)) * time.Millisecond
		if attempt > 0 {
			delay += e.baseDelay*time.Duration(1<<(attempt-1)) + time.Duration(rand.Int63n(int64(time.Second)))
		}
		if err := e.sleep(ctx, delay); err != nil {
			return "", models.NewExtractError(models.ErrCodeTimeout, "cancelled while pacing", err)
		}

		opts := fetch.Options{
			UserAgent: fetch.RandomUserAgent(),
			Headers:   fetch.PlatformHeaders(platform),
			Cookie:    e.sessions.Cookie(rawURL),
		}
		resp, err := e.client.Get(ctx, rawURL, opts)
		if err != nil {
			return "", err
		}
		e.sessions.Update(rawURL, resp.SetCookies)

		if resp.StatusCode == 403 || resp.StatusCode == 429 || resp.StatusCode == 503 {
			slog.Debug("block status, backing off", "url", rawURL, "status", resp.StatusCode, "attempt", attempt+1)
			continue
		}
		if resp.StatusCode >= 400 {
			return "", models.NewExtractError(models.ErrCodeFetch, fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
		}
		if fetch.IsBlocked(resp.Body) {
			slog.Debug("block page detected, backing off", "url", rawURL, "attempt", attempt+1)
			continue
		}
		return string(resp.Body), nil
	}
	return "", models.NewExtractError(models.ErrCodeBlocked, "still blocked after retries", nil)
}

// lowConfidence flags cascade output that only found boilerplate.
func lowConfidence(rec *models.ProductRecord) bool {
	title := strings.TrimSpace(rec.Title)
	if title == "" || strings.EqualFold(title, "product") {
		return true
	}
	return rec.Price <= 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
