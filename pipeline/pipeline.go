// Package pipeline chains extraction strategies from cheapest to most
// expensive and guarantees a record for every URL.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/dealscout/dealscout/cache"
	"github.com/dealscout/dealscout/fields"
	"github.com/dealscout/dealscout/models"
	"github.com/dealscout/dealscout/synth"
)

// Strategy is one extraction stage. Attempt may return a partial record
// alongside an error; the orchestrator keeps the partial for merging.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, url string) (*models.ProductRecord, error)
}

// Enhancer optionally enriches an accepted record in place.
type Enhancer interface {
	Enhance(ctx context.Context, rec *models.ProductRecord)
}

// maxAttemptedURLs bounds the one-shot LLM tracking map.
const maxAttemptedURLs = 10000

// Orchestrator runs the strategy chain. Extract never panics and never
// returns nil.
type Orchestrator struct {
	strategies []Strategy
	generator  *synth.Generator
	enhancer   Enhancer
	store      *cache.Cache

	mu           sync.Mutex
	llmAttempted map[string]struct{}
}

// New builds an orchestrator. enhancer and store may be nil.
func New(strategies []Strategy, generator *synth.Generator, enhancer Enhancer, store *cache.Cache) *Orchestrator {
	return &Orchestrator{
		strategies:   strategies,
		generator:    generator,
		enhancer:     enhancer,
		store:        store,
		llmAttempted: make(map[string]struct{}),
	}
}

// Extract resolves a URL to a record. The first strategy whose output
// passes the acceptance gate wins; partial outputs from later failures
// are merged over the synthesized fallback. A cached record is returned
// as-is when fresh.
func (o *Orchestrator) Extract(ctx context.Context, rawURL string) (*models.ProductRecord, bool) {
	return o.extract(ctx, rawURL, false)
}

// ExtractFresh bypasses the cache lookup but still stores the result.
func (o *Orchestrator) ExtractFresh(ctx context.Context, rawURL string) *models.ProductRecord {
	rec, _ := o.extract(ctx, rawURL, true)
	return rec
}

func (o *Orchestrator) extract(ctx context.Context, rawURL string, skipCache bool) (rec *models.ProductRecord, cached bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("extraction panicked", "url", rawURL, "panic", r)
			rec = o.stub(rawURL)
			cached = false
		}
	}()

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || (!strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://")) {
		return o.stub(rawURL), false
	}

	key := cache.Key(rawURL)
	if o.store != nil && !skipCache {
		if hit, ok := o.store.Get(key); ok {
			slog.Debug("cache hit", "url", rawURL)
			return hit, true
		}
	}

	rec = o.runChain(ctx, rawURL)

	if rec.Category == "" {
		rec.Category = inferCategory(rec)
	}
	if o.enhancer != nil && rec.Acceptable() && rec.Source != "fallback" {
		o.enhancer.Enhance(ctx, rec)
	}
	rec.Normalize()

	if o.store != nil {
		o.store.Set(key, rec)
	}
	return rec, false
}

func (o *Orchestrator) runChain(ctx context.Context, rawURL string) *models.ProductRecord {
	var partial *models.ProductRecord

	for _, s := range o.strategies {
		if s.Name() == "llm" && !o.markLLMAttempt(rawURL) {
			slog.Debug("skipping llm, url already attempted", "url", rawURL)
			continue
		}

		got, err := o.attempt(ctx, s, rawURL)
		if err == nil && got != nil && got.Acceptable() {
			slog.Info("strategy succeeded", "url", rawURL, "strategy", s.Name())
			return got
		}
		if got != nil {
			if partial == nil {
				partial = got
			} else {
				// Later stages only fill fields earlier stages missed.
				partial.MergeMissing(got)
			}
		}
		if err != nil {
			slog.Debug("strategy failed", "url", rawURL, "strategy", s.Name(), "error", err)
		}
	}

	rec := o.generator.Synthesize(rawURL, models.DetectPlatform(rawURL))
	if partial != nil {
		// Keep whatever real data a stage managed to scrape.
		partial.MergeMissing(rec)
		partial.Source = "fallback"
		return partial
	}
	slog.Info("all strategies failed, synthesized fallback", "url", rawURL)
	return rec
}

// attempt isolates a single strategy so one panicking stage cannot take
// down the chain.
func (o *Orchestrator) attempt(ctx context.Context, s Strategy, rawURL string) (rec *models.ProductRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("strategy panicked", "strategy", s.Name(), "url", rawURL, "panic", r)
			rec = nil
			err = models.NewExtractError(models.ErrCodeInternal, "strategy panicked", nil)
		}
	}()
	return s.Attempt(ctx, rawURL)
}

// markLLMAttempt records that the URL has had its one model call.
// Returns false when the URL was already attempted.
func (o *Orchestrator) markLLMAttempt(rawURL string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.llmAttempted[rawURL]; ok {
		return false
	}
	if len(o.llmAttempted) >= maxAttemptedURLs {
		o.llmAttempted = make(map[string]struct{})
	}
	o.llmAttempted[rawURL] = struct{}{}
	return true
}

// stub is the record of last resort for unusable input or a panic.
func (o *Orchestrator) stub(rawURL string) *models.ProductRecord {
	rec := &models.ProductRecord{
		Title:        "Product Analysis Failed",
		Availability: models.Unavailable,
		Currency:     "USD",
		URL:          rawURL,
		Source:       "fallback",
	}
	if rawURL != "" {
		rec.ProductID = fields.ProductIDFromURL(rawURL)
		rec.Currency = fields.InferCurrency("", rawURL)
	}
	return rec
}

// categoryKeywords maps title and feature words to a coarse category.
// First match in order wins so inference stays deterministic.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"Computers", []string{"laptop", "notebook", "desktop", "keyboard", "mouse", "ssd", "processor", "graphics card"}},
	{"Electronics", []string{"phone", "smartphone", "earbuds", "headphone", "speaker", "camera", "tablet", "tv", "monitor", "smartwatch", "charger"}},
	{"Home Appliances", []string{"refrigerator", "washing machine", "microwave", "air conditioner", "vacuum"}},
	{"Fashion", []string{"shirt", "t-shirt", "jeans", "shoes", "sneaker", "dress", "jacket", "kurta", "saree", "watch"}},
	{"Home & Kitchen", []string{"cookware", "mixer", "blender", "sofa", "mattress", "curtain", "lamp", "cushion"}},
	{"Books", []string{"paperback", "hardcover", "novel", "edition"}},
	{"Beauty", []string{"lipstick", "serum", "shampoo", "moisturizer", "perfume"}},
	{"Sports", []string{"dumbbell", "yoga", "cricket", "football", "cycling", "fitness"}},
}

func inferCategory(rec *models.ProductRecord) string {
	haystack := strings.ToLower(rec.Title + " " + strings.Join(rec.Features, " "))
	for _, group := range categoryKeywords {
		for _, w := range group.words {
			if strings.Contains(haystack, w) {
				return group.category
			}
		}
	}
	return ""
}
