package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dealscout/dealscout/cache"
	"github.com/dealscout/dealscout/models"
	"github.com/dealscout/dealscout/synth"
)

// fakeStrategy counts calls and returns canned results.
type fakeStrategy struct {
	name  string
	rec   *models.ProductRecord
	err   error
	calls int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Attempt(ctx context.Context, url string) (*models.ProductRecord, error) {
	f.calls++
	return f.rec, f.err
}

type panicStrategy struct{ name string }

func (p *panicStrategy) Name() string { return p.name }

func (p *panicStrategy) Attempt(ctx context.Context, url string) (*models.ProductRecord, error) {
	panic("boom")
}

func goodRecord(url string) *models.ProductRecord {
	return &models.ProductRecord{Title: "Mechanical Keyboard", Price: 89.99, URL: url, Source: "markup"}
}

func TestFirstAcceptableShortCircuits(t *testing.T) {
	first := &fakeStrategy{name: "markup", rec: goodRecord("u")}
	second := &fakeStrategy{name: "legacy"}
	o := New([]Strategy{first, second}, synth.New(), nil, nil)

	rec, cached := o.Extract(context.Background(), "https://example.com/p/kbmodel1")
	if cached {
		t.Error("unexpected cache hit")
	}
	if rec.Title != "Mechanical Keyboard" {
		t.Errorf("Title = %q", rec.Title)
	}
	if first.calls != 1 {
		t.Errorf("first strategy calls = %d, want 1", first.calls)
	}
	if second.calls != 0 {
		t.Errorf("second strategy called despite earlier success")
	}
}

func TestAllFailuresYieldFallback(t *testing.T) {
	failing := &fakeStrategy{name: "markup", err: errors.New("nope")}
	o := New([]Strategy{failing}, synth.New(), nil, nil)

	rec, _ := o.Extract(context.Background(), "https://example.com/logitech-mouse/p/mouse123")
	if rec == nil {
		t.Fatal("Extract returned nil")
	}
	if rec.Source != "fallback" {
		t.Errorf("Source = %q, want fallback", rec.Source)
	}
	if !rec.Acceptable() {
		t.Errorf("fallback record failed acceptance gate: %+v", rec)
	}
}

func TestPartialMergedOverFallback(t *testing.T) {
	partial := &models.ProductRecord{Title: "Scraped Name Survives", URL: "u", Source: "legacy"}
	s := &fakeStrategy{name: "legacy", rec: partial, err: errors.New("low confidence")}
	o := New([]Strategy{s}, synth.New(), nil, nil)

	rec, _ := o.Extract(context.Background(), "https://example.com/thing/p/thing001")
	if rec.Title != "Scraped Name Survives" {
		t.Errorf("scraped title lost: %q", rec.Title)
	}
	if rec.Price <= 0 {
		t.Error("price not filled from fallback")
	}
	if rec.Source != "fallback" {
		t.Errorf("Source = %q, want fallback", rec.Source)
	}
}

func TestLaterStagePartialFieldsSurvive(t *testing.T) {
	// Markup finds only a slug title; legacy finds a real price but a
	// boilerplate title. Both must end up in the final record instead of
	// synthesized values.
	slugOnly := &fakeStrategy{
		name: "markup",
		rec:  &models.ProductRecord{Title: "Widget Pro Max 14", Source: "markup"},
		err:  errors.New("no price located"),
	}
	scraped := &fakeStrategy{
		name: "legacy",
		rec:  &models.ProductRecord{Title: "Product", Price: 999, Currency: "USD", Source: "legacy"},
		err:  errors.New("low confidence"),
	}
	o := New([]Strategy{slugOnly, scraped}, synth.New(), nil, nil)

	rec, _ := o.Extract(context.Background(), "https://example.com/widget-pro-max-14/p/widget14")
	if rec.Price != 999 {
		t.Errorf("scraped price lost: got %v, want 999", rec.Price)
	}
	if rec.Title != "Widget Pro Max 14" {
		t.Errorf("earlier stage title lost: %q", rec.Title)
	}
	if rec.Currency != "USD" {
		t.Errorf("Currency = %q, want USD from the scraping stage", rec.Currency)
	}
	if rec.Source != "fallback" {
		t.Errorf("Source = %q, want fallback", rec.Source)
	}
}

func TestPanickingStrategyIsContained(t *testing.T) {
	after := &fakeStrategy{name: "legacy", rec: goodRecord("u")}
	o := New([]Strategy{&panicStrategy{name: "markup"}, after}, synth.New(), nil, nil)

	rec, _ := o.Extract(context.Background(), "https://example.com/p/safety01")
	if rec == nil {
		t.Fatal("Extract returned nil after strategy panic")
	}
	if rec.Title != "Mechanical Keyboard" {
		t.Errorf("later strategy not reached after panic: %q", rec.Title)
	}
}

func TestInvalidInputYieldsStub(t *testing.T) {
	o := New(nil, synth.New(), nil, nil)

	for _, bad := range []string{"", "notaurl", "ftp://example.com/x"} {
		rec, _ := o.Extract(context.Background(), bad)
		if rec == nil {
			t.Fatalf("Extract(%q) returned nil", bad)
		}
		if rec.Title != "Product Analysis Failed" {
			t.Errorf("Extract(%q) Title = %q", bad, rec.Title)
		}
		if rec.Price != 0 {
			t.Errorf("Extract(%q) Price = %v, want 0", bad, rec.Price)
		}
	}
}

func TestLLMStrategyRunsOncePerURL(t *testing.T) {
	llmStage := &fakeStrategy{name: "llm", err: errors.New("model failed")}
	o := New([]Strategy{llmStage}, synth.New(), nil, nil)

	url := "https://example.com/p/oneshot1"
	o.Extract(context.Background(), url)
	o.Extract(context.Background(), url)
	o.Extract(context.Background(), url)

	if llmStage.calls != 1 {
		t.Errorf("llm stage calls = %d, want 1", llmStage.calls)
	}

	// A different URL gets its own attempt.
	o.Extract(context.Background(), "https://example.com/p/oneshot2")
	if llmStage.calls != 2 {
		t.Errorf("llm stage calls = %d, want 2 after second URL", llmStage.calls)
	}
}

func TestCacheHitSkipsStrategies(t *testing.T) {
	s := &fakeStrategy{name: "markup", rec: goodRecord("u")}
	store := cache.New(time.Minute, 10)
	o := New([]Strategy{s}, synth.New(), nil, store)

	url := "https://example.com/p/cached01"
	if _, cached := o.Extract(context.Background(), url); cached {
		t.Error("first extraction reported a cache hit")
	}
	if _, cached := o.Extract(context.Background(), url); !cached {
		t.Error("second extraction missed the cache")
	}
	if s.calls != 1 {
		t.Errorf("strategy calls = %d, want 1", s.calls)
	}
}

func TestExtractFreshBypassesCache(t *testing.T) {
	s := &fakeStrategy{name: "markup", rec: goodRecord("u")}
	store := cache.New(time.Minute, 10)
	o := New([]Strategy{s}, synth.New(), nil, store)

	url := "https://example.com/p/fresh001"
	o.Extract(context.Background(), url)
	o.ExtractFresh(context.Background(), url)

	if s.calls != 2 {
		t.Errorf("strategy calls = %d, want 2", s.calls)
	}
}

func TestCategoryInference(t *testing.T) {
	s := &fakeStrategy{name: "markup", rec: &models.ProductRecord{
		Title: "Ultra Slim Laptop 14 inch", Price: 999, Source: "markup",
	}}
	o := New([]Strategy{s}, synth.New(), nil, nil)

	rec, _ := o.Extract(context.Background(), "https://example.com/p/laptop01")
	if rec.Category != "Computers" {
		t.Errorf("Category = %q, want Computers", rec.Category)
	}
}
