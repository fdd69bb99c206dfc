package models

import "testing"

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://www.amazon.com/dp/B01", PlatformAmazon},
		{"https://www.amazon.in/dp/B01", PlatformAmazon},
		{"https://www.flipkart.com/p/x", PlatformFlipkart},
		{"https://www.myntra.com/shoes/1", PlatformMyntra},
		{"https://www.ebay.co.uk/itm/5", PlatformEbay},
		{"https://shop.example.com/product/1", PlatformGeneric},
		{"not a url", PlatformGeneric},
	}
	for _, tt := range tests {
		if got := DetectPlatform(tt.url); got != tt.want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestAcceptable(t *testing.T) {
	tests := []struct {
		name string
		rec  ProductRecord
		want bool
	}{
		{"valid", ProductRecord{Title: "Wireless Mouse", Price: 24.99}, true},
		{"short title", ProductRecord{Title: "TV", Price: 499}, false},
		{"whitespace padded short title", ProductRecord{Title: "  ab ", Price: 10}, false},
		{"zero price", ProductRecord{Title: "Wireless Mouse", Price: 0}, false},
		{"negative price", ProductRecord{Title: "Wireless Mouse", Price: -5}, false},
		{"empty", ProductRecord{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Acceptable(); got != tt.want {
				t.Errorf("Acceptable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	rating := 7.2
	count := -3
	rec := ProductRecord{
		Title:       "Thing",
		Price:       -10,
		Rating:      &rating,
		ReviewCount: &count,
		Images:      []string{"a.jpg", "a.jpg", "b.jpg", "", "c.jpg", "d.jpg", "e.jpg", "f.jpg"},
	}
	rec.Normalize()

	if rec.Price != 0 {
		t.Errorf("Price = %v, want 0", rec.Price)
	}
	if rec.Rating == nil || *rec.Rating != 5 {
		t.Errorf("Rating = %v, want clamped to 5", rec.Rating)
	}
	if rec.ReviewCount != nil {
		t.Errorf("ReviewCount = %v, want nil", rec.ReviewCount)
	}
	if len(rec.Images) != MaxImages {
		t.Errorf("Images length = %d, want %d", len(rec.Images), MaxImages)
	}
	if rec.Images[0] != "a.jpg" || rec.Images[1] != "b.jpg" {
		t.Errorf("Images not deduped in order: %v", rec.Images)
	}
	if rec.Availability != Unavailable {
		t.Errorf("Availability = %q, want %q", rec.Availability, Unavailable)
	}
}

func TestMergeMissing(t *testing.T) {
	price := 129.0
	rec := &ProductRecord{
		Title:    "Real Scraped Title",
		Price:    99.5,
		Currency: "USD",
	}
	other := &ProductRecord{
		Title:         "Synthesized Title",
		Price:         42,
		OriginalPrice: &price,
		Currency:      "INR",
		Brand:         "Acme",
		Description:   "filler",
		Availability:  InStock,
	}
	rec.MergeMissing(other)

	if rec.Title != "Real Scraped Title" {
		t.Errorf("Title overwritten: %q", rec.Title)
	}
	if rec.Price != 99.5 {
		t.Errorf("Price overwritten: %v", rec.Price)
	}
	if rec.Currency != "USD" {
		t.Errorf("Currency overwritten: %q", rec.Currency)
	}
	if rec.Brand != "Acme" || rec.Description != "filler" {
		t.Errorf("missing fields not filled: brand=%q desc=%q", rec.Brand, rec.Description)
	}
	if rec.OriginalPrice == nil || *rec.OriginalPrice != 129 {
		t.Errorf("OriginalPrice not filled: %v", rec.OriginalPrice)
	}
	if rec.Availability != InStock {
		t.Errorf("Availability not filled: %q", rec.Availability)
	}
}

func TestMergeMissingFillsBadTitleAndPrice(t *testing.T) {
	rec := &ProductRecord{Title: "ab", Price: 0}
	other := &ProductRecord{Title: "Fallback Product", Price: 19.99}
	rec.MergeMissing(other)

	if rec.Title != "Fallback Product" {
		t.Errorf("short title not replaced: %q", rec.Title)
	}
	if rec.Price != 19.99 {
		t.Errorf("zero price not replaced: %v", rec.Price)
	}
}
