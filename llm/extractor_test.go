package llm

import (
	"errors"
	"testing"

	"github.com/dealscout/dealscout/models"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"title":"x"}`, `{"title":"x"}`},
		{"json fence", "```json\n{\"title\":\"x\"}\n```", `{"title":"x"}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading whitespace", "  \n```json\n{}\n```  ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeRecordValid(t *testing.T) {
	raw := `{
		"title": "Bamboo Cutting Board",
		"price": "24.99",
		"originalPrice": 34.99,
		"currency": "usd",
		"rating": 4.4,
		"reviewCount": 812,
		"availability": "in_stock",
		"brand": "KitchenPro",
		"features": ["Reversible", "Juice groove"]
	}`
	rec, err := decodeRecord(raw)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if rec.Title != "Bamboo Cutting Board" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Price != 24.99 {
		t.Errorf("Price = %v", rec.Price)
	}
	if rec.Currency != "USD" {
		t.Errorf("Currency = %q, want upper-cased", rec.Currency)
	}
	if rec.OriginalPrice == nil || *rec.OriginalPrice != 34.99 {
		t.Errorf("OriginalPrice = %v", rec.OriginalPrice)
	}
	if rec.Availability != models.InStock {
		t.Errorf("Availability = %q", rec.Availability)
	}
	if rec.Brand != "KitchenPro" || len(rec.Features) != 2 {
		t.Errorf("descriptive fields wrong: brand=%q features=%v", rec.Brand, rec.Features)
	}
}

func TestDecodeRecordRejectsBadOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code string
	}{
		{"not json", "I could not find a product on this page.", models.ErrCodeParse},
		{"null title", `{"title": "null", "price": 10}`, models.ErrCodeValidation},
		{"short title", `{"title": "ab", "price": 10}`, models.ErrCodeValidation},
		{"missing title", `{"price": 10}`, models.ErrCodeValidation},
		{"zero price", `{"title": "Good Product", "price": 0}`, models.ErrCodeValidation},
		{"absurd price", `{"title": "Good Product", "price": 99999999}`, models.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRecord(tt.raw)
			if err == nil {
				t.Fatal("expected an error")
			}
			var ee *models.ExtractError
			if !errors.As(err, &ee) {
				t.Fatalf("error is not an ExtractError: %v", err)
			}
			if ee.Code != tt.code {
				t.Errorf("Code = %q, want %q", ee.Code, tt.code)
			}
		})
	}
}

func TestDecodeRecordDropsLowerOriginalPrice(t *testing.T) {
	raw := `{"title": "Discounted Gadget", "price": 50, "originalPrice": 40}`
	rec, err := decodeRecord(raw)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if rec.OriginalPrice != nil {
		t.Errorf("OriginalPrice = %v, want nil when below price", *rec.OriginalPrice)
	}
}
