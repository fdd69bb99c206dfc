package fields

import (
	"testing"

	"github.com/dealscout/dealscout/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
		ok   bool
	}{
		{"plain integer", "999", 999, true},
		{"currency symbol", "$49.99", 49.99, true},
		{"rupee with separators", "₹1,234.56", 1234.56, true},
		{"rs prefix", "Rs. 999", 999, true},
		{"indian grouping", "₹1,39,900", 139900, true},
		{"decimal comma", "49,99", 49.99, true},
		{"embedded text", "Deal price: $24.50 only", 24.5, true},
		{"no digits", "price unavailable", 0, false},
		{"zero", "0.00", 0, false},
		{"over cap", "99999999", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ParsePrice(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"4.5 out of 5 stars", 4.5, true},
		{"4.2", 4.2, true},
		{"90%", 4.5, true},
		{"no rating", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRating(tt.raw)
		if ok != tt.ok {
			t.Errorf("ParseRating(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseRating(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseReviewCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"1,234 ratings", 1234, true},
		{"12 reviews", 12, true},
		{"no reviews yet", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseReviewCount(tt.raw)
		if ok != tt.ok {
			t.Errorf("ParseReviewCount(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseReviewCount(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseAvailability(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Availability
	}{
		{"In Stock", models.InStock},
		{"Currently unavailable", models.OutOfStock},
		{"Out of stock", models.OutOfStock},
		{"Sold Out", models.OutOfStock},
		{"Add to cart", models.InStock},
		{"", models.Unavailable},
		{"garbage text", models.Unavailable},
	}
	for _, tt := range tests {
		if got := ParseAvailability(tt.raw); got != tt.want {
			t.Errorf("ParseAvailability(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestInferCurrency(t *testing.T) {
	tests := []struct {
		name string
		text string
		url  string
		want string
	}{
		{"rupee symbol wins", "Price: ₹999", "https://example.com/p/1", "INR"},
		{"rs prefix", "Rs. 1,299 only", "https://example.com/p/1", "INR"},
		{"pound symbol", "£24.99", "https://example.com/p/1", "GBP"},
		{"euro symbol", "nur €19", "https://example.com/p/1", "EUR"},
		{"symbol beats tld", "buy for $10", "https://amazon.in/dp/X1", "USD"},
		{"tld fallback in", "", "https://www.flipkart.in/p/abc123", "INR"},
		{"tld fallback uk", "", "https://shop.example.co.uk/item/5", "GBP"},
		{"default usd", "", "https://example.com/p/1", "USD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferCurrency(tt.text, tt.url); got != tt.want {
				t.Errorf("InferCurrency = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProductIDFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"amazon dp", "https://www.amazon.com/dp/B0ABC12345", "B0ABC12345"},
		{"amazon gp product", "https://www.amazon.com/gp/product/B0XYZ99999?th=1", "B0XYZ99999"},
		{"ebay itm", "https://www.ebay.com/itm/374829102", "374829102"},
		{"flipkart trailing id", "https://www.flipkart.com/phone/p/itm9f3a2b", "itm9f3a2b"},
		{"pid param", "https://www.flipkart.com/phone?pid=MOBG6VF5Q09W", "MOBG6VF5Q09W"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProductIDFromURL(tt.url); got != tt.want {
				t.Errorf("ProductIDFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestProductIDDeterministic(t *testing.T) {
	url := "https://shop.example.com/products/some-nice-thing"
	first := ProductIDFromURL(url)
	if first == "" {
		t.Fatal("expected a non-empty id")
	}
	for i := 0; i < 5; i++ {
		if got := ProductIDFromURL(url); got != first {
			t.Fatalf("id changed between calls: %q vs %q", first, got)
		}
	}
	// Trailing slash normalizes to the same id.
	if got := ProductIDFromURL(url + "/"); got != first {
		t.Errorf("trailing slash changed id: %q vs %q", first, got)
	}
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/apple-iphone-15-pro-max/p/x1", "Apple Iphone 15 Pro Max"},
		{"https://example.com/", ""},
	}
	for _, tt := range tests {
		if got := TitleFromURL(tt.url); got != tt.want {
			t.Errorf("TitleFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
