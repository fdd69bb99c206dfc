package markup

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dealscout/dealscout/models"
)

const jsonLDPage = `<!DOCTYPE html>
<html><head>
<title>Sony WH-1000XM5 | MegaShop</title>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Product",
  "name": "Sony WH-1000XM5 Wireless Headphones",
  "image": ["https://cdn.example.com/xm5-front.jpg", "https://cdn.example.com/xm5-side.jpg"],
  "brand": {"@type": "Brand", "name": "Sony"},
  "description": "Industry-leading noise cancellation.",
  "offers": {
    "@type": "Offer",
    "price": "348.00",
    "priceCurrency": "USD",
    "availability": "https://schema.org/InStock"
  },
  "aggregateRating": {"@type": "AggregateRating", "ratingValue": "4.7", "reviewCount": "2841"}
}
</script>
</head><body><h1>Sony WH-1000XM5 Wireless Headphones</h1></body></html>`

func TestParseJSONLD(t *testing.T) {
	rec, err := Parse("https://megashop.example.com/p/xm5headph", []byte(jsonLDPage))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Title != "Sony WH-1000XM5 Wireless Headphones" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Price != 348 {
		t.Errorf("Price = %v, want 348", rec.Price)
	}
	if rec.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", rec.Currency)
	}
	if rec.Brand != "Sony" {
		t.Errorf("Brand = %q, want Sony", rec.Brand)
	}
	if rec.Availability != models.InStock {
		t.Errorf("Availability = %q, want in_stock", rec.Availability)
	}
	if rec.Rating == nil || *rec.Rating != 4.7 {
		t.Errorf("Rating = %v, want 4.7", rec.Rating)
	}
	if rec.ReviewCount == nil || *rec.ReviewCount != 2841 {
		t.Errorf("ReviewCount = %v, want 2841", rec.ReviewCount)
	}
	if len(rec.Images) != 2 {
		t.Errorf("Images = %v, want 2 entries", rec.Images)
	}
	if rec.Source != "markup" {
		t.Errorf("Source = %q, want markup", rec.Source)
	}
	if !rec.Acceptable() {
		t.Error("expected record to pass the acceptance gate")
	}
}

const ogPage = `<!DOCTYPE html>
<html><head>
<title>Ergo Chair | FurniCo Online Store</title>
<meta property="og:title" content="Ergo Chair Pro">
<meta property="og:description" content="Adjustable lumbar support.">
<meta property="og:image" content="/images/chair.jpg">
<meta property="product:price:amount" content="289.99">
</head><body>
<h1>Ergo Chair Pro</h1>
<span class="price">$289.99</span>
</body></html>`

func TestParseOpenGraph(t *testing.T) {
	rec, err := Parse("https://furnico.example.com/product/ergochair", []byte(ogPage))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Title != "Ergo Chair Pro" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Price != 289.99 {
		t.Errorf("Price = %v, want 289.99", rec.Price)
	}
	if rec.Description != "Adjustable lumbar support." {
		t.Errorf("Description = %q", rec.Description)
	}
	if len(rec.Images) == 0 || rec.Images[0] != "https://furnico.example.com/images/chair.jpg" {
		t.Errorf("Images = %v, want resolved absolute URL", rec.Images)
	}
	if rec.ProductID != "ergochair" {
		t.Errorf("ProductID = %q, want ergochair", rec.ProductID)
	}
}

const amazonPage = `<!DOCTYPE html>
<html><head><title>Amazon.com: Anker USB C Charger</title></head><body>
<span id="productTitle"> Anker USB C Charger 65W </span>
<span class="a-price"><span class="a-offscreen">$39.99</span></span>
<span id="acrPopover" title="4.6 out of 5 stars"></span>
<span id="acrCustomerReviewText">12,043 ratings</span>
<div id="availability"><span> In Stock </span></div>
</body></html>`

func TestParseSelectorCascade(t *testing.T) {
	rec, err := Parse("https://www.amazon.com/dp/B0CHARGER1", []byte(amazonPage))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Title != "Anker USB C Charger 65W" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Price != 39.99 {
		t.Errorf("Price = %v, want 39.99", rec.Price)
	}
	if rec.Availability != models.InStock {
		t.Errorf("Availability = %q, want in_stock", rec.Availability)
	}
	if rec.ProductID != "B0CHARGER1" {
		t.Errorf("ProductID = %q, want B0CHARGER1", rec.ProductID)
	}
}

func TestParseSparsePageFallsBackToSlug(t *testing.T) {
	body := `<html><head></head><body><p>nothing useful here</p></body></html>`
	rec, err := Parse("https://shop.example.com/apple-iphone-15-pro/p/zzz999", []byte(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Title != "Apple Iphone 15 Pro" {
		t.Errorf("Title = %q, want slug-derived title", rec.Title)
	}
	if rec.Price != 0 {
		t.Errorf("Price = %v, want 0", rec.Price)
	}
	if rec.Acceptable() {
		t.Error("sparse record must not pass the acceptance gate")
	}
}

func TestParseFullTextPriceFallback(t *testing.T) {
	body := `<html><body><h1>Cotton Kurta Set for Women</h1>
<p>Limited offer: ₹1,299 with free delivery.</p></body></html>`
	rec, err := Parse("https://www.myntra.com/kurta-sets/p/ku12345678", []byte(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Price != 1299 {
		t.Errorf("Price = %v, want 1299 from text scan", rec.Price)
	}
	if rec.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", rec.Currency)
	}
}

func TestTrimTitleStripsSiteSuffix(t *testing.T) {
	body := `<html><head><title>Trail Running Shoes | SportMart</title></head><body></body></html>`
	rec, err := Parse("https://sportmart.example.com/item/trailsh01", []byte(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Title != "Trail Running Shoes" {
		t.Errorf("Title = %q, want suffix stripped", rec.Title)
	}
}

func TestTrimTitleKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("รองเท้าวิ่ง ", 60)
	got := trimTitle(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n > 300 {
		t.Errorf("title length = %d runes, want <= 300", n)
	}
}
