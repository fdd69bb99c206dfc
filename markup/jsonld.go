package markup

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscout/dealscout/fields"
	"github.com/dealscout/dealscout/models"
)

// ldProduct mirrors the subset of a schema.org Product block we consume.
// Sites emit prices and counts as strings or numbers interchangeably, so
// every numeric field goes through the tolerant ldValue type.
type ldProduct struct {
	Type        jsonLDType `json:"@type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Image       ldImages   `json:"image"`
	Brand       ldBrand    `json:"brand"`
	Offers      ldOffers   `json:"offers"`
	Aggregate   *ldRating  `json:"aggregateRating"`
}

type jsonLDType string

func (t *jsonLDType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = jsonLDType(s)
		return nil
	}
	var ss []string
	if err := json.Unmarshal(b, &ss); err == nil && len(ss) > 0 {
		*t = jsonLDType(ss[0])
	}
	return nil
}

type ldImages []string

func (i *ldImages) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*i = ldImages{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(b, &ss); err == nil {
		*i = ldImages(ss)
	}
	return nil
}

type ldBrand struct {
	Name string `json:"name"`
}

func (br *ldBrand) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		br.Name = s
		return nil
	}
	type alias ldBrand
	var a alias
	if err := json.Unmarshal(b, &a); err == nil {
		br.Name = a.Name
	}
	return nil
}

type ldOffers struct {
	Price         ldValue `json:"price"`
	LowPrice      ldValue `json:"lowPrice"`
	PriceCurrency string  `json:"priceCurrency"`
	Availability  string  `json:"availability"`
}

func (o *ldOffers) UnmarshalJSON(b []byte) error {
	type alias ldOffers
	var a alias
	if err := json.Unmarshal(b, &a); err == nil {
		*o = ldOffers(a)
		return nil
	}
	var list []alias
	if err := json.Unmarshal(b, &list); err == nil && len(list) > 0 {
		*o = ldOffers(list[0])
	}
	return nil
}

type ldRating struct {
	RatingValue ldValue `json:"ratingValue"`
	ReviewCount ldValue `json:"reviewCount"`
	RatingCount ldValue `json:"ratingCount"`
}

// ldValue tolerates `"4.3"`, `4.3`, and `1234` alike.
type ldValue string

func (v *ldValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = ldValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*v = ldValue(n.String())
	}
	return nil
}

// parseJSONLD scans every application/ld+json script for a Product block
// and folds it into rec. Structured data is the most trustworthy markup
// source, so it runs before the selector cascade.
func parseJSONLD(doc *goquery.Document, rec *models.ProductRecord) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		for _, p := range decodeProducts(raw) {
			if applyProduct(p, rec) {
				return false
			}
		}
		return true
	})
}

// decodeProducts handles a bare Product object, an array of blocks, and
// the @graph wrapper.
func decodeProducts(raw string) []ldProduct {
	var single ldProduct
	if err := json.Unmarshal([]byte(raw), &single); err == nil && isProduct(single) {
		return []ldProduct{single}
	}

	var list []ldProduct
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		var out []ldProduct
		for _, p := range list {
			if isProduct(p) {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	var graph struct {
		Graph []ldProduct `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(raw), &graph); err == nil {
		var out []ldProduct
		for _, p := range graph.Graph {
			if isProduct(p) {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

func isProduct(p ldProduct) bool {
	return strings.EqualFold(string(p.Type), "Product")
}

// applyProduct copies non-empty fields of p into rec and reports whether
// the block carried a usable title.
func applyProduct(p ldProduct, rec *models.ProductRecord) bool {
	if p.Name != "" && rec.Title == "" {
		rec.Title = fields.CleanText(p.Name)
	}
	if rec.Price == 0 {
		raw := string(p.Offers.Price)
		if raw == "" {
			raw = string(p.Offers.LowPrice)
		}
		if v, ok := fields.ParsePrice(raw); ok {
			rec.Price = v
		}
	}
	if rec.Currency == "" && p.Offers.PriceCurrency != "" {
		rec.Currency = strings.ToUpper(p.Offers.PriceCurrency)
	}
	if rec.Availability == "" || rec.Availability == models.Unavailable {
		if p.Offers.Availability != "" {
			rec.Availability = fields.ParseAvailability(p.Offers.Availability)
		}
	}
	if p.Aggregate != nil {
		if rec.Rating == nil {
			if v, ok := fields.ParseRating(string(p.Aggregate.RatingValue)); ok {
				rec.Rating = &v
			}
		}
		if rec.ReviewCount == nil {
			raw := string(p.Aggregate.ReviewCount)
			if raw == "" {
				raw = string(p.Aggregate.RatingCount)
			}
			if n, ok := fields.ParseReviewCount(raw); ok {
				rec.ReviewCount = &n
			}
		}
	}
	if rec.Brand == "" && p.Brand.Name != "" {
		rec.Brand = fields.CleanText(p.Brand.Name)
	}
	if rec.Description == "" && p.Description != "" {
		rec.Description = fields.CleanText(p.Description)
	}
	if len(rec.Images) == 0 && len(p.Image) > 0 {
		rec.Images = models.DedupeImages([]string(p.Image))
	}
	return p.Name != ""
}
