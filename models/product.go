package models

import (
	"net/url"
	"strings"
)

// Availability describes whether a product can currently be purchased.
type Availability string

const (
	InStock     Availability = "in_stock"
	OutOfStock  Availability = "out_of_stock"
	Unavailable Availability = "unknown"
)

// Platform identifies the e-commerce site family a URL belongs to.
// It selects the legacy selector cascade and the fallback generator's
// curated table.
type Platform string

const (
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
	PlatformMyntra   Platform = "myntra"
	PlatformEbay     Platform = "ebay"
	PlatformGeneric  Platform = "generic"
)

// DetectPlatform maps a URL's hostname to a known Platform.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformGeneric
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "amazon."):
		return PlatformAmazon
	case strings.Contains(host, "flipkart."):
		return PlatformFlipkart
	case strings.Contains(host, "myntra."):
		return PlatformMyntra
	case strings.Contains(host, "ebay."):
		return PlatformEbay
	default:
		return PlatformGeneric
	}
}

// ProductRecord is the canonical output of the extraction pipeline.
// Price == 0 together with a generic title is the only caller-visible
// signal of total failure.
type ProductRecord struct {
	ProductID      string            `json:"product_id"`
	Title          string            `json:"title"`
	Price          float64           `json:"price"`
	OriginalPrice  *float64          `json:"original_price,omitempty"`
	Currency       string            `json:"currency"`
	Rating         *float64          `json:"rating,omitempty"`
	ReviewCount    *int              `json:"review_count,omitempty"`
	Availability   Availability      `json:"availability"`
	Images         []string          `json:"images,omitempty"`
	Description    string            `json:"description,omitempty"`
	Brand          string            `json:"brand,omitempty"`
	Category       string            `json:"category,omitempty"`
	Features       []string          `json:"features,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Reviews        []string          `json:"reviews,omitempty"`
	URL            string            `json:"url"`
	Source         string            `json:"source"`
}

// MaxImages caps the number of image URLs kept on a record.
const MaxImages = 5

// MaxReviews caps the number of review snippets kept on a record.
const MaxReviews = 5

// Acceptable reports whether the record passes the acceptance gate:
// a usable title and a positive price.
func (r *ProductRecord) Acceptable() bool {
	return r != nil && len(strings.TrimSpace(r.Title)) > 3 && r.Price > 0
}

// Normalize enforces the record invariants in place: non-negative price,
// rating clamped to [0,5], review count >= 0, and at most MaxImages
// deduplicated image URLs.
func (r *ProductRecord) Normalize() {
	if r.Price < 0 {
		r.Price = 0
	}
	if r.OriginalPrice != nil && *r.OriginalPrice < 0 {
		r.OriginalPrice = nil
	}
	if r.Rating != nil {
		if *r.Rating < 0 {
			*r.Rating = 0
		}
		if *r.Rating > 5 {
			*r.Rating = 5
		}
	}
	if r.ReviewCount != nil && *r.ReviewCount < 0 {
		r.ReviewCount = nil
	}
	if r.Availability == "" {
		r.Availability = Unavailable
	}
	r.Images = DedupeImages(r.Images)
}

// DedupeImages removes duplicates preserving order and caps the slice
// at MaxImages.
func DedupeImages(images []string) []string {
	if len(images) == 0 {
		return images
	}
	seen := make(map[string]struct{}, len(images))
	out := images[:0]
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		if _, ok := seen[img]; ok {
			continue
		}
		seen[img] = struct{}{}
		out = append(out, img)
		if len(out) == MaxImages {
			break
		}
	}
	return out
}

// MergeMissing fills empty fields of r from other without ever touching a
// field r already has. Title and price are strategy-sourced and are only
// taken from other when r lacks them entirely.
func (r *ProductRecord) MergeMissing(other *ProductRecord) {
	if other == nil {
		return
	}
	if len(strings.TrimSpace(r.Title)) <= 3 && other.Title != "" {
		r.Title = other.Title
	}
	if r.Price <= 0 && other.Price > 0 {
		r.Price = other.Price
	}
	if r.OriginalPrice == nil {
		r.OriginalPrice = other.OriginalPrice
	}
	if r.Currency == "" {
		r.Currency = other.Currency
	}
	if r.Rating == nil {
		r.Rating = other.Rating
	}
	if r.ReviewCount == nil {
		r.ReviewCount = other.ReviewCount
	}
	if r.Availability == "" || r.Availability == Unavailable {
		if other.Availability != "" {
			r.Availability = other.Availability
		}
	}
	if len(r.Images) == 0 {
		r.Images = other.Images
	}
	if r.Description == "" {
		r.Description = other.Description
	}
	if r.Brand == "" {
		r.Brand = other.Brand
	}
	if r.Category == "" {
		r.Category = other.Category
	}
	if len(r.Features) == 0 {
		r.Features = other.Features
	}
	if len(r.Specifications) == 0 {
		r.Specifications = other.Specifications
	}
	if len(r.Reviews) == 0 {
		r.Reviews = other.Reviews
	}
	r.Normalize()
}
