// Package fields contains the pure parsers that turn raw page text into
// typed product values. Every function is side-effect free and safe for
// concurrent use.
package fields

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dealscout/dealscout/models"
)

// MaxPrice is the sanity bound against mis-parsed concatenated digits.
const MaxPrice = 10_000_000

var (
	rePriceDigits  = regexp.MustCompile(`[\d][\d,.]*`)
	reNumber       = regexp.MustCompile(`\d+(?:\.\d+)?`)
	reIntDigits    = regexp.MustCompile(`[\d,]+`)
	reSlugJunk     = regexp.MustCompile(`\.(html?|php|aspx?)$`)
	reProductPath  = regexp.MustCompile(`(?i)/(?:dp|gp/product|itm|product|item)/([A-Za-z0-9][A-Za-z0-9_-]{3,})`)
	reTrailingID   = regexp.MustCompile(`(?i)/p/([a-z0-9]{6,})`)
	reNonWordRuns  = regexp.MustCompile(`[-_]+`)
	reMultiSpaces  = regexp.MustCompile(`\s+`)
)

// ParsePrice normalizes a raw price string ("₹1,234.56", "Rs. 999",
// "$1,299") into a float. It returns false for strings without digits,
// non-positive values, and values above MaxPrice.
func ParsePrice(raw string) (float64, bool) {
	match := rePriceDigits.FindString(raw)
	if match == "" {
		return 0, false
	}

	// Decide whether commas are thousands separators or a decimal comma.
	// "1,234.56" → strip commas; "999,00" with no dot → decimal comma.
	if strings.Contains(match, ",") {
		if strings.Contains(match, ".") {
			match = strings.ReplaceAll(match, ",", "")
		} else {
			parts := strings.Split(match, ",")
			last := parts[len(parts)-1]
			if len(parts) == 2 && len(last) == 2 {
				match = parts[0] + "." + last
			} else {
				match = strings.Join(parts, "")
			}
		}
	}

	// A trailing dot ("999.") confuses ParseFloat.
	match = strings.TrimRight(match, ".")

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	if v <= 0 || v > MaxPrice {
		return 0, false
	}
	return v, true
}

// ParseRating extracts a 0-5 star rating from text like "4.3 out of 5
// stars" or "4,3". Values above 5 that look like a percentage scale
// (e.g. "86%") are converted; anything else out of range is rejected.
func ParseRating(raw string) (float64, bool) {
	norm := strings.ReplaceAll(raw, ",", ".")
	match := reNumber.FindString(norm)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	if strings.Contains(raw, "%") && v <= 100 {
		v = v / 100 * 5
	}
	if v < 0 || v > 5 {
		return 0, false
	}
	return v, true
}

// ClampRating forces a rating into [0,5].
func ClampRating(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

// ParseReviewCount extracts a non-negative integer from text like
// "1,234 ratings" or "(567)".
func ParseReviewCount(raw string) (int, bool) {
	match := reIntDigits.FindString(raw)
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", "")
	n, err := strconv.Atoi(match)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseAvailability classifies availability text.
func ParseAvailability(raw string) models.Availability {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "out of stock"),
		strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "sold out"),
		strings.Contains(lower, "outofstock"):
		return models.OutOfStock
	case strings.Contains(lower, "in stock"),
		strings.Contains(lower, "instock"),
		strings.Contains(lower, "add to cart"),
		strings.Contains(lower, "buy now"):
		return models.InStock
	default:
		return models.Unavailable
	}
}

// currencySymbols is checked in order; multi-rune symbols come before
// their single-rune prefixes.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"₹", "INR"},
	{"Rs.", "INR"},
	{"Rs ", "INR"},
	{"£", "GBP"},
	{"€", "EUR"},
	{"¥", "JPY"},
	{"₩", "KRW"},
	{"R$", "BRL"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"$", "USD"},
}

var tldCurrencies = map[string]string{
	"in": "INR",
	"uk": "GBP",
	"de": "EUR",
	"fr": "EUR",
	"es": "EUR",
	"it": "EUR",
	"nl": "EUR",
	"eu": "EUR",
	"jp": "JPY",
	"ca": "CAD",
	"au": "AUD",
	"br": "BRL",
}

// InferCurrency picks a currency code from page text symbols first, then
// the URL's top-level domain, defaulting to USD. Symbol detection wins in
// every stage.
func InferCurrency(pageText, rawURL string) string {
	for _, c := range currencySymbols {
		if strings.Contains(pageText, c.symbol) {
			return c.code
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		host := u.Hostname()
		if i := strings.LastIndex(host, "."); i >= 0 {
			if code, ok := tldCurrencies[host[i+1:]]; ok {
				return code
			}
		}
	}
	return "USD"
}

// ProductIDFromURL derives a stable product identifier from a URL. The
// derivation is deterministic: the same URL always yields the same ID.
// Recognized path shapes (/dp/<id>, /gp/product/<id>, /itm/<id>, /p/<id>)
// and common query parameters are tried before falling back to a short
// hash of the normalized URL.
func ProductIDFromURL(rawURL string) string {
	if m := reProductPath.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if m := reTrailingID.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if u, err := url.Parse(rawURL); err == nil {
		q := u.Query()
		for _, key := range []string{"pid", "itemid", "item_id", "product_id", "sku", "skuId"} {
			if v := q.Get(key); v != "" {
				return v
			}
		}
		// Last path segment if it looks identifier-ish.
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segs) > 0 {
			last := segs[len(segs)-1]
			last = reSlugJunk.ReplaceAllString(last, "")
			if len(last) >= 6 && len(last) <= 40 && !strings.Contains(last, "-") {
				return last
			}
		}
	}
	sum := sha256.Sum256([]byte(normalizeURL(rawURL)))
	return hex.EncodeToString(sum[:])[:12]
}

// normalizeURL strips the fragment and trailing slash so cosmetic URL
// variants hash to the same product ID.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// TitleFromURL derives a human-readable title from the URL's most
// descriptive path segment: hyphens and underscores become spaces and
// each word is title-cased. Returns "" when nothing usable is found.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	best := ""
	for _, seg := range segs {
		seg = reSlugJunk.ReplaceAllString(seg, "")
		// The slug with the most separators is usually the product name.
		if strings.Count(seg, "-")+strings.Count(seg, "_") > strings.Count(best, "-")+strings.Count(best, "_") {
			best = seg
		}
	}
	if best == "" {
		return ""
	}
	words := reNonWordRuns.Split(best, -1)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	title := strings.TrimSpace(strings.Join(words, " "))
	if len(title) <= 3 {
		return ""
	}
	return title
}

// CleanText collapses whitespace runs and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(reMultiSpaces.ReplaceAllString(s, " "))
}
