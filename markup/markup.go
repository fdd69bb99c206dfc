// Package markup is the first extraction stage: ordered selector and
// attribute cascades over raw HTML, structured data before class-name
// heuristics, with a full-text regex scan as the last resort.
package markup

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscout/dealscout/fetch"
	"github.com/dealscout/dealscout/fields"
	"github.com/dealscout/dealscout/models"
)

// metaRule looks up a <meta> tag by property or name and takes its
// content attribute.
type metaRule struct {
	attr  string // "property" or "name" or "itemprop"
	value string
}

// textRule takes the trimmed text (or an attribute) of the first match.
type textRule struct {
	selector string
	attr     string // empty means element text
}

var titleMeta = []metaRule{
	{"property", "og:title"},
	{"name", "twitter:title"},
	{"itemprop", "name"},
}

var titleSelectors = []textRule{
	{"#productTitle", ""},
	{"h1.product-title", ""},
	{"h1[class*='title']", ""},
	{"span.B_NuCI", ""}, // flipkart
	{".product-name h1", ""},
	{"h1", ""},
	{"title", ""},
}

var priceMeta = []metaRule{
	{"property", "og:price:amount"},
	{"property", "product:price:amount"},
	{"itemprop", "price"},
}

var priceSelectors = []textRule{
	{"[itemprop='price']", "content"},
	{"[itemprop='price']", ""},
	{".a-price .a-offscreen", ""},
	{".a-price-whole", ""},
	{"#priceblock_dealprice", ""},
	{"#priceblock_ourprice", ""},
	{"div._30jeq3", ""}, // flipkart
	{".pdp-price strong", ""},
	{"[class*='price'][class*='current']", ""},
	{".price", ""},
	{"[class*='price']", ""},
}

var originalPriceSelectors = []textRule{
	{".a-price.a-text-price .a-offscreen", ""},
	{"div._3I9_wc", ""}, // flipkart strike price
	{".pdp-mrp s", ""},
	{"del", ""},
	{"s[class*='price']", ""},
	{"[class*='original']", ""},
	{"[class*='was-price']", ""},
}

var ratingSelectors = []textRule{
	{"[itemprop='ratingValue']", "content"},
	{"[itemprop='ratingValue']", ""},
	{"#acrPopover", "title"},
	{"span.a-icon-alt", ""},
	{"div._3LWZlK", ""}, // flipkart
	{"[class*='rating'][class*='value']", ""},
	{"[class*='star-rating']", ""},
}

var reviewCountSelectors = []textRule{
	{"[itemprop='reviewCount']", "content"},
	{"#acrCustomerReviewText", ""},
	{"span._2_R_DZ", ""}, // flipkart
	{"[class*='review'][class*='count']", ""},
	{"[class*='ratings-count']", ""},
}

var brandMeta = []metaRule{
	{"property", "og:brand"},
	{"property", "product:brand"},
	{"itemprop", "brand"},
}

var brandSelectors = []textRule{
	{"#bylineInfo", ""},
	{"[itemprop='brand']", ""},
	{".pdp-title .pdp-name", ""},
	{"[class*='brand-name']", ""},
	{"[class*='brand']", ""},
}

var descriptionMeta = []metaRule{
	{"property", "og:description"},
	{"name", "description"},
	{"name", "twitter:description"},
}

var availabilitySelectors = []textRule{
	{"[itemprop='availability']", "href"},
	{"[itemprop='availability']", "content"},
	{"#availability", ""},
	{"[class*='availability']", ""},
	{"[class*='stock-status']", ""},
}

var imageMeta = []metaRule{
	{"property", "og:image"},
	{"name", "twitter:image"},
}

var imageSelectors = []textRule{
	{"#landingImage", "src"},
	{"#imgTagWrapperId img", "src"},
	{"img._396cs4", "src"}, // flipkart
	{".product-image img", "src"},
	{"[class*='gallery'] img", "src"},
	{"main img", "src"},
}

// rePriceInText scans full page text when every selector rule comes up
// empty: a currency marker followed by digits.
var rePriceInText = regexp.MustCompile(`(?:₹|Rs\.?\s?|\$|£|€)\s*([\d,]+(?:\.\d{1,2})?)`)

// Extractor is the direct markup strategy. The zero fetcher is invalid;
// construct with New.
type Extractor struct {
	client *fetch.Client
}

// New creates the markup extractor around a fetch client.
func New(client *fetch.Client) *Extractor {
	return &Extractor{client: client}
}

// Name identifies the strategy in logs and record sources.
func (e *Extractor) Name() string { return "markup" }

// Attempt fetches the page and parses it. Fields that cannot be located
// stay at their zero values; the orchestrator applies the acceptance gate.
func (e *Extractor) Attempt(ctx context.Context, rawURL string) (*models.ProductRecord, error) {
	resp, err := e.client.Get(ctx, rawURL, fetch.Options{})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, models.NewExtractError(models.ErrCodeFetch, "page returned error status", nil)
	}
	rec, err := Parse(rawURL, resp.Body)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Parse extracts a partial ProductRecord from raw HTML. Exported so the
// legacy stage and tests can run the cascade on already-fetched bodies.
func Parse(rawURL string, body []byte) (*models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeParse, "parse html", err)
	}

	rec := &models.ProductRecord{
		ProductID: fields.ProductIDFromURL(rawURL),
		URL:       rawURL,
		Source:    "markup",
	}

	// Structured data first.
	parseJSONLD(doc, rec)

	if rec.Title == "" {
		rec.Title = firstMeta(doc, titleMeta)
	}
	if rec.Title == "" {
		rec.Title = firstText(doc, titleSelectors)
	}
	if rec.Title == "" {
		// Rule of last resort: a readable title from the URL slug.
		rec.Title = fields.TitleFromURL(rawURL)
	}
	rec.Title = trimTitle(rec.Title)

	if rec.Price == 0 {
		if raw := firstMeta(doc, priceMeta); raw != "" {
			if v, ok := fields.ParsePrice(raw); ok {
				rec.Price = v
			}
		}
	}
	if rec.Price == 0 {
		for _, rule := range priceSelectors {
			if v, ok := fields.ParsePrice(ruleValue(doc, rule)); ok {
				rec.Price = v
				break
			}
		}
	}
	if rec.Price == 0 {
		// Full-text scan as the final fallback.
		if m := rePriceInText.FindStringSubmatch(doc.Text()); m != nil {
			if v, ok := fields.ParsePrice(m[1]); ok {
				rec.Price = v
			}
		}
	}

	if rec.OriginalPrice == nil {
		for _, rule := range originalPriceSelectors {
			if v, ok := fields.ParsePrice(ruleValue(doc, rule)); ok && v > rec.Price {
				rec.OriginalPrice = &v
				break
			}
		}
	}

	if rec.Rating == nil {
		for _, rule := range ratingSelectors {
			if v, ok := fields.ParseRating(ruleValue(doc, rule)); ok {
				rec.Rating = &v
				break
			}
		}
	}

	if rec.ReviewCount == nil {
		for _, rule := range reviewCountSelectors {
			if n, ok := fields.ParseReviewCount(ruleValue(doc, rule)); ok {
				rec.ReviewCount = &n
				break
			}
		}
	}

	if rec.Availability == "" || rec.Availability == models.Unavailable {
		for _, rule := range availabilitySelectors {
			if raw := ruleValue(doc, rule); raw != "" {
				if a := fields.ParseAvailability(raw); a != models.Unavailable {
					rec.Availability = a
					break
				}
			}
		}
	}

	if rec.Brand == "" {
		rec.Brand = firstMeta(doc, brandMeta)
	}
	if rec.Brand == "" {
		rec.Brand = cleanBrand(firstText(doc, brandSelectors))
	}

	if rec.Description == "" {
		rec.Description = firstMeta(doc, descriptionMeta)
	}

	rec.Images = collectImages(doc, rawURL, rec.Images)
	rec.Specifications = collectSpecs(doc)

	if rec.Currency == "" {
		rec.Currency = fields.InferCurrency(doc.Text(), rawURL)
	}

	rec.Normalize()
	slog.Debug("markup parse done",
		"url", rawURL,
		"title_len", len(rec.Title),
		"price", rec.Price,
	)
	return rec, nil
}

// firstMeta evaluates meta rules in order and returns the first non-empty
// content attribute.
func firstMeta(doc *goquery.Document, rules []metaRule) string {
	for _, r := range rules {
		sel := "meta[" + r.attr + "='" + r.value + "']"
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if v := fields.CleanText(content); v != "" {
				return v
			}
		}
	}
	return ""
}

// firstText evaluates text rules in order and returns the first non-empty
// value.
func firstText(doc *goquery.Document, rules []textRule) string {
	for _, r := range rules {
		if v := ruleValue(doc, r); v != "" {
			return v
		}
	}
	return ""
}

func ruleValue(doc *goquery.Document, r textRule) string {
	el := doc.Find(r.selector).First()
	if el.Length() == 0 {
		return ""
	}
	if r.attr != "" {
		v, _ := el.Attr(r.attr)
		return fields.CleanText(v)
	}
	return fields.CleanText(el.Text())
}

// collectImages gathers opportunistic image URLs: meta tags first, then
// page selectors, resolved against the page URL and capped at five.
func collectImages(doc *goquery.Document, rawURL string, existing []string) []string {
	images := existing
	base, baseErr := url.Parse(rawURL)

	appendImg := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		if baseErr == nil {
			if resolved, err := base.Parse(src); err == nil {
				src = resolved.String()
			}
		}
		images = append(images, src)
	}

	for _, r := range imageMeta {
		sel := "meta[" + r.attr + "='" + r.value + "']"
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			appendImg(content)
		}
	}
	for _, r := range imageSelectors {
		doc.Find(r.selector).Each(func(_ int, s *goquery.Selection) {
			if src, ok := s.Attr(r.attr); ok {
				appendImg(src)
			}
		})
		if len(images) >= models.MaxImages {
			break
		}
	}
	return models.DedupeImages(images)
}

// collectSpecs reads specification rows from detail tables and
// definition lists, deduplicated by key.
func collectSpecs(doc *goquery.Document) map[string]string {
	specs := make(map[string]string)

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		key := fields.CleanText(row.Find("th").First().Text())
		val := fields.CleanText(row.Find("td").First().Text())
		if key == "" {
			cells := row.Find("td")
			if cells.Length() >= 2 {
				key = fields.CleanText(cells.Eq(0).Text())
				val = fields.CleanText(cells.Eq(1).Text())
			}
		}
		addSpec(specs, key, val)
	})

	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		terms := dl.Find("dt")
		defs := dl.Find("dd")
		for i := 0; i < terms.Length() && i < defs.Length(); i++ {
			addSpec(specs, fields.CleanText(terms.Eq(i).Text()), fields.CleanText(defs.Eq(i).Text()))
		}
	})

	if len(specs) == 0 {
		return nil
	}
	return specs
}

func addSpec(specs map[string]string, key, val string) {
	if key == "" || val == "" || len(key) > 80 || len(val) > 300 {
		return
	}
	if _, exists := specs[key]; exists {
		return
	}
	specs[key] = val
}

// trimTitle strips site-name suffixes ("Widget | ShopName") and bounds
// the length.
func trimTitle(title string) string {
	for _, sep := range []string{" | ", " – ", " — "} {
		if i := strings.Index(title, sep); i > 10 {
			title = title[:i]
		}
	}
	title = fields.CleanText(title)
	if utf8.RuneCountInString(title) > 300 {
		title = string([]rune(title)[:300])
	}
	return title
}

// cleanBrand removes common storefront byline noise.
func cleanBrand(brand string) string {
	brand = strings.TrimPrefix(brand, "Brand: ")
	brand = strings.TrimPrefix(brand, "Visit the ")
	brand = strings.TrimSuffix(brand, " Store")
	return fields.CleanText(brand)
}
