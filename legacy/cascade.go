package legacy

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscout/dealscout/fields"
	"github.com/dealscout/dealscout/models"
)

// Cascade extracts a record from a parsed document using selectors tuned
// for one platform's markup.
type Cascade interface {
	Platform() models.Platform
	Extract(rawURL string, doc *goquery.Document) *models.ProductRecord
}

var cascades = map[models.Platform]Cascade{}

// Register installs a cascade for its platform. Later registrations win.
func Register(c Cascade) {
	cascades[c.Platform()] = c
}

// Lookup returns the cascade for a platform, falling back to the generic
// one.
func Lookup(p models.Platform) Cascade {
	if c, ok := cascades[p]; ok {
		return c
	}
	return cascades[models.PlatformGeneric]
}

func init() {
	Register(&amazonCascade{})
	Register(&flipkartCascade{})
	Register(&myntraCascade{})
	Register(&ebayCascade{})
	Register(&genericCascade{})
}

// firstText returns the first non-empty trimmed text among selectors.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		var out string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := fields.CleanText(s.Text()); t != "" {
				out = t
				return false
			}
			return true
		})
		if out != "" {
			return out
		}
	}
	return ""
}

// firstAttr returns the first non-empty attribute value among selectors.
func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		var out string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				out = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if out != "" {
			return out
		}
	}
	return ""
}

// collectTexts gathers up to limit distinct trimmed texts for a selector.
func collectTexts(doc *goquery.Document, selector string, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := fields.CleanText(s.Text())
		if t == "" {
			return true
		}
		if _, ok := seen[t]; ok {
			return true
		}
		seen[t] = struct{}{}
		out = append(out, t)
		return len(out) < limit
	})
	return out
}

// specTable reads key/value rows into a map, first key wins.
func specTable(doc *goquery.Document, rowSel, keySel, valSel string) map[string]string {
	specs := make(map[string]string)
	doc.Find(rowSel).Each(func(_ int, row *goquery.Selection) {
		key := fields.CleanText(row.Find(keySel).First().Text())
		val := fields.CleanText(row.Find(valSel).First().Text())
		if key == "" || val == "" || len(key) > 80 || len(val) > 300 {
			return
		}
		if _, ok := specs[key]; !ok {
			specs[key] = val
		}
	})
	if len(specs) == 0 {
		return nil
	}
	return specs
}

type amazonCascade struct{}

func (amazonCascade) Platform() models.Platform { return models.PlatformAmazon }

func (amazonCascade) Extract(rawURL string, doc *goquery.Document) *models.ProductRecord {
	rec := &models.ProductRecord{URL: rawURL}

	rec.Title = firstText(doc, "#productTitle", "span#title", "h1.a-size-large")
	if raw := firstText(doc, ".a-price .a-offscreen", "#priceblock_ourprice", "#priceblock_dealprice", "#priceblock_saleprice", ".a-price-whole"); raw != "" {
		if v, ok := fields.ParsePrice(raw); ok {
			rec.Price = v
		}
	}
	if raw := firstText(doc, ".a-price.a-text-price .a-offscreen", "span.priceBlockStrikePriceString"); raw != "" {
		if v, ok := fields.ParsePrice(raw); ok && v > rec.Price {
			rec.OriginalPrice = &v
		}
	}
	ratingRaw := firstAttr(doc, "title", "#acrPopover")
	if ratingRaw == "" {
		ratingRaw = firstText(doc, "span.a-icon-alt")
	}
	if v, ok := fields.ParseRating(ratingRaw); ok {
		rec.Rating = &v
	}
	if raw := firstText(doc, "#acrCustomerReviewText"); raw != "" {
		if n, ok := fields.ParseReviewCount(raw); ok {
			rec.ReviewCount = &n
		}
	}
	rec.Availability = fields.ParseAvailability(firstText(doc, "#availability span", "#availability"))
	rec.Brand = cleanByline(firstText(doc, "#bylineInfo", "a#brand"))
	rec.Description = firstText(doc, "#productDescription p", "#productDescription")
	rec.Features = collectTexts(doc, "#feature-bullets li span.a-list-item", 10)
	rec.Specifications = specTable(doc, "#productDetails_techSpec_section_1 tr", "th", "td")
	if rec.Specifications == nil {
		rec.Specifications = specTable(doc, "table.prodDetTable tr", "th", "td")
	}
	rec.Reviews = collectTexts(doc, `div[data-hook="review-collapsed"] span`, models.MaxReviews)
	if len(rec.Reviews) == 0 {
		rec.Reviews = collectTexts(doc, `span[data-hook="review-body"]`, models.MaxReviews)
	}
	if img := firstAttr(doc, "src", "#landingImage", "#imgBlkFront"); img != "" {
		rec.Images = append(rec.Images, img)
	}
	doc.Find("#altImages img").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("src"); ok && !strings.Contains(v, "sprite") {
			rec.Images = append(rec.Images, v)
		}
	})
	return rec
}

// cleanByline strips Amazon's "Visit the X Store" / "Brand: X" wrappers.
func cleanByline(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Visit the ")
	s = strings.TrimSuffix(s, " Store")
	s = strings.TrimPrefix(s, "Brand: ")
	return strings.TrimSpace(s)
}

type flipkartCascade struct{}

func (flipkartCascade) Platform() models.Platform { return models.PlatformFlipkart }

func (flipkartCascade) Extract(rawURL string, doc *goquery.Document) *models.ProductRecord {
	rec := &models.ProductRecord{URL: rawURL}

	rec.Title = firstText(doc, "span.B_NuCI", "span.VU-ZEz", "h1.yhB1nd", "h1")
	if raw := firstText(doc, "div._30jeq3._16Jk6d", "div._30jeq3", "div.Nx9bqj"); raw != "" {
		if v, ok := fields.ParsePrice(raw); ok {
			rec.Price = v
		}
	}
	if raw := firstText(doc, "div._3I9_wc._2p6lqe", "div._3I9_wc", "div.yRaY8j"); raw != "" {
		if v, ok := fields.ParsePrice(raw); ok && v > rec.Price {
			rec.OriginalPrice = &v
		}
	}
	if raw := firstText(doc, "div._3LWZlK", "div.XQDdHH"); raw != "" {
		if v, ok := fields.ParseRating(raw); ok {
			rec.Rating = &v
		}
	}
	if raw := firstText(doc, "span._2_R_DZ", "span.Wphh3N"); raw != "" {
		if n, ok := fields.ParseReviewCount(raw); ok {
			rec.ReviewCount = &n
		}
	}
	rec.Availability = fields.ParseAvailability(firstText(doc, "div._16FRp0"))
	if rec.Availability == models.Unavailable && rec.Price > 0 {
		rec.Availability = models.InStock
	}
	rec.Description = firstText(doc, "div._1mXcCf", "div.yN+eNk")
	rec.Features = collectTexts(doc, "div._2418kt li, ul._1xgFaf li", 10)
	rec.Specifications = specTable(doc, "table._14cfVK tr", "td._1hKmbr", "td.URwL2w")
	rec.Reviews = collectTexts(doc, "div.t-ZTKy div div", models.MaxReviews)
	doc.Find("img._396cs4, img.DByuf4").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("src"); ok {
			rec.Images = append(rec.Images, v)
		}
	})
	rec.Currency = "INR"
	return rec
}

type myntraCascade struct{}

func (myntraCascade) Platform() models.Platform { return models.PlatformMyntra }

func (myntraCascade) Extract(rawURL string, doc *goquery.Document) *models.ProductRecord {
	rec := &models.ProductRecord{URL: rawURL}

	rec.Brand = firstText(doc, "h1.pdp-title")
	rec.Title = firstText(doc, "h1.pdp-name")
	if rec.Title != "" && rec.Brand != "" && !strings.Contains(rec.Title, rec.Brand) {
		rec.Title = rec.Brand + " " + rec.Title
	}
	if raw := firstText(doc, "span.pdp-price strong", "span.pdp-price"); raw != "" {
		if v, ok := fields.ParsePrice(raw); ok {
			rec.Price = v
		}
	}
	if raw := firstText(doc, "span.pdp-mrp s"); raw != "" {
		if v, ok := fields.ParsePrice(raw); ok && v > rec.Price {
			rec.OriginalPrice = &v
		}
	}
	if raw := firstText(doc, "div.index-overallRating div"); raw != "" {
		if v, ok := fields.ParseRating(raw); ok {
			rec.Rating = &v
		}
	}
	rec.Description = firstText(doc, "p.pdp-product-description-content")
	rec.Specifications = specTable(doc, "div.index-row", "div.index-rowKey", "div.index-rowValue")
	rec.Category = "Fashion"
	rec.Currency = "INR"
	doc.Find("div.image-grid-image").Each(func(_ int, s *goquery.Selection) {
		if style, ok := s.Attr("style"); ok {
			if url := styleBackgroundURL(style); url != "" {
				rec.Images = append(rec.Images, url)
			}
		}
	})
	return rec
}

// styleBackgroundURL pulls the url(...) out of an inline background style.
func styleBackgroundURL(style string) string {
	start := strings.Index(style, "url(")
	if start < 0 {
		return ""
	}
	rest := style[start+4:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return ""
	}
	return strings.Trim(rest[:end], `"' `)
}

type ebayCascade struct{}

func (ebayCascade) Platform() models.Platform { return models.PlatformEbay }

func (ebayCascade) Extract(rawURL string, doc *goquery.Document) *models.ProductRecord {
	rec := &models.ProductRecord{URL: rawURL}

	rec.Title = firstText(doc, "h1.x-item-title__mainTitle span", "h1#itemTitle", "h1")
	rec.Title = strings.TrimPrefix(rec.Title, "Details about")
	rec.Title = strings.TrimSpace(rec.Title)
	if raw := firstText(doc, "div.x-price-primary span", "span#prcIsum", "span#mm-saleDscPrc"); raw != "" {
		if v, ok := fields.ParsePrice(raw); ok {
			rec.Price = v
		}
	}
	if raw := firstText(doc, "span.ux-textspans--STRIKETHROUGH"); raw != "" {
		if v, ok := fields.ParsePrice(raw); ok && v > rec.Price {
			rec.OriginalPrice = &v
		}
	}
	rec.Availability = fields.ParseAvailability(firstText(doc, "div.d-quantity__availability span", "span#qtySubTxt"))
	rec.Specifications = specTable(doc, "div.ux-layout-section-evo__row dl", "dt", "dd")
	if rec.Specifications == nil {
		rec.Specifications = specTable(doc, "div.itemAttr tr", "td.attrLabels", "td:not(.attrLabels)")
	}
	rec.Brand = rec.Specifications["Brand"]
	if img := firstAttr(doc, "src", "div.ux-image-carousel-item img", "img#icImg"); img != "" {
		rec.Images = append(rec.Images, img)
	}
	return rec
}

type genericCascade struct{}

func (genericCascade) Platform() models.Platform { return models.PlatformGeneric }

func (genericCascade) Extract(rawURL string, doc *goquery.Document) *models.ProductRecord {
	rec := &models.ProductRecord{URL: rawURL}

	rec.Title = firstAttr(doc, "content", `meta[property="og:title"]`)
	if rec.Title == "" {
		rec.Title = firstText(doc, "h1.product-title", "h1.product_title", `[itemprop="name"]`, "h1")
	}
	priceRaw := firstAttr(doc, "content", `meta[property="product:price:amount"]`, `meta[property="og:price:amount"]`, `meta[itemprop="price"]`)
	if priceRaw == "" {
		priceRaw = firstText(doc, `[itemprop="price"]`, ".price", ".product-price", "span.amount")
	}
	if v, ok := fields.ParsePrice(priceRaw); ok {
		rec.Price = v
	}
	if cur := firstAttr(doc, "content", `meta[property="product:price:currency"]`, `meta[itemprop="priceCurrency"]`); cur != "" {
		rec.Currency = strings.ToUpper(cur)
	}
	rec.Brand = firstText(doc, `[itemprop="brand"]`, ".brand", ".product-brand")
	rec.Description = firstAttr(doc, "content", `meta[property="og:description"]`, `meta[name="description"]`)
	rec.Availability = fields.ParseAvailability(firstText(doc, `[itemprop="availability"]`, ".availability", ".stock"))
	if img := firstAttr(doc, "content", `meta[property="og:image"]`); img != "" {
		rec.Images = append(rec.Images, img)
	}
	return rec
}
