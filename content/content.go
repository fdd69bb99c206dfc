// Package content prepares page excerpts for the model-assisted stage:
// region filtering, readability extraction, and markdown conversion keep
// prompts small without losing the product description.
package content

import (
	"bytes"
	"log/slog"
	nurl "net/url"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be considered valid. Below this threshold we
// assume the algorithm failed to locate the main content and fall back
// to raw HTML.
const minContentLength = 50

// Builder turns raw product-page HTML into a compact markdown excerpt.
// The converter is goroutine-safe, so one Builder serves all pipelines.
type Builder struct {
	conv *converter.Converter
}

// NewBuilder configures the markdown converter for LLM-optimised output:
// the base plugin strips script/style/head noise, commonmark renders
// standard markdown, and the table plugin keeps specification tables
// intact with minimal cell padding to save tokens.
func NewBuilder() *Builder {
	return &Builder{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// productRegionSelector narrows a page to its product region before
// readability runs. Pages without a matching region pass through whole.
const productRegionSelector = `#dp-container, #ppd, #centerCol, [itemtype*="Product"], .product-detail, .pdp-details, #product, main`

// Excerpt produces a markdown rendering of the page's main content,
// truncated to maxRunes. The page is first narrowed to its product
// region, then run through readability. Neither step failing fails the
// call; the raw HTML is converted instead.
func (b *Builder) Excerpt(rawHTML, sourceURL string, maxRunes int) string {
	if filtered, err := ApplySelector(rawHTML, productRegionSelector); err == nil {
		rawHTML = filtered
	}

	article, ok := extractArticle(rawHTML, sourceURL)
	src := article.Content
	if !ok || strings.TrimSpace(src) == "" {
		src = rawHTML
	}

	domain := ""
	if u, err := nurl.Parse(sourceURL); err == nil {
		domain = u.Scheme + "://" + u.Host
	}

	md, err := b.conv.ConvertString(src, converter.WithDomain(domain))
	if err != nil {
		slog.Warn("markdown conversion failed, using plain text", "url", sourceURL, "error", err)
		md = article.TextContent
		if strings.TrimSpace(md) == "" {
			md = rawHTML
		}
	}

	return truncateRunes(md, maxRunes)
}

// Description returns readability's excerpt for the page, or "" when the
// algorithm found nothing usable. Used to backfill record descriptions.
func Description(rawHTML, sourceURL string) string {
	article, ok := extractArticle(rawHTML, sourceURL)
	if !ok {
		return ""
	}
	return strings.TrimSpace(article.Excerpt)
}

// extractArticle runs the Mozilla Readability algorithm with raw-HTML
// fallback semantics borrowed from the scrape path: the caller must
// never fail just because readability choked.
func extractArticle(rawHTML, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		return fallbackArticle(rawHTML), false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability extraction failed", "url", sourceURL, "error", err)
		return fallbackArticle(rawHTML), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		return fallbackArticle(rawHTML), false
	}

	return article, true
}

func fallbackArticle(rawHTML string) readability.Article {
	return readability.Article{
		Content:     rawHTML,
		TextContent: rawHTML,
	}
}

// ApplySelector parses rawHTML, matches elements against the given CSS
// selector, and returns the concatenated outer HTML of all matched
// elements. If no elements match, the original rawHTML is returned
// unchanged so downstream processing still has something to work with.
func ApplySelector(rawHTML string, selector string) (string, error) {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	matches := cascadia.QueryAll(doc, sel)
	if len(matches) == 0 {
		return rawHTML, nil
	}

	var buf bytes.Buffer
	for _, node := range matches {
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}

	return buf.String(), nil
}

// EstimateTokens provides a fast token count estimate: utf8 rune count
// divided by 3, a middle ground between English (~4 chars/token) and CJK
// (~1.5 chars/token) text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		return 1
	}
	return est
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes])
}
