package fetch

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// minVisibleText is the visible-character threshold below which a page is
// treated as an anti-bot interstitial rather than real product content.
const minVisibleText = 1000

// blockKeywords flag anti-automation challenge pages. Matched
// case-insensitively against the page title and visible text.
var blockKeywords = []string{
	"captcha",
	"unusual traffic",
	"access denied",
	"robot check",
	"please verify you are human",
	"are you a robot",
	"automated access",
	"request blocked",
	"security check",
}

// IsBlocked classifies a fetched body as an anti-bot challenge: either a
// known challenge phrase appears in the title or visible text, or the
// visible content is implausibly short for a product page.
func IsBlocked(body []byte) bool {
	title := strings.ToLower(ExtractTitle(body))
	text := VisibleText(body)
	lowerText := strings.ToLower(text)

	for _, kw := range blockKeywords {
		if strings.Contains(title, kw) || strings.Contains(lowerText, kw) {
			return true
		}
	}

	return len(text) < minVisibleText
}

// ExtractTitle returns the first <title> content from raw HTML bytes.
func ExtractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}

// VisibleText extracts the visible text from within <body>, stripping all
// tags and <script>/<style> content. Used for heuristic analysis only.
func VisibleText(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
