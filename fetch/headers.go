package fetch

import (
	"math/rand"

	"github.com/dealscout/dealscout/models"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// userAgents is the rotation pool used by the legacy extractor.
var userAgents = []string{
	defaultUserAgent,
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (Version/17.6 Safari/605.1.15)",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

// RandomUserAgent picks a user agent pseudo-randomly from the pool.
func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// chromeClientHints are the sec-ch headers Chrome sends alongside its UA.
var chromeClientHints = map[string]string{
	"sec-ch-ua":          `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
	"sec-ch-ua-mobile":   "?0",
	"sec-ch-ua-platform": `"Windows"`,
	"Sec-Fetch-Dest":     "document",
	"Sec-Fetch-Mode":     "navigate",
	"Sec-Fetch-Site":     "none",
	"Sec-Fetch-User":     "?1",
}

// PlatformHeaders returns the extra header set attached for a detected
// platform. Amazon and Flipkart are sensitive to missing client hints;
// the generic set stays minimal.
func PlatformHeaders(p models.Platform) map[string]string {
	switch p {
	case models.PlatformAmazon:
		h := cloneHeaders(chromeClientHints)
		h["Device-Memory"] = "8"
		h["Viewport-Width"] = "1920"
		return h
	case models.PlatformFlipkart, models.PlatformMyntra:
		h := cloneHeaders(chromeClientHints)
		h["Referer"] = "https://www.google.com/"
		return h
	case models.PlatformEbay:
		return cloneHeaders(chromeClientHints)
	default:
		return map[string]string{"Referer": "https://www.google.com/"}
	}
}

func cloneHeaders(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
