// Package fetch performs outbound HTTP requests against target sites with
// a Chrome TLS fingerprint, browser-mimicking headers, and per-domain
// cookie continuity.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"

	"github.com/dealscout/dealscout/models"
)

// maxBody caps response body reads to prevent unbounded memory use.
const maxBody = 10 << 20

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. Computed once at init time and reused per connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2, which Go's http.Transport cannot frame
	// over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// Options customizes a single request.
type Options struct {
	// UserAgent overrides the default Chrome user agent.
	UserAgent string

	// Headers are extra request headers, applied after the defaults.
	Headers map[string]string

	// Cookie is a raw Cookie header value attached to the request.
	Cookie string

	// MaxBytes truncates the body read when > 0.
	MaxBytes int
}

// Response is the outcome of a successful fetch. Non-200 statuses are
// returned here, not as errors; the body is untrusted arbitrary text.
type Response struct {
	Body       []byte
	StatusCode int
	FinalURL   string
	Header     http.Header

	// SetCookies holds the raw Set-Cookie values from the response, for
	// session continuity on the next request to the same domain.
	SetCookies []string
}

// Client fetches pages with a Chrome TLS fingerprint and bounded
// redirect chains. Safe for concurrent use.
type Client struct {
	client  *http.Client
	timeout time.Duration
}

// NewClient builds a Client. maxRedirects bounds redirect chains;
// proxy, when non-empty, is applied to every request.
func NewClient(timeout time.Duration, maxRedirects int, proxy string) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRedirects <= 0 {
		maxRedirects = 5
	}

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("fetch: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		timeout: timeout,
	}
}

// Get fetches targetURL. The context is bounded by the client timeout;
// network errors come back as FETCH_FAILED ExtractErrors.
func (c *Client) Get(ctx context.Context, targetURL string, opts Options) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeFetch, "build request", err)
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if opts.Cookie != "" {
		req.Header.Set("Cookie", opts.Cookie)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeFetch, fmt.Sprintf("GET %s", targetURL), err)
	}
	defer resp.Body.Close()

	limit := int64(maxBody)
	if opts.MaxBytes > 0 && int64(opts.MaxBytes) < limit {
		limit = int64(opts.MaxBytes)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		// A truncated read past the limit is fine; anything else fails.
		if len(body) == 0 {
			return nil, models.NewExtractError(models.ErrCodeFetch, "read body", err)
		}
	}

	return &Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Header:     resp.Header,
		SetCookies: resp.Header.Values("Set-Cookie"),
	}, nil
}

// IsHTML reports whether the response's content type looks like HTML.
func (r *Response) IsHTML() bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	return ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
