package fetch

import (
	"net/url"
	"strings"
	"sync"
)

// SessionStore keeps per-domain cookie strings so consecutive requests to
// the same site carry the session the site handed out. Entries live for
// the process lifetime. Safe for concurrent use.
type SessionStore struct {
	mu      sync.Mutex
	cookies map[string]string // domain -> Cookie header value
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{cookies: make(map[string]string)}
}

// Cookie returns the stored Cookie header value for the URL's domain,
// or "" when the domain has not been seen.
func (s *SessionStore) Cookie(rawURL string) string {
	domain := domainOf(rawURL)
	if domain == "" {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies[domain]
}

// Update merges the Set-Cookie values of a response into the domain's
// stored cookie string. Later values for the same cookie name win.
func (s *SessionStore) Update(rawURL string, setCookies []string) {
	if len(setCookies) == 0 {
		return
	}
	domain := domainOf(rawURL)
	if domain == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pairs := parseCookiePairs(s.cookies[domain])
	order := pairOrder(s.cookies[domain])

	for _, sc := range setCookies {
		// Only the name=value part before the first attribute matters.
		nv := strings.SplitN(sc, ";", 2)[0]
		name, value, ok := strings.Cut(strings.TrimSpace(nv), "=")
		if !ok || name == "" {
			continue
		}
		if _, seen := pairs[name]; !seen {
			order = append(order, name)
		}
		pairs[name] = value
	}

	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, name+"="+pairs[name])
	}
	s.cookies[domain] = strings.Join(parts, "; ")
}

// Len returns the number of domains with stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cookies)
}

func parseCookiePairs(cookie string) map[string]string {
	pairs := make(map[string]string)
	for _, part := range strings.Split(cookie, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name != "" {
			pairs[name] = value
		}
	}
	return pairs
}

func pairOrder(cookie string) []string {
	var order []string
	for _, part := range strings.Split(cookie, ";") {
		name, _, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name != "" {
			order = append(order, name)
		}
	}
	return order
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
