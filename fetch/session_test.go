package fetch

import "testing"

func TestSessionStoreRoundTrip(t *testing.T) {
	s := NewSessionStore()

	if got := s.Cookie("https://www.amazon.com/dp/B01"); got != "" {
		t.Fatalf("expected empty cookie for unseen domain, got %q", got)
	}

	s.Update("https://www.amazon.com/dp/B01", []string{
		"session-id=abc123; Path=/; Secure",
		"ubid=xyz; Domain=.amazon.com",
	})

	got := s.Cookie("https://www.amazon.com/gp/product/B02")
	want := "session-id=abc123; ubid=xyz"
	if got != want {
		t.Errorf("Cookie = %q, want %q", got, want)
	}

	// Other domains stay isolated.
	if got := s.Cookie("https://www.flipkart.com/p/x"); got != "" {
		t.Errorf("cross-domain cookie leak: %q", got)
	}
}

func TestSessionStoreLaterValueWins(t *testing.T) {
	s := NewSessionStore()
	s.Update("https://example.com/a", []string{"token=first"})
	s.Update("https://example.com/b", []string{"token=second; HttpOnly"})

	if got := s.Cookie("https://example.com/"); got != "token=second" {
		t.Errorf("Cookie = %q, want %q", got, "token=second")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestSessionStoreIgnoresMalformed(t *testing.T) {
	s := NewSessionStore()
	s.Update("https://example.com/", []string{"no-equals-sign", "=novalue"})
	if got := s.Cookie("https://example.com/"); got != "" {
		t.Errorf("expected no cookie stored, got %q", got)
	}
}
