package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAttemptLimiterKeysByRouteAndClient(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := newAttemptLimiter(map[string]limitPolicy{
		routeLogin:  {max: 2, window: time.Minute},
		routeSignup: {max: 1, window: time.Hour},
	})
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if !limiter.Allow(routeLogin, "10.0.0.1") {
			t.Fatalf("login attempt %d should be allowed", i+1)
		}
	}
	if limiter.Allow(routeLogin, "10.0.0.1") {
		t.Fatalf("third login attempt in the window should be refused")
	}
	if !limiter.Allow(routeSignup, "10.0.0.1") {
		t.Fatalf("signup should not share the login budget")
	}
	if !limiter.Allow(routeLogin, "10.0.0.2") {
		t.Fatalf("another client should not share the login budget")
	}
	if !limiter.Allow("csrf-token", "10.0.0.1") {
		t.Fatalf("routes without a policy should never be limited")
	}

	now = now.Add(time.Minute + time.Second)
	if !limiter.Allow(routeLogin, "10.0.0.1") {
		t.Fatalf("login should be allowed again once the window has passed")
	}
	if limiter.Allow(routeSignup, "10.0.0.1") {
		t.Fatalf("signup window is an hour and should still be exhausted")
	}
}

func TestCSRFTokenAcceptedForOneExtraHour(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	tokens := newCSRFTokens()
	tokens.now = func() time.Time { return now }

	issued := tokens.Issue()
	if !tokens.Valid(issued) {
		t.Fatalf("freshly issued token should be valid")
	}

	now = now.Add(time.Hour)
	if !tokens.Valid(issued) {
		t.Fatalf("token from the previous hour should still be valid")
	}

	now = now.Add(time.Hour)
	if tokens.Valid(issued) {
		t.Fatalf("token from two hours ago should be rejected")
	}
	if tokens.Valid("") {
		t.Fatalf("empty token should be rejected")
	}

	other := newCSRFTokens()
	other.now = tokens.now
	if tokens.Valid(other.Issue()) {
		t.Fatalf("token signed with another secret should be rejected")
	}
}

func TestClientKeyDropsPort(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	if got := clientKey(req); got != "192.0.2.7" {
		t.Fatalf("expected host only, got %q", got)
	}
	req.RemoteAddr = "[2001:db8::1]:443"
	if got := clientKey(req); got != "2001:db8::1" {
		t.Fatalf("expected ipv6 host, got %q", got)
	}
	req.RemoteAddr = ""
	if got := clientKey(req); got != "unknown" {
		t.Fatalf("expected unknown for empty address, got %q", got)
	}
}
