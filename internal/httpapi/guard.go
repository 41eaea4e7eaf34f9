package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const csrfBucket = time.Hour

// csrfTokens issues stateless tokens: an HMAC over the current hour bucket.
// A token stays valid for the bucket it was issued in and the next one.
type csrfTokens struct {
	secret []byte
	now    func() time.Time
}

func newCSRFTokens() *csrfTokens {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		secret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &csrfTokens{secret: secret, now: time.Now}
}

func (c *csrfTokens) forBucket(bucket int64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(bucket))
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte("shopstack-csrf:"))
	mac.Write(buf[:])
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *csrfTokens) bucket() int64 {
	return c.now().UTC().Truncate(csrfBucket).Unix()
}

func (c *csrfTokens) Issue() string {
	return c.forBucket(c.bucket())
}

func (c *csrfTokens) Valid(token string) bool {
	if token == "" {
		return false
	}
	current := c.bucket()
	previous := current - int64(csrfBucket/time.Second)
	return hmac.Equal([]byte(token), []byte(c.forBucket(current))) ||
		hmac.Equal([]byte(token), []byte(c.forBucket(previous)))
}

// limitPolicy allows max attempts per window for one route.
type limitPolicy struct {
	max    int
	window time.Duration
}

// attemptLimiter counts attempts per route and client in a sliding window.
// Routes without a policy are never limited.
type attemptLimiter struct {
	mu       sync.Mutex
	policies map[string]limitPolicy
	entries  map[string][]time.Time
	now      func() time.Time
}

func newAttemptLimiter(policies map[string]limitPolicy) *attemptLimiter {
	return &attemptLimiter{
		policies: policies,
		entries:  make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (l *attemptLimiter) Allow(route string, client string) bool {
	policy, ok := l.policies[route]
	if !ok {
		return true
	}
	now := l.now()
	cutoff := now.Add(-policy.window)
	key := route + "|" + client

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := recentSince(l.entries[key], cutoff)
	if len(kept) >= policy.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	if len(l.entries) > 4096 {
		l.prune(now)
	}
	return true
}

// prune drops clients whose attempts have all left their window.
func (l *attemptLimiter) prune(now time.Time) {
	for key, history := range l.entries {
		route, _, _ := strings.Cut(key, "|")
		if len(recentSince(history, now.Add(-l.policies[route].window))) == 0 {
			delete(l.entries, key)
		}
	}
}

func recentSince(history []time.Time, cutoff time.Time) []time.Time {
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

// clientKey identifies the caller by remote IP; the port changes per connection.
func clientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
