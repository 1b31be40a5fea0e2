package utils

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateGate spaces out calls per key (one key per source) so concurrent
// requests never hit the same site faster than the configured interval.
type RateGate struct {
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateGate creates a RateGate; an interval <= 0 disables throttling.
func NewRateGate(interval time.Duration) *RateGate {
	return &RateGate{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until key may proceed or ctx is done.
func (g *RateGate) Wait(ctx context.Context, key string) error {
	if g == nil || g.interval <= 0 {
		return ctx.Err()
	}
	return g.limiter(key).Wait(ctx)
}

func (g *RateGate) limiter(key string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(g.interval), 1)
		g.limiters[key] = l
	}
	return l
}

// URLSet drops repeated listing links within one result page. Links are
// compared after lower-casing the scheme and host and stripping the fragment
// and any trailing slash, so "/dp/X/" and "/dp/X#reviews" collapse.
type URLSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add reports whether rawURL was new.
func (s *URLSet) Add(rawURL string) bool {
	key := canonicalURL(rawURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len is the number of distinct links added.
func (s *URLSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func canonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment, u.RawFragment = "", ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
