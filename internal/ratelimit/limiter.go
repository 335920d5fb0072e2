// Package ratelimit provides keyed token-bucket limiters whose idle keys expire.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key (upstream host, client IP)
type Limiter struct {
	limiters     *gocache.Cache
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter. A non-positive rate means unlimited,
// and a non-positive idle timeout keeps keys forever.
func NewLimiter(requestsPerSecond float64, burst int, idle time.Duration) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	expiration, cleanup := idle, idle
	if idle <= 0 {
		expiration, cleanup = gocache.NoExpiration, 0
	}

	return &Limiter{
		limiters:     gocache.New(expiration, cleanup),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until the bucket for key has a token or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// SetRate sets a custom rate for a specific key
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters.SetDefault(key, rate.NewLimiter(rate.Limit(requestsPerSecond), burst))
}

// Len returns the number of live keys
func (l *Limiter) Len() int {
	return l.limiters.ItemCount()
}

// getLimiter returns the bucket for key, creating it on first use.
// Every access pushes the key's expiry forward.
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, found := l.limiters.Get(key); found {
		limiter := v.(*rate.Limiter)
		l.limiters.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters.SetDefault(key, limiter)
	return limiter
}

// HostKey extracts the host part of a URL for per-host limiting
func HostKey(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return parsed.Host, nil
}
