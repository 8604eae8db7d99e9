// Package ratelimit throttles outbound requests per host so bulk offer
// scraping stays under the marketplace's bot thresholds.
package ratelimit

import (
	"context"
	"sync"

	urlutil "github.com/law-makers/sourcer/internal/utils/url"
	"golang.org/x/time/rate"
)

// RateLimiter blocks or admits requests keyed by the host of their URL.
type RateLimiter interface {
	// Wait blocks until a request for urlStr may proceed or ctx is done.
	Wait(ctx context.Context, urlStr string) error

	// Allow reports whether a request for urlStr may proceed right now.
	Allow(urlStr string) bool
}

// DomainLimiter keeps one token bucket per host
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	perHost  rate.Limit
	burst    int
}

// NewDomainLimiter creates a limiter allowing requestsPerSecond per host
func NewDomainLimiter(requestsPerSecond float64, burst int) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2.0
	}
	if burst <= 0 {
		burst = 4
	}

	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until the request for the given URL can proceed
func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	host := urlutil.Host(urlStr)
	if host == "" {
		// invalid URLs fail later in the request itself
		return nil
	}
	return dl.limiterFor(host).Wait(ctx)
}

// Allow checks if a request can proceed immediately without blocking
func (dl *DomainLimiter) Allow(urlStr string) bool {
	host := urlutil.Host(urlStr)
	if host == "" {
		return true
	}
	return dl.limiterFor(host).Allow()
}

// SetLimit overrides the rate for one host, e.g. a paid scraping API
func (dl *DomainLimiter) SetLimit(host string, requestsPerSecond float64, burst int) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if limiter, exists := dl.limiters[host]; exists {
		limiter.SetLimit(rate.Limit(requestsPerSecond))
		limiter.SetBurst(burst)
		return
	}
	dl.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (dl *DomainLimiter) limiterFor(host string) *rate.Limiter {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	limiter, exists := dl.limiters[host]
	if !exists {
		limiter = rate.NewLimiter(dl.perHost, dl.burst)
		dl.limiters[host] = limiter
	}
	return limiter
}
