package sharepoint

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds request pacing configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimit paces page requests well below SharePoint's
// throttling thresholds.
var DefaultRateLimit = RateLimitConfig{RequestsPerSecond: 10.0, BurstSize: 2}

// RateLimiter paces SharePoint API requests. It uses a token bucket
// plus a backoff window honouring Retry-After from 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a rate limiter. Zero-value config fields fall
// back to DefaultRateLimit.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRateLimit.RequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultRateLimit.BurstSize
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Wait blocks until a request can be made without exceeding the rate
// limit, honouring any active 429 backoff window first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if until := time.Until(retryAt); until > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(until):
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRetryAfter opens a backoff window after a 429 response.
// A non-positive value applies a 60 second default.
func (r *RateLimiter) RecordRetryAfter(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seconds <= 0 {
		seconds = 60
	}
	r.retryAt = time.Now().Add(time.Duration(seconds) * time.Second)
}
