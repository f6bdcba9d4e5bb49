package shopify

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles Admin API calls with one token bucket per shop domain.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	config   RateLimitConfig
}

// RateLimitConfig holds rate limit configuration.
type RateLimitConfig struct {
	// Requests per second per shop
	RPS float64
	// Maximum requests that can be made at once
	Burst int
}

// DefaultRateLimitConfig returns a limit that stays inside the standard plan's
// GraphQL cost budget for 100x100 order pages.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:   2,
		Burst: 4,
	}
}

// NewRateLimiter creates a new rate limiter with the given configuration.
// A non-positive RPS disables throttling.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Burst < 1 {
		config.Burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// Wait blocks until a request can be made for the given shop.
// Returns an error if the context is done before a token is available.
func (rl *RateLimiter) Wait(ctx context.Context, shop string) error {
	if rl == nil || rl.config.RPS <= 0 {
		return ctx.Err()
	}
	return rl.limiter(shop).Wait(ctx)
}

func (rl *RateLimiter) limiter(shop string) *rate.Limiter {
	rl.mu.RLock()
	l, ok := rl.limiters[shop]
	rl.mu.RUnlock()
	if ok {
		return l
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok = rl.limiters[shop]; ok {
		return l
	}
	l = rate.NewLimiter(rate.Limit(rl.config.RPS), rl.config.Burst)
	rl.limiters[shop] = l
	return l
}
