package reliability

import (
	"context"

	"golang.org/x/time/rate"
)

const (
	// defaultRequestsPerSecond keeps a single server comfortably inside the
	// free-tier request-per-minute quotas of both providers.
	defaultRequestsPerSecond = 0.5
	defaultBurst             = 2
)

// RateLimiter throttles outbound provider calls. One limiter is shared per
// provider instance, which is itself per request, so limits never leak across
// users.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter with the given sustained rate and burst.
// Non-positive values select the defaults.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a call is permitted or the context is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
