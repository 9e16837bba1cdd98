package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// TransportLimiter is the token bucket shared by every delivery attempt.
// All attempts go through one transport, so a single bucket is enough.
type TransportLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter granting ratePerSec tokens per second with the given
// burst. A non-positive rate disables limiting.
func New(ratePerSec float64, burst int) *TransportLimiter {
	if ratePerSec <= 0 {
		return &TransportLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &TransportLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Wait blocks until the limiter grants a token.
// Called by the dispatcher immediately before every transport attempt.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *TransportLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}
