// Package ratelimit provides process-wide, per-platform token-bucket rate
// limiters that serialize requests across concurrent collector sources
// sharing one remote API. It is grounded on the teacher's pkg/ratelimit
// package: the Clock abstraction and its clock-skew handling are carried
// over in spirit, wrapping golang.org/x/time/rate's token-bucket limiter
// (the teacher's own hand-rolled sliding-window algorithm is generalized
// here to the refill-at-QPS model spec.md names explicitly).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time.Now so tests can drive the bucket deterministically
// instead of sleeping. Grounded on the teacher's pkg/ratelimit.Clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TokenBucket wraps golang.org/x/time/rate.Limiter with an injectable
// Clock, refilling at qps tokens per second up to capacity.
type TokenBucket struct {
	clock   Clock
	limiter *rate.Limiter
}

// NewTokenBucket creates a bucket that starts full, refilling at qps tokens
// per second up to capacity.
func NewTokenBucket(capacity float64, qps float64, clock Clock) *TokenBucket {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenBucket{
		clock:   clock,
		limiter: rate.NewLimiter(rate.Limit(qps), int(capacity)),
	}
}

// TryAcquire attempts to take one token without blocking, evaluated at the
// bucket's clock time. It reports whether a token was available.
func (b *TokenBucket) TryAcquire() bool {
	return b.limiter.AllowN(b.clock.Now(), 1)
}

// Acquire blocks until a token is available or ctx is canceled. The wait
// duration is computed from a reservation taken at the bucket's clock time,
// so tests using a fake Clock can reason about it without real sleeps.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	now := b.clock.Now()
	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return fmt.Errorf("rate limit: request exceeds bucket capacity")
	}

	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return fmt.Errorf("rate limit acquire canceled: %w", ctx.Err())
	}
}
