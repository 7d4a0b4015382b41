package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive outbound notifications.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay waits a constant interval on every call.
type FixedDelay struct {
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewFixedDelay(interval time.Duration) *FixedDelay {
	if interval < 0 {
		interval = 0
	}
	return &FixedDelay{
		interval: interval,
		sleep:    sleepWithContext,
	}
}

func (p *FixedDelay) Wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, p.interval)
}

// Interval reports the configured delay.
func (p *FixedDelay) Interval() time.Duration {
	if p == nil {
		return 0
	}
	return p.interval
}

// TokenBucket admits at most perMinute notifications per minute with a burst of one.
type TokenBucket struct {
	limiter *rate.Limiter
}

func NewTokenBucket(perMinute int) (*TokenBucket, error) {
	if perMinute <= 0 {
		return nil, fmt.Errorf("per-minute rate must be positive, got %d", perMinute)
	}
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	return &TokenBucket{limiter: rate.NewLimiter(limit, 1)}, nil
}

func (p *TokenBucket) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
