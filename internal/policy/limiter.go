package policy

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// LimiterConfig describes request pacing.
type LimiterConfig struct {
	Delay   time.Duration // fixed per-worker delay before each request
	Jitter  time.Duration // extra random delay in [0, Jitter)
	MaxRate float64       // global requests per second, 0 = unlimited
}

// Limiter applies the per-worker delay and the global rate cap. Delay is
// slept by each worker independently so the worker count still bounds
// throughput; the rate cap is shared.
type Limiter struct {
	cfg  LimiterConfig
	rate *rate.Limiter
}

// NewLimiter builds a limiter from cfg.
func NewLimiter(cfg LimiterConfig) *Limiter {
	l := &Limiter{cfg: cfg}
	if cfg.MaxRate > 0 {
		burst := max(int(cfg.MaxRate), 1)
		l.rate = rate.NewLimiter(rate.Limit(cfg.MaxRate), burst)
	}
	return l
}

// Wait blocks until the next request may be sent or ctx ends. extra is an
// additional delay requested by an adaptive throttler.
func (l *Limiter) Wait(ctx context.Context, extra time.Duration) error {
	if l == nil {
		return sleep(ctx, extra)
	}
	if l.rate != nil {
		if err := l.rate.Wait(ctx); err != nil {
			return err
		}
	}
	d := l.cfg.Delay + extra
	if l.cfg.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(l.cfg.Jitter)))
	}
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
