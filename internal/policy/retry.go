// Package policy holds the request pacing and failure policies shared by
// probe workers: retry with backoff, a sliding-window circuit breaker,
// per-worker delay with an optional global rate cap, and adaptive
// throttling on rate-limit responses.
package policy

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Strategy selects the delay between retries.
type Strategy int

const (
	// Exponential doubles the delay each attempt.
	Exponential Strategy = iota
	// Constant waits InitialDelay between every attempt.
	Constant
)

// RetryConfig controls how transport failures are retried.
type RetryConfig struct {
	MaxRetries   int // additional attempts after the first
	Strategy     Strategy
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       bool

	// Notify, if set, is called before each retry sleep.
	Notify func(err error, next time.Duration)
}

// DefaultRetryConfig retries once with a short exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   1,
		Strategy:     Exponential,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs op until it succeeds, returns a permanent error, the context
// ends, or MaxRetries retries have been spent. It returns the last value,
// the number of attempts made, and the last error.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func() (T, error)) (T, int, error) {
	attempts := 0
	counted := func() (T, error) {
		attempts++
		return op()
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(cfg.backOff()),
		backoff.WithMaxTries(uint(max(cfg.MaxRetries, 0) + 1)),
		backoff.WithMaxElapsedTime(0),
	}
	if cfg.Notify != nil {
		opts = append(opts, backoff.WithNotify(cfg.Notify))
	}

	res, err := backoff.Retry(ctx, counted, opts...)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return res, attempts, err
}

func (cfg RetryConfig) backOff() backoff.BackOff {
	if cfg.Strategy == Constant {
		return backoff.NewConstantBackOff(cfg.InitialDelay)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.Multiplier = 2
	if cfg.MaxDelay > 0 {
		b.MaxInterval = cfg.MaxDelay
	}
	if !cfg.Jitter {
		b.RandomizationFactor = 0
	}
	return b
}
