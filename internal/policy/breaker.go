package policy

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBreakerOpen reports that the error threshold has been reached.
var ErrBreakerOpen = errors.New("error threshold reached")

// Breaker counts exhausted-retry errors inside a sliding window and trips
// once the count reaches the threshold. A nil Breaker never trips.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration // 0 = count for the whole scan
	errors    []time.Time
	total     int
	tripped   bool
	now       func() time.Time
}

// NewBreaker returns a breaker, or nil when threshold <= 0 (disabled).
func NewBreaker(threshold int, window time.Duration) *Breaker {
	if threshold <= 0 {
		return nil
	}
	return &Breaker{
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

// Record registers one error. It returns true exactly once: on the call
// that makes the windowed count reach the threshold.
func (b *Breaker) Record() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total++
	now := b.now()
	b.errors = append(b.errors, now)
	if b.window > 0 {
		cutoff := now.Add(-b.window)
		kept := b.errors[:0]
		for _, t := range b.errors {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		b.errors = kept
	}

	if b.tripped || len(b.errors) < b.threshold {
		return false
	}
	b.tripped = true
	return true
}

// Tripped reports whether the threshold has been reached.
func (b *Breaker) Tripped() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// Total returns the number of errors recorded since creation.
func (b *Breaker) Total() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Err returns nil while the breaker is closed and an error wrapping
// ErrBreakerOpen once it has tripped.
func (b *Breaker) Err() error {
	if !b.Tripped() {
		return nil
	}
	return fmt.Errorf("%w (%d errors)", ErrBreakerOpen, b.Total())
}
