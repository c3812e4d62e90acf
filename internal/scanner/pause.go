package scanner

import (
	"context"
	"sync"
	"time"
)

// Pauser is a cooperative pause gate for workers. While paused, Wait blocks
// until resumed or the context ends.
type Pauser struct {
	mu          sync.Mutex
	resumed     chan struct{} // closed while running
	pausedSince time.Time
	totalPaused time.Duration
}

// NewPauser creates a Pauser in the running state.
func NewPauser() *Pauser {
	ch := make(chan struct{})
	close(ch)
	return &Pauser{resumed: ch}
}

// Wait blocks while the scan is paused. A nil Pauser never blocks.
func (p *Pauser) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	p.mu.Lock()
	ch := p.resumed
	p.mu.Unlock()
	select {
	case <-ch:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Toggle flips between paused and running and returns true if now paused.
func (p *Pauser) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.resumed:
		p.resumed = make(chan struct{})
		p.pausedSince = time.Now()
		return true
	default:
		p.totalPaused += time.Since(p.pausedSince)
		close(p.resumed)
		return false
	}
}

// IsPaused reports whether the scan is currently paused.
func (p *Pauser) IsPaused() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.resumed:
		return false
	default:
		return true
	}
}

// PausedDuration returns the total time spent paused, including any
// ongoing pause.
func (p *Pauser) PausedDuration() time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.totalPaused
	select {
	case <-p.resumed:
	default:
		d += time.Since(p.pausedSince)
	}
	return d
}

// CurrentPauseDuration returns how long the current pause has lasted, or 0.
func (p *Pauser) CurrentPauseDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.resumed:
		return 0
	default:
		return time.Since(p.pausedSince)
	}
}
