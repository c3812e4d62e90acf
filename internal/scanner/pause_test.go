package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauser_ToggleState(t *testing.T) {
	p := NewPauser()
	require.False(t, p.IsPaused())

	assert.True(t, p.Toggle(), "first toggle pauses")
	assert.True(t, p.IsPaused())
	assert.False(t, p.Toggle(), "second toggle resumes")
	assert.False(t, p.IsPaused())
	assert.Zero(t, p.CurrentPauseDuration())
}

func TestPauser_RunningNeverBlocks(t *testing.T) {
	p := NewPauser()
	done := make(chan error, 1)
	go func() { done <- p.Wait(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait blocked on a running pauser")
	}
}

func TestPauser_GateReleasesAllWaiters(t *testing.T) {
	p := NewPauser()
	p.Toggle()

	const waiters = 8
	var (
		wg       sync.WaitGroup
		released = make(chan struct{}, waiters)
	)
	for range waiters {
		wg.Go(func() {
			if p.Wait(context.Background()) == nil {
				released <- struct{}{}
			}
		})
	}

	select {
	case <-released:
		t.Fatal("waiter passed a paused gate")
	case <-time.After(50 * time.Millisecond):
	}

	p.Toggle()
	waitTimeout(t, &wg, 2*time.Second)
	assert.Len(t, released, waiters)
}

func TestPauser_AccumulatesPausedTime(t *testing.T) {
	p := NewPauser()
	for range 2 {
		p.Toggle()
		time.Sleep(40 * time.Millisecond)
		assert.GreaterOrEqual(t, p.CurrentPauseDuration(), 30*time.Millisecond)
		p.Toggle()
	}
	total := p.PausedDuration()
	assert.GreaterOrEqual(t, total, 70*time.Millisecond)
	assert.Less(t, total, time.Second)

	// An ongoing pause counts towards the total.
	p.Toggle()
	time.Sleep(20 * time.Millisecond)
	assert.Greater(t, p.PausedDuration(), total)
}

func TestPauser_WaitObservesCancellation(t *testing.T) {
	p := NewPauser()
	p.Toggle()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Wait(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe cancellation while paused")
	}
}

func TestPauser_ConcurrentToggleAndWait(t *testing.T) {
	p := NewPauser()
	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			for range 100 {
				_ = p.Wait(context.Background())
			}
		})
	}
	for range 10 {
		p.Toggle()
		time.Sleep(2 * time.Millisecond)
	}
	if p.IsPaused() {
		p.Toggle()
	}
	waitTimeout(t, &wg, 5*time.Second)
}

func TestPauser_Nil(t *testing.T) {
	var p *Pauser
	assert.NoError(t, p.Wait(context.Background()))
	assert.False(t, p.IsPaused())
	assert.Zero(t, p.PausedDuration())
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("goroutines did not finish")
	}
}
