package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvaer/dirsweep/internal/policy"
)

func newTestScheduler(sender Sender, cfg SchedulerConfig, wcfg WorkerConfig) (*Scheduler, *State, *resultSink) {
	state := NewState()
	if wcfg.Log == nil {
		wcfg.Log = quietLog()
	}
	w := NewWorker(sender, &statusClassifier{}, state, wcfg)
	sink := &resultSink{}
	if cfg.OnResult == nil {
		cfg.OnResult = sink.add
	}
	cfg.Log = quietLog()
	return NewScheduler(cfg, w, state), state, sink
}

func root() []Segment { return []Segment{RootSegment()} }

func TestSchedulerEveryJobYieldsOneResult(t *testing.T) {
	s, state, sink := newTestScheduler(statusSender("w3", "w7"), SchedulerConfig{
		Threads: 4,
		Expand:  fixedExpand(words(50)...),
	}, WorkerConfig{})

	sum := s.Run(context.Background(), root())
	require.Equal(t, ReasonCompleted, sum.Reason)
	require.NoError(t, sum.Err)
	assert.Empty(t, sum.Pending)

	require.Len(t, sink.results, 50)
	ids := make(map[uint64]bool)
	for _, r := range sink.results {
		assert.False(t, ids[r.Job.ID], "duplicate result for job %d", r.Job.ID)
		ids[r.Job.ID] = true
	}
	assert.ElementsMatch(t, []string{"w3", "w7"}, sink.paths(Found))
	assert.Len(t, sink.paths(NotFound), 48)
	assert.Equal(t, int64(50), state.Completed.Load())
	assert.Zero(t, state.Pending.Load())
	assert.Equal(t, state.ID, sum.ScanID)
}

func TestSchedulerMethodsMultiplyJobs(t *testing.T) {
	s, _, sink := newTestScheduler(statusSender(), SchedulerConfig{
		Threads: 2,
		Methods: []string{"GET", "HEAD"},
		Expand:  fixedExpand("a", "b"),
	}, WorkerConfig{})
	s.Run(context.Background(), root())
	require.Len(t, sink.results, 4)
	methods := map[string]int{}
	for _, r := range sink.results {
		methods[r.Job.Method]++
	}
	assert.Equal(t, map[string]int{"GET": 2, "HEAD": 2}, methods)
}

func TestSchedulerConcurrencyCeiling(t *testing.T) {
	var cur, peak atomic.Int64
	sender := &fakeSender{fn: func(_ context.Context, _, _ string) (*Response, error) {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		cur.Add(-1)
		return NewResponse(404, nil), nil
	}}
	s, state, sink := newTestScheduler(sender, SchedulerConfig{
		Threads: 3,
		Expand:  fixedExpand(words(60)...),
	}, WorkerConfig{})

	s.Run(context.Background(), root())
	assert.Len(t, sink.results, 60)
	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.LessOrEqual(t, state.PeakInFlight.Load(), int64(3))
	assert.Positive(t, state.PeakInFlight.Load())
}

func TestSchedulerCircuitBreakerTripsAtThreshold(t *testing.T) {
	sender := timeoutSender()
	s, state, sink := newTestScheduler(sender, SchedulerConfig{
		Threads: 1,
		Expand:  fixedExpand(words(50)...),
		Breaker: policy.NewBreaker(5, 0),
	}, WorkerConfig{Retry: fastRetry(2)})

	sum := s.Run(context.Background(), root())
	require.Equal(t, ReasonCircuitBreaker, sum.Reason)
	assert.ErrorIs(t, sum.Err, ErrCircuitBreakerTripped)
	assert.ErrorIs(t, sum.Err, policy.ErrBreakerOpen)

	errs := sink.paths(Error)
	assert.GreaterOrEqual(t, len(errs), 5, "breaker must not trip before the 5th error")
	assert.Less(t, len(sink.results), 50, "scan continued after the breaker tripped")
	for i, r := range sink.results[:5] {
		assert.Equal(t, Error, r.Outcome, "result %d", i)
		assert.Equal(t, 3, r.Attempts, "result %d: one attempt plus two retries", i)
		var te *TransportError
		require.ErrorAs(t, r.Err, &te)
		assert.True(t, te.Timeout())
	}
	assert.GreaterOrEqual(t, sender.calls.Load(), int64(15))
	assert.Equal(t, int64(len(sink.results)), state.Completed.Load())
}

func TestSchedulerStartsWithTrippedBreaker(t *testing.T) {
	breaker := policy.NewBreaker(1, 0)
	require.True(t, breaker.Record())

	sender := statusSender("a")
	s, _, sink := newTestScheduler(sender, SchedulerConfig{
		Threads: 2,
		Expand:  fixedExpand("a", "b"),
		Breaker: breaker,
	}, WorkerConfig{})

	sum := s.Run(context.Background(), root())
	assert.Equal(t, ReasonCircuitBreaker, sum.Reason)
	assert.Zero(t, sender.calls.Load())
	assert.Empty(t, sink.results)
	assert.Equal(t, root(), sum.Pending)
}

func TestSchedulerBreakerBelowThreshold(t *testing.T) {
	s, _, sink := newTestScheduler(timeoutSender(), SchedulerConfig{
		Threads: 2,
		Expand:  fixedExpand("a", "b", "c", "d"),
		Breaker: policy.NewBreaker(5, 0),
	}, WorkerConfig{Retry: fastRetry(2)})

	sum := s.Run(context.Background(), root())
	assert.Equal(t, ReasonCompleted, sum.Reason)
	assert.Len(t, sink.paths(Error), 4)
}

func TestSchedulerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender := blockingSender()
	s, state, sink := newTestScheduler(sender, SchedulerConfig{
		Threads:    2,
		MaxPending: 4,
		Expand:     fixedExpand(words(100)...),
	}, WorkerConfig{})

	go func() {
		for sender.calls.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	sum := s.Run(ctx, root())
	require.Equal(t, ReasonCancelled, sum.Reason)
	assert.ErrorIs(t, sum.Err, context.Canceled)

	require.NotEmpty(t, sink.results)
	assert.Less(t, len(sink.results), 100)
	for _, r := range sink.results {
		assert.Equal(t, Cancelled, r.Outcome, r.Job.Path)
	}
	assert.Zero(t, state.Pending.Load(), "every queued job must be collected")
	assert.Equal(t, root(), sum.Pending, "interrupted root segment is reported for resume")
}

func TestSchedulerDeadline(t *testing.T) {
	s, _, _ := newTestScheduler(blockingSender(), SchedulerConfig{
		Threads:     2,
		Expand:      fixedExpand(words(10)...),
		MaxDuration: 50 * time.Millisecond,
	}, WorkerConfig{})

	start := time.Now()
	sum := s.Run(context.Background(), root())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, ReasonDeadline, sum.Reason)
	assert.ErrorIs(t, sum.Err, ErrDeadlineExceeded)
	assert.ErrorIs(t, sum.Err, context.DeadlineExceeded)
}

func TestSchedulerSkipOnStatus(t *testing.T) {
	sender := &fakeSender{fn: func(_ context.Context, _, path string) (*Response, error) {
		if path == "w2" {
			return NewResponse(429, nil), nil
		}
		return NewResponse(404, nil), nil
	}}
	s, _, _ := newTestScheduler(sender, SchedulerConfig{
		Threads:      1,
		Expand:       fixedExpand(words(200)...),
		SkipOnStatus: []int{429},
	}, WorkerConfig{})

	sum := s.Run(context.Background(), root())
	assert.Equal(t, ReasonSkipped, sum.Reason)
	assert.True(t, errors.Is(sum.Err, ErrSkipStatus))
	assert.Less(t, sender.calls.Load(), int64(200))
}

func TestSchedulerSkipHook(t *testing.T) {
	s, _, sink := newTestScheduler(statusSender(), SchedulerConfig{
		Threads: 2,
		Expand:  fixedExpand("a", "b", "c"),
		Skip:    func(j Job) bool { return j.Path == "b" },
	}, WorkerConfig{})
	s.Run(context.Background(), root())
	assert.ElementsMatch(t, []string{"a", "c"}, sink.paths(NotFound))
}

func TestSchedulerRecursionDepthOne(t *testing.T) {
	s, _, sink := newTestScheduler(statusSender("admin", "admin/admin"), SchedulerConfig{
		Threads:  2,
		Expand:   fixedExpand("admin", "x"),
		Recurser: &dirRecurser{maxDepth: 1},
	}, WorkerConfig{})

	sum := s.Run(context.Background(), root())
	require.Equal(t, ReasonCompleted, sum.Reason)
	assert.ElementsMatch(t, []string{"admin", "admin/admin"}, sink.paths(Found))
	assert.ElementsMatch(t, []string{"x", "admin/x"}, sink.paths(NotFound))
	for _, r := range sink.results {
		assert.LessOrEqual(t, r.Job.Depth, 1, "no depth-2 jobs with max depth 1")
		if r.Job.Depth == 1 {
			assert.Equal(t, "admin/", r.Job.Dir)
			assert.Equal(t, "", r.Job.Parent)
		}
	}
}

func TestSchedulerBackpressureBoundsQueuedJobs(t *testing.T) {
	const threads, maxPending = 2, 8
	var maxOpen atomic.Int64
	var state *State
	sink := &resultSink{}
	sender := &fakeSender{fn: func(_ context.Context, _, _ string) (*Response, error) {
		return NewResponse(200, []byte("ok")), nil
	}}
	s, st, _ := newTestScheduler(sender, SchedulerConfig{
		Threads:    threads,
		MaxPending: maxPending,
		Expand:     fixedExpand(words(10)...),
		Recurser:   &dirRecurser{maxDepth: 2},
		OnResult: func(r ProbeResult) {
			if n := state.Pending.Load(); n > maxOpen.Load() {
				maxOpen.Store(n)
			}
			sink.add(r)
		},
	}, WorkerConfig{})
	state = st

	sum := s.Run(context.Background(), root())
	require.Equal(t, ReasonCompleted, sum.Reason)
	assert.Len(t, sink.results, 10+100+1000)
	assert.LessOrEqual(t, maxOpen.Load(), int64(maxPending+2*threads+2))
	assert.Equal(t, int64(1+10+100), st.Segments.Load())
}
