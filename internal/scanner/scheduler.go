package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/policy"
)

var (
	// ErrCircuitBreakerTripped ends a target scan after too many errors.
	ErrCircuitBreakerTripped = errors.New("circuit breaker tripped")
	// ErrDeadlineExceeded ends a scan once the maximum duration elapsed.
	ErrDeadlineExceeded = fmt.Errorf("maximum scan time reached: %w", context.DeadlineExceeded)
	// ErrSkipStatus ends a target scan when a skip-on status is seen.
	ErrSkipStatus = errors.New("skip-on status received")
)

// Reason says why a scan ended.
type Reason int

const (
	ReasonCompleted Reason = iota
	ReasonCancelled
	ReasonDeadline
	ReasonCircuitBreaker
	ReasonSkipped
)

func (r Reason) String() string {
	switch r {
	case ReasonCompleted:
		return "completed"
	case ReasonCancelled:
		return "cancelled"
	case ReasonDeadline:
		return "deadline"
	case ReasonCircuitBreaker:
		return "circuit-breaker"
	case ReasonSkipped:
		return "skipped"
	}
	return "unknown"
}

// Recurser decides which found results become new directory segments.
type Recurser interface {
	Recurse(r *ProbeResult) []Segment
}

// SchedulerConfig configures one target scan.
type SchedulerConfig struct {
	Threads    int
	MaxPending int      // bound on queued jobs; default Threads*4
	Methods    []string // default GET

	// Expand compiles the dictionary for a directory ("" = root).
	Expand func(dir string) []string

	Recurser     Recurser
	Breaker      *policy.Breaker
	MaxDuration  time.Duration
	SkipOnStatus []int

	// Skip drops a job before it is queued; used when resuming.
	Skip func(Job) bool
	// OnResult receives every result, in collection order, from a single
	// goroutine.
	OnResult func(ProbeResult)

	Log logrus.FieldLogger
}

// Summary reports how a scan ended.
type Summary struct {
	ScanID   string
	Reason   Reason
	Err      error
	Pending  []Segment // segments never fully expanded
	Counters Counters
	Elapsed  time.Duration
}

// Scheduler drains a FIFO of directory segments through a bounded worker
// pool. Segments are expanded into jobs lazily, when they reach the head
// of the queue, so recursion never materialises more than MaxPending jobs.
type Scheduler struct {
	cfg    SchedulerConfig
	worker *Worker
	state  *State

	mu       sync.Mutex
	cond     *sync.Cond
	segments []Segment
	pending  []Segment // interrupted segments
	open     int       // jobs queued or in flight whose result is not collected
	nextID   atomic.Uint64

	cancel context.CancelCauseFunc
}

// NewScheduler creates a scheduler for one target.
func NewScheduler(cfg SchedulerConfig, worker *Worker, state *State) *Scheduler {
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = cfg.Threads * 4
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{http.MethodGet}
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	s := &Scheduler{cfg: cfg, worker: worker, state: state}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Run scans the seed segments and everything the Recurser adds until the
// queue drains or a stop condition fires. Every queued job yields exactly
// one result passed to OnResult.
func (s *Scheduler) Run(parent context.Context, seeds []Segment) Summary {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)
	s.cancel = cancel
	if s.cfg.Breaker.Tripped() {
		cancel(s.breakerErr())
	}
	if s.cfg.MaxDuration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeoutCause(ctx, s.cfg.MaxDuration, ErrDeadlineExceeded)
		defer stop()
	}

	s.mu.Lock()
	s.segments = append(s.segments, seeds...)
	s.mu.Unlock()

	// Wake the feeder if it is waiting for segments when the scan stops.
	unregister := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer unregister()

	jobs := make(chan Job, s.cfg.MaxPending)
	results := make(chan ProbeResult, s.cfg.Threads)

	var wg sync.WaitGroup
	wg.Go(func() { s.feed(ctx, jobs) })
	for range s.cfg.Threads {
		wg.Go(func() {
			for job := range jobs {
				if ctx.Err() != nil {
					r := cancelled(job, context.Cause(ctx))
					s.state.Record(Cancelled)
					results <- r
					continue
				}
				results <- s.worker.Probe(ctx, job)
			}
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		s.collect(ctx, r)
	}

	return s.summary(ctx)
}

// feed expands segments into jobs until no work remains or ctx ends.
func (s *Scheduler) feed(ctx context.Context, jobs chan<- Job) {
	defer close(jobs)
	for {
		seg, ok := s.next(ctx)
		if !ok {
			return
		}
		if !s.expand(ctx, seg, jobs) {
			s.mu.Lock()
			s.pending = append(s.pending, seg)
			s.mu.Unlock()
			return
		}
	}
}

// next pops the head segment, waiting while jobs are still open since
// their results may add more segments.
func (s *Scheduler) next(ctx context.Context) (Segment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.segments) == 0 {
		if s.open == 0 || ctx.Err() != nil {
			return Segment{}, false
		}
		s.cond.Wait()
	}
	if ctx.Err() != nil {
		return Segment{}, false
	}
	seg := s.segments[0]
	s.segments = s.segments[1:]
	return seg, true
}

// expand queues the jobs of one segment in dictionary order. It returns
// false if ctx ended before the segment was fully queued.
func (s *Scheduler) expand(ctx context.Context, seg Segment, jobs chan<- Job) bool {
	s.state.Segments.Add(1)
	paths := s.cfg.Expand(seg.Dir)
	s.cfg.Log.WithFields(logrus.Fields{
		"dir":   seg.Dir,
		"depth": seg.Depth,
		"paths": len(paths),
	}).Debug("expanding segment")

	for _, p := range paths {
		for _, m := range s.cfg.Methods {
			job := Job{
				ID:     s.nextID.Add(1),
				Method: m,
				Path:   p,
				Dir:    seg.Dir,
				Depth:  seg.Depth,
				Parent: seg.Parent,
			}
			if s.cfg.Skip != nil && s.cfg.Skip(job) {
				continue
			}

			s.mu.Lock()
			s.open++
			s.mu.Unlock()
			s.state.Pending.Add(1)

			select {
			case jobs <- job:
			case <-ctx.Done():
				s.mu.Lock()
				s.open--
				s.mu.Unlock()
				s.state.Pending.Add(-1)
				return false
			}
		}
	}
	return true
}

// collect runs on the Run goroutine only.
func (s *Scheduler) collect(ctx context.Context, r ProbeResult) {
	if r.Outcome == Error && s.cfg.Breaker.Record() {
		s.cfg.Log.WithField("errors", s.cfg.Breaker.Total()).Warn("circuit breaker tripped")
		s.cancel(s.breakerErr())
	}
	if r.Outcome != Error && r.Outcome != Cancelled && slices.Contains(s.cfg.SkipOnStatus, r.StatusCode) {
		s.cancel(fmt.Errorf("%w: %d", ErrSkipStatus, r.StatusCode))
	}

	var segs []Segment
	if r.Outcome == Found && s.cfg.Recurser != nil {
		segs = s.cfg.Recurser.Recurse(&r)
	}

	if s.cfg.OnResult != nil {
		s.cfg.OnResult(r)
	}

	s.mu.Lock()
	s.segments = append(s.segments, segs...)
	s.open--
	s.cond.Broadcast()
	s.mu.Unlock()
	s.state.Pending.Add(-1)
}

func (s *Scheduler) breakerErr() error {
	return fmt.Errorf("%w: %w", ErrCircuitBreakerTripped, s.cfg.Breaker.Err())
}

func (s *Scheduler) summary(ctx context.Context) Summary {
	sum := Summary{
		ScanID:   s.state.ID,
		Counters: s.state.Snapshot(),
		Elapsed:  s.state.Elapsed(),
	}

	s.mu.Lock()
	sum.Pending = append(slices.Clone(s.pending), s.segments...)
	s.mu.Unlock()

	cause := context.Cause(ctx)
	if ctx.Err() == nil {
		cause = nil
	}
	sum.Err = cause
	switch {
	case cause == nil:
		sum.Reason = ReasonCompleted
	case errors.Is(cause, ErrCircuitBreakerTripped):
		sum.Reason = ReasonCircuitBreaker
	case errors.Is(cause, ErrSkipStatus):
		sum.Reason = ReasonSkipped
	case errors.Is(cause, context.DeadlineExceeded):
		sum.Reason = ReasonDeadline
	default:
		sum.Reason = ReasonCancelled
	}
	return sum
}
