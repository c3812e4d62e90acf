package runner

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/filter"
	"github.com/maxvaer/dirsweep/internal/output"
	"github.com/maxvaer/dirsweep/internal/policy"
	"github.com/maxvaer/dirsweep/internal/recursion"
	"github.com/maxvaer/dirsweep/internal/resume"
	"github.com/maxvaer/dirsweep/internal/scanner"
)

// resumeInterval is how often an in-progress scan is checkpointed.
const resumeInterval = 10 * time.Second

// scanTarget runs the engine against one target. An error means the target
// could not be scanned at all; stop conditions during the scan are reported
// in the returned stats.
func (e *env) scanTarget(ctx context.Context, idx int, target string) (output.ScanStats, error) {
	opts := e.opts
	log := e.log.WithField("target", target)

	req, err := scanner.NewRequester(requesterConfig(opts, target))
	if err != nil {
		return output.ScanStats{}, fmt.Errorf("creating requester: %w", err)
	}
	retry := retryConfig(opts)
	breaker := policy.NewBreaker(opts.BreakerThreshold(), opts.ErrorWindow)
	if err := preflight(ctx, req, retry); err != nil {
		// Without a breaker an unreachable target is skipped outright.
		// With one, the failure counts as an error and the breaker decides.
		if breaker == nil || ctx.Err() != nil {
			return output.ScanStats{}, err
		}
		log.WithError(err).Warn("preflight failed, counting it towards the error threshold")
		breaker.Record()
	}

	limiter := policy.NewLimiter(limiterConfig(opts))
	throttler := policy.NewThrottler(opts.AdaptiveThrottle, log)
	clsCfg := classifierConfig(opts)
	clsCfg.Pace = func(ctx context.Context) error {
		return limiter.Wait(ctx, throttler.Extra())
	}

	state := scanner.NewState()
	classifier, err := filter.NewClassifier(clsCfg, req, state, log)
	if err != nil {
		return output.ScanStats{}, err
	}
	recCfg, err := recursionConfig(opts, log)
	if err != nil {
		return output.ScanStats{}, err
	}
	ctrl := recursion.New(recCfg, e.compiler)
	dirs := &directoryLog{depths: make(map[string]int)}

	seeds := ctrl.Seed(opts.Subdirs)
	rs, err := e.loadResume(idx, target)
	if err != nil {
		return output.ScanStats{}, err
	}
	if saved := rs.directories(); len(saved) > 0 {
		seeds = resumeSeeds(ctrl, seeds, saved)
		e.statusf("[+] Resuming %s: %d requests already done, %d directories queued\n",
			target, rs.Completed(), len(seeds))
	}
	dirs.add(seeds...)

	worker := scanner.NewWorker(req, classifier, state, scanner.WorkerConfig{
		Retry:      retry,
		Limiter:    limiter,
		Throttler:  throttler,
		Pauser:     e.pauser,
		Log:        log,
		RequestLog: e.reqLog,
	})

	reportFailed := false
	sched := scanner.NewScheduler(scanner.SchedulerConfig{
		Threads:      opts.Threads,
		MaxPending:   opts.MaxPending,
		Methods:      opts.Methods,
		Expand:       ctrl.Expand,
		Recurser:     recordingRecurser{Recurser: ctrl, log: dirs},
		Breaker:      breaker,
		MaxDuration:  opts.MaxTime,
		SkipOnStatus: opts.SkipOnStatus,
		Skip: func(j scanner.Job) bool {
			return rs.IsCompleted(resume.Key(j.Method, j.Path))
		},
		OnResult: func(r scanner.ProbeResult) {
			e.metrics.Observe(target, &r)
			if r.Outcome == scanner.Cancelled {
				return
			}
			rs.record(&r)
			if err := e.report(&r); err != nil && !reportFailed {
				reportFailed = true
				log.WithError(err).Error("writing result")
			}
			if r.Outcome == scanner.Found && e.hook != nil {
				e.hook.Run(ctx, &r)
			}
		},
		Log: log,
	}, worker, state)

	perSegment := e.compiler.Len() * max(len(opts.Methods), 1)
	e.progress.Track(state, perSegment)

	stopCheckpoint := e.checkpoint(rs, dirs)
	sum := sched.Run(ctx, seeds)
	stopCheckpoint()

	e.metrics.ScanFinished(target, sum)
	stats := output.NewScanStats(target, sum)
	log.WithFields(logrus.Fields{
		"scan_id":  sum.ScanID,
		"reason":   sum.Reason.String(),
		"found":    sum.Counters.Found,
		"requests": sum.Counters.Dispatched,
	}).Info("scan finished")

	if opts.ResumeFile != "" {
		if sum.Reason == scanner.ReasonCompleted {
			if err := rs.Remove(); err != nil {
				log.WithError(err).Warn("removing resume file")
			}
		} else {
			rs.ScanID = sum.ScanID
			rs.SetDirectories(dirs.snapshot())
			if err := rs.Save(); err != nil {
				log.WithError(err).Warn("saving resume file")
			} else {
				e.statusf("[*] Progress saved to %s, rerun with --resume-file to continue\n", e.resumePath(idx))
			}
		}
	}

	if opts.Tree && ctrl.Visited().Len() > 1 {
		e.mu.Lock()
		if e.multi {
			fmt.Fprintf(os.Stderr, "%s\n%s", e.clear, target)
		}
		_ = output.PrintTree(os.Stderr, ctrl.Visited().Keys())
		e.mu.Unlock()
	}
	return stats, nil
}

// preflight checks that the target answers at all before any path is
// probed, retrying transport failures like a normal probe.
func preflight(ctx context.Context, req *scanner.Requester, retry policy.RetryConfig) error {
	_, _, err := policy.Retry(ctx, retry, func() (*scanner.Response, error) {
		resp, err := req.Do(ctx, http.MethodGet, "")
		if err != nil && ctx.Err() != nil {
			return nil, policy.Permanent(err)
		}
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("preflight request to %s failed: %w", req.BaseURL(), err)
	}
	return nil
}

// resumePath derives the per-target resume file when scanning several
// targets.
func (e *env) resumePath(idx int) string {
	if !e.multi {
		return e.opts.ResumeFile
	}
	return fmt.Sprintf("%s.%d", e.opts.ResumeFile, idx)
}

// loadResume returns the saved state for target, or a fresh one. Without
// --resume-file the wrapper is empty and its bookkeeping calls do nothing.
func (e *env) loadResume(idx int, target string) (*resumeState, error) {
	if e.opts.ResumeFile == "" {
		return &resumeState{}, nil
	}
	path := e.resumePath(idx)
	prev, err := resume.Load(path)
	if err != nil {
		return nil, err
	}
	if prev.Matches(target) {
		return &resumeState{State: prev}, nil
	}
	return &resumeState{State: resume.New(path, target)}, nil
}

// checkpoint saves the resume state periodically until the returned stop
// function is called.
func (e *env) checkpoint(rs *resumeState, dirs *directoryLog) (stop func()) {
	if rs.State == nil {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Go(func() {
		t := time.NewTicker(resumeInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				rs.SetDirectories(dirs.snapshot())
				if err := rs.Save(); err != nil {
					e.log.WithError(err).Warn("checkpointing resume file")
				}
			case <-done:
				return
			}
		}
	})
	return func() {
		close(done)
		wg.Wait()
	}
}

// resumeSeeds replaces the fresh seeds with every directory queued by the
// previous session, shallowest first. Completed jobs inside them are
// skipped by the scheduler.
func resumeSeeds(ctrl *recursion.Controller, fresh []scanner.Segment, saved map[string]int) []scanner.Segment {
	all := maps.Clone(saved)
	for _, s := range fresh {
		if _, ok := all[s.Dir]; !ok {
			all[s.Dir] = s.Depth
		}
	}
	ctrl.Restore(slices.Collect(maps.Keys(all)))

	segs := make([]scanner.Segment, 0, len(all))
	for dir, depth := range all {
		segs = append(segs, scanner.Segment{Dir: dir, Depth: depth})
	}
	slices.SortFunc(segs, func(a, b scanner.Segment) int {
		return cmp.Or(cmp.Compare(a.Depth, b.Depth), cmp.Compare(a.Dir, b.Dir))
	})
	return segs
}

// resumeState makes resume bookkeeping optional.
type resumeState struct {
	*resume.State
}

func (r *resumeState) IsCompleted(key string) bool {
	return r.State != nil && r.State.IsCompleted(key)
}

func (r *resumeState) MarkCompleted(key string) {
	if r.State != nil {
		r.State.MarkCompleted(key)
	}
}

// record marks a finished job as done. Failed requests stay open so a
// resumed session retries them.
func (r *resumeState) record(res *scanner.ProbeResult) {
	if res.Outcome == scanner.Cancelled || res.Outcome == scanner.Error {
		return
	}
	r.MarkCompleted(resume.Key(res.Job.Method, res.Job.Path))
}

func (r *resumeState) directories() map[string]int {
	if r.State == nil {
		return nil
	}
	return r.State.Directories
}

func (r *resumeState) Completed() int {
	if r.State == nil {
		return 0
	}
	return r.State.Completed()
}

// directoryLog remembers the depth of every queued segment.
type directoryLog struct {
	mu     sync.Mutex
	depths map[string]int
}

func (d *directoryLog) add(segs ...scanner.Segment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range segs {
		if _, ok := d.depths[s.Dir]; !ok {
			d.depths[s.Dir] = s.Depth
		}
	}
}

func (d *directoryLog) snapshot() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.depths)
}

// recordingRecurser logs the segments a Recurser opens.
type recordingRecurser struct {
	scanner.Recurser
	log *directoryLog
}

func (r recordingRecurser) Recurse(res *scanner.ProbeResult) []scanner.Segment {
	segs := r.Recurser.Recurse(res)
	r.log.add(segs...)
	return segs
}
