package scanner

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/policy"
)

// fakeSender answers requests from fn and counts calls.
type fakeSender struct {
	calls atomic.Int64
	fn    func(ctx context.Context, method, path string) (*Response, error)
}

func (f *fakeSender) Do(ctx context.Context, method, path string) (*Response, error) {
	f.calls.Add(1)
	return f.fn(ctx, method, path)
}

// statusSender returns 200 for the listed paths and 404 otherwise.
func statusSender(found ...string) *fakeSender {
	return &fakeSender{fn: func(_ context.Context, _, path string) (*Response, error) {
		for _, f := range found {
			if f == path {
				return NewResponse(200, []byte("hit "+path)), nil
			}
		}
		return NewResponse(404, []byte("not found")), nil
	}}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func timeoutSender() *fakeSender {
	return &fakeSender{fn: func(_ context.Context, _, path string) (*Response, error) {
		return nil, &TransportError{URL: "http://target/" + path, Err: timeoutErr{}}
	}}
}

// blockingSender blocks every request until ctx ends.
func blockingSender() *fakeSender {
	return &fakeSender{fn: func(ctx context.Context, _, _ string) (*Response, error) {
		<-ctx.Done()
		return nil, &TransportError{Err: ctx.Err()}
	}}
}

// statusClassifier marks 2xx as Found and everything else NotFound.
type statusClassifier struct {
	mu         sync.Mutex
	calibrated map[string]int
}

func (c *statusClassifier) Calibrate(_ context.Context, dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calibrated == nil {
		c.calibrated = make(map[string]int)
	}
	c.calibrated[dir]++
}

func (c *statusClassifier) Classify(_ string, resp *Response) (Outcome, string) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Found, ""
	}
	return NotFound, "status"
}

// dirRecurser recurses into every found path once, up to maxDepth.
type dirRecurser struct {
	mu       sync.Mutex
	maxDepth int
	seen     map[string]bool
}

func (d *dirRecurser) Recurse(r *ProbeResult) []Segment {
	if r.Job.Depth >= d.maxDepth {
		return nil
	}
	dir := NormalizeDir(r.Job.Path)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[dir] {
		return nil
	}
	d.seen[dir] = true
	return []Segment{{Dir: dir, Depth: r.Job.Depth + 1, Parent: r.Job.Dir}}
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fastRetry(n int) policy.RetryConfig {
	return policy.RetryConfig{MaxRetries: n, Strategy: policy.Constant, InitialDelay: time.Millisecond}
}

// fixedExpand returns the same words under every directory.
func fixedExpand(words ...string) func(string) []string {
	return func(dir string) []string {
		out := make([]string, len(words))
		for i, w := range words {
			out[i] = dir + w
		}
		return out
	}
}

// resultSink collects results from OnResult.
type resultSink struct {
	mu      sync.Mutex
	results []ProbeResult
}

func (s *resultSink) add(r ProbeResult) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
}

func (s *resultSink) paths(o Outcome) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.results {
		if r.Outcome == o {
			out = append(out, r.Job.Path)
		}
	}
	return out
}

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "w" + strconv.Itoa(i)
	}
	return out
}
