package scanner

import (
	"net/http"
	"time"
)

// Outcome is the classification of a probe.
type Outcome int

const (
	NotFound Outcome = iota
	Found
	Filtered
	Error
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	case Filtered:
		return "filtered"
	case Error:
		return "error"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// ProbeResult holds the outcome of a single path probe. It is not modified
// after the worker returns it.
type ProbeResult struct {
	Job           Job
	URL           string
	StatusCode    int
	ContentLength int64
	Hash          uint64 // murmur3 of the body
	WordCount     int
	LineCount     int
	RedirectURL   string
	Header        http.Header
	Body          []byte // only retained when the worker is configured to keep bodies
	Duration      time.Duration
	Attempts      int
	Outcome       Outcome
	Reason        string // why the result was filtered or not found
	Err           error
}

// Path returns the request path with a leading slash.
func (r *ProbeResult) Path() string { return "/" + r.Job.Path }

func (r *ProbeResult) fill(resp *Response, keepBody bool) {
	r.URL = resp.URL
	r.StatusCode = resp.StatusCode
	r.ContentLength = resp.ContentLength
	r.Hash = resp.Hash
	r.WordCount = resp.WordCount
	r.LineCount = resp.LineCount
	r.RedirectURL = resp.RedirectURL
	r.Header = resp.Header
	r.Duration = resp.Duration
	if keepBody {
		r.Body = resp.Body
	}
}

func cancelled(job Job, err error) ProbeResult {
	return ProbeResult{Job: job, Outcome: Cancelled, Err: err}
}
