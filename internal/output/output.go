// Package output renders probe results and scan summaries.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// ScanStats summarises one finished target scan.
type ScanStats struct {
	ScanID   string           `json:"scan_id"`
	Target   string           `json:"target"`
	Reason   string           `json:"reason"`
	Error    string           `json:"error,omitempty"`
	Pending  []string         `json:"pending,omitempty"`
	Counters scanner.Counters `json:"counters"`
	Duration time.Duration    `json:"duration_ns"`
}

// NewScanStats converts a scheduler summary.
func NewScanStats(target string, sum scanner.Summary) ScanStats {
	s := ScanStats{
		ScanID:   sum.ScanID,
		Target:   target,
		Reason:   sum.Reason.String(),
		Counters: sum.Counters,
		Duration: sum.Elapsed,
	}
	if sum.Err != nil {
		s.Error = sum.Err.Error()
	}
	for _, seg := range sum.Pending {
		s.Pending = append(s.Pending, "/"+seg.Dir)
	}
	return s
}

// Stats holds aggregate statistics for a whole run.
type Stats struct {
	Scans    []ScanStats
	Duration time.Duration
}

// Totals sums the counters of every scan.
func (s Stats) Totals() scanner.Counters {
	var t scanner.Counters
	for _, sc := range s.Scans {
		c := sc.Counters
		t.Dispatched += c.Dispatched
		t.Completed += c.Completed
		t.Found += c.Found
		t.NotFound += c.NotFound
		t.Filtered += c.Filtered
		t.Errors += c.Errors
		t.Cancelled += c.Cancelled
		t.PeakInFlight = max(t.PeakInFlight, c.PeakInFlight)
		t.Segments += c.Segments
		t.CalibrationRequests += c.CalibrationRequests
		t.Retries += c.Retries
	}
	return t
}

// RequestsPerSec is the dispatch rate over the whole run.
func (s Stats) RequestsPerSec() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Totals().Dispatched) / s.Duration.Seconds()
}

// Writer is implemented by each output format. Callers serialise calls.
type Writer interface {
	WriteHeader() error
	WriteResult(result *scanner.ProbeResult) error
	WriteFooter(stats Stats) error
	Close() error
}

// Options selects and configures a Writer.
type Options struct {
	Format  string // text, json, csv
	File    string // empty = stdout
	NoColor bool
	Quiet   bool
	SortBy  string // status, path, size; empty = arrival order
}

// New builds the writer described by opts.
func New(opts Options) (Writer, error) {
	w, closer, err := open(opts.File)
	if err != nil {
		return nil, err
	}
	var out Writer
	switch opts.Format {
	case "", "text":
		out = NewTextWriter(w, closer, opts.NoColor || opts.File != "", opts.Quiet)
	case "json":
		out = NewJSONWriter(w, closer)
	case "csv":
		out = NewCSVWriter(w, closer)
	default:
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("unknown output format %q", opts.Format)
	}
	if opts.SortBy != "" {
		out = NewSortedWriter(out, opts.SortBy)
	}
	return out, nil
}

func open(file string) (io.Writer, io.Closer, error) {
	if file == "" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(file)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f, nil
}
