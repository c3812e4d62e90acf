package output

import (
	"cmp"
	"slices"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// SortedWriter buffers results and replays them sorted when WriteFooter is
// called. It wraps any other Writer.
type SortedWriter struct {
	inner   Writer
	sortBy  string
	results []scanner.ProbeResult
}

// NewSortedWriter wraps inner and buffers results for sorted replay.
func NewSortedWriter(inner Writer, sortBy string) *SortedWriter {
	return &SortedWriter{inner: inner, sortBy: sortBy}
}

func (w *SortedWriter) WriteHeader() error {
	return w.inner.WriteHeader()
}

func (w *SortedWriter) WriteResult(result *scanner.ProbeResult) error {
	w.results = append(w.results, *result)
	return nil
}

func (w *SortedWriter) WriteFooter(stats Stats) error {
	slices.SortStableFunc(w.results, func(a, b scanner.ProbeResult) int {
		switch w.sortBy {
		case "status":
			return cmp.Compare(a.StatusCode, b.StatusCode)
		case "size":
			return cmp.Compare(a.ContentLength, b.ContentLength)
		case "path":
			return cmp.Compare(a.URL, b.URL)
		}
		return 0
	})
	for i := range w.results {
		if err := w.inner.WriteResult(&w.results[i]); err != nil {
			return err
		}
	}
	return w.inner.WriteFooter(stats)
}

func (w *SortedWriter) Close() error {
	return w.inner.Close()
}
