package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// CSVWriter writes results in CSV format.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter writes to w. closer may be nil.
func NewCSVWriter(w io.Writer, closer io.Closer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), closer: closer}
}

func (c *CSVWriter) WriteHeader() error {
	return c.w.Write([]string{"url", "path", "method", "status", "size", "words", "lines", "redirect", "depth", "outcome"})
}

func (c *CSVWriter) WriteResult(r *scanner.ProbeResult) error {
	method := r.Job.Method
	if method == "" {
		method = "GET"
	}
	return c.w.Write([]string{
		r.URL,
		r.Path(),
		method,
		strconv.Itoa(r.StatusCode),
		strconv.FormatInt(r.ContentLength, 10),
		strconv.Itoa(r.WordCount),
		strconv.Itoa(r.LineCount),
		r.RedirectURL,
		strconv.Itoa(r.Job.Depth),
		r.Outcome.String(),
	})
}

func (c *CSVWriter) WriteFooter(_ Stats) error {
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
