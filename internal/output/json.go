package output

import (
	"encoding/json"
	"io"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

type jsonEntry struct {
	Method        string `json:"method"`
	URL           string `json:"url"`
	Path          string `json:"path"`
	StatusCode    int    `json:"status"`
	ContentLength int64  `json:"size"`
	Words         int    `json:"words"`
	Lines         int    `json:"lines"`
	RedirectURL   string `json:"redirect,omitempty"`
	Depth         int    `json:"depth"`
	Parent        string `json:"parent,omitempty"`
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
}

type jsonDocument struct {
	Results []jsonEntry `json:"results"`
	Scans   []ScanStats `json:"scans"`
}

// JSONWriter buffers results and writes one JSON document at the end.
type JSONWriter struct {
	w      io.Writer
	closer io.Closer
	doc    jsonDocument
}

// NewJSONWriter writes to w. closer may be nil.
func NewJSONWriter(w io.Writer, closer io.Closer) *JSONWriter {
	return &JSONWriter{w: w, closer: closer, doc: jsonDocument{Results: []jsonEntry{}}}
}

func (j *JSONWriter) WriteHeader() error { return nil }

func (j *JSONWriter) WriteResult(r *scanner.ProbeResult) error {
	method := r.Job.Method
	if method == "" {
		method = "GET"
	}
	j.doc.Results = append(j.doc.Results, jsonEntry{
		Method:        method,
		URL:           r.URL,
		Path:          r.Path(),
		StatusCode:    r.StatusCode,
		ContentLength: r.ContentLength,
		Words:         r.WordCount,
		Lines:         r.LineCount,
		RedirectURL:   r.RedirectURL,
		Depth:         r.Job.Depth,
		Parent:        r.Job.Parent,
		Outcome:       r.Outcome.String(),
		Reason:        r.Reason,
		DurationMS:    r.Duration.Milliseconds(),
	})
	return nil
}

func (j *JSONWriter) WriteFooter(stats Stats) error {
	j.doc.Scans = stats.Scans
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(j.doc)
}

func (j *JSONWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
