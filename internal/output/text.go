package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// TextWriter writes coloured, human-readable lines.
type TextWriter struct {
	w       io.Writer
	closer  io.Closer
	footer  io.Writer
	noColor bool
	quiet   bool
}

// NewTextWriter writes results to w. closer may be nil. noColor disables
// styling, which is also the right choice for files.
func NewTextWriter(w io.Writer, closer io.Closer, noColor, quiet bool) *TextWriter {
	return &TextWriter{w: w, closer: closer, footer: os.Stderr, noColor: noColor, quiet: quiet}
}

func (t *TextWriter) WriteHeader() error {
	if t.quiet {
		return nil
	}
	_, err := fmt.Fprintln(t.w, t.style(pterm.NewStyle(pterm.FgGray), "Code      Size  URL"))
	return err
}

func (t *TextWriter) WriteResult(result *scanner.ProbeResult) error {
	line := fmt.Sprintf("%s  %8d  ", t.status(result.StatusCode), result.ContentLength)
	if m := result.Job.Method; m != "" && m != "GET" {
		line += "[" + m + "] "
	}
	line += result.URL
	if result.URL == "" {
		line += result.Path()
	}
	if result.RedirectURL != "" {
		line += " -> " + result.RedirectURL
	}
	if result.Outcome != scanner.Found {
		note := result.Outcome.String()
		if result.Reason != "" {
			note += ": " + result.Reason
		} else if result.Err != nil {
			note += ": " + result.Err.Error()
		}
		line += "  " + t.style(pterm.NewStyle(pterm.FgGray), "("+note+")")
	}
	_, err := fmt.Fprintln(t.w, line)
	return err
}

func (t *TextWriter) WriteFooter(stats Stats) error {
	if t.quiet {
		return nil
	}
	for _, s := range stats.Scans {
		if s.Reason == scanner.ReasonCompleted.String() {
			continue
		}
		msg := fmt.Sprintf("Scan of %s stopped (%s)", s.Target, s.Reason)
		if s.Error != "" {
			msg += ": " + s.Error
		}
		if len(s.Pending) > 0 {
			msg += fmt.Sprintf(", %d directories left unscanned", len(s.Pending))
		}
		fmt.Fprintln(t.footer, t.style(pterm.NewStyle(pterm.FgYellow), msg))
	}
	tot := stats.Totals()
	_, err := fmt.Fprintf(t.footer,
		"\nCompleted: %d requests | Found: %d | Filtered: %d | Errors: %d | Duration: %s | %.1f req/s\n",
		tot.Dispatched, tot.Found, tot.Filtered, tot.Errors,
		stats.Duration.Round(time.Millisecond), stats.RequestsPerSec(),
	)
	return err
}

func (t *TextWriter) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

func (t *TextWriter) status(code int) string {
	s := fmt.Sprintf("%3d", code)
	if code == 0 {
		s = "---"
	}
	return t.style(statusStyle(code), s)
}

func (t *TextWriter) style(st *pterm.Style, s string) string {
	if t.noColor || st == nil {
		return s
	}
	return st.Sprint(s)
}

func statusStyle(code int) *pterm.Style {
	switch {
	case code >= 200 && code < 300:
		return pterm.NewStyle(pterm.FgGreen)
	case code >= 300 && code < 400:
		return pterm.NewStyle(pterm.FgCyan)
	case code >= 400 && code < 500:
		return pterm.NewStyle(pterm.FgYellow)
	case code >= 500:
		return pterm.NewStyle(pterm.FgRed)
	}
	return nil
}
