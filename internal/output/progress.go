package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

type tracked struct {
	state      *scanner.State
	perSegment int64
}

// Progress periodically prints a one-line summary of the scans it tracks.
type Progress struct {
	w      io.Writer
	pauser *scanner.Pauser
	quiet  bool
	start  time.Time

	mu    sync.Mutex
	scans []tracked

	stop chan struct{}
	done chan struct{}
}

// NewProgress creates a progress line on w. pauser may be nil.
func NewProgress(w io.Writer, pauser *scanner.Pauser, quiet bool) *Progress {
	return &Progress{
		w:      w,
		pauser: pauser,
		quiet:  quiet,
		start:  time.Now(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Track adds a scan. perSegment is the number of jobs each directory
// segment expands to and drives the completion estimate.
func (p *Progress) Track(state *scanner.State, perSegment int) {
	p.mu.Lock()
	p.scans = append(p.scans, tracked{state: state, perSegment: int64(perSegment)})
	p.mu.Unlock()
}

// Start begins printing every 500ms until Stop.
func (p *Progress) Start() {
	if p.quiet {
		close(p.done)
		return
	}
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fmt.Fprint(p.w, "\r\033[K"+p.Line())
			case <-p.stop:
				fmt.Fprint(p.w, "\r\033[K")
				return
			}
		}
	}()
}

// Stop ends the display and clears the line.
func (p *Progress) Stop() {
	close(p.stop)
	<-p.done
}

// Line renders the current status.
func (p *Progress) Line() string {
	p.mu.Lock()
	var completed, expected, found, filtered, errs, segments int64
	for _, s := range p.scans {
		completed += s.state.Completed.Load()
		found += s.state.Found.Load()
		filtered += s.state.Filtered.Load()
		errs += s.state.Errors.Load()
		seg := s.state.Segments.Load()
		segments += seg
		expected += seg * s.perSegment
	}
	p.mu.Unlock()

	elapsed := time.Since(p.start)
	if p.pauser != nil {
		elapsed -= p.pauser.PausedDuration()
	}
	rate := float64(0)
	if elapsed > 0 {
		rate = float64(completed) / elapsed.Seconds()
	}
	pct := float64(0)
	if expected > 0 {
		pct = min(float64(completed)/float64(expected)*100, 100)
	}

	line := fmt.Sprintf("[%3.0f%%] %d/%d | %.0f req/s | Found: %d | Filtered: %d | Errors: %d | Dirs: %d",
		pct, completed, expected, rate, found, filtered, errs, segments)
	if rate > 0 && completed < expected {
		eta := time.Duration(float64(expected-completed) / rate * float64(time.Second))
		line += " | ETA: " + eta.Round(time.Second).String()
	}
	if p.pauser.IsPaused() {
		line += fmt.Sprintf(" | PAUSED %s (press Enter to resume)", p.pauser.CurrentPauseDuration().Round(time.Second))
	}
	return line
}
