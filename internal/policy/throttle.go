package policy

import (
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Throttler adds an adaptive delay on top of the configured pacing. Rate
// limit responses (429, 503) and bursts of transport errors double it; a
// healthy response after a throttle signal halves it back toward zero.
type Throttler struct {
	mu          sync.Mutex
	extra       time.Duration
	consecutive int
	enabled     bool
	log         logrus.FieldLogger
}

// NewThrottler creates an adaptive throttler. A disabled throttler always
// reports zero extra delay.
func NewThrottler(enabled bool, log logrus.FieldLogger) *Throttler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Throttler{enabled: enabled, log: log}
}

// Extra returns the current adaptive delay to add before each request.
func (t *Throttler) Extra() time.Duration {
	if t == nil || !t.enabled {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.extra
}

// RecordStatus updates the throttler from a response status code.
func (t *Throttler) RecordStatus(status int) {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		t.consecutive++
		if t.grow() {
			t.log.WithFields(logrus.Fields{"status": status, "delay": t.extra}).Warn("rate limited, backing off")
		}
		return
	}
	if t.consecutive == 0 {
		return
	}
	t.consecutive = 0
	t.extra /= 2
	if t.extra < minBackoff {
		t.extra = 0
	}
	t.log.WithField("delay", t.extra).Debug("recovering from throttle")
}

// RecordError flags a transport error as a possible rate limit signal.
// Three in a row are treated like a 429.
func (t *Throttler) RecordError() {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive++
	if t.consecutive >= 3 && t.grow() {
		t.log.WithField("delay", t.extra).Warn("repeated errors, backing off")
	}
}

// grow doubles the extra delay within bounds. Caller holds t.mu.
func (t *Throttler) grow() bool {
	next := min(max(t.extra*2, minBackoff), maxBackoff)
	if next == t.extra {
		return false
	}
	t.extra = next
	return true
}
