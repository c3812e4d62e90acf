package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

func TestObserve(t *testing.T) {
	r := New()
	r.Observe("http://a", &scanner.ProbeResult{Outcome: scanner.Found, Attempts: 1, Duration: 20 * time.Millisecond})
	r.Observe("http://a", &scanner.ProbeResult{Outcome: scanner.NotFound, Attempts: 1})
	r.Observe("http://a", &scanner.ProbeResult{Outcome: scanner.Error, Attempts: 3})
	r.Observe("http://b", &scanner.ProbeResult{Outcome: scanner.Found, Attempts: 2})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.probes.WithLabelValues("http://a", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.probes.WithLabelValues("http://a", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.attempts.WithLabelValues("http://a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.attempts.WithLabelValues("http://b")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.latency))
}

func TestScanFinished(t *testing.T) {
	r := New()
	r.ScanFinished("http://a", scanner.Summary{Reason: scanner.ReasonCircuitBreaker, Elapsed: 3 * time.Second})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.scans.WithLabelValues("http://a", "circuit-breaker")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.duration.WithLabelValues("http://a")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.Observe("http://a", &scanner.ProbeResult{Outcome: scanner.Found, Attempts: 1})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `dirsweep_probes_total{outcome="found",target="http://a"} 1`), string(body))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Observe("x", &scanner.ProbeResult{})
	r.ScanFinished("x", scanner.Summary{})
}
