// Package metrics exposes scan progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/maxvaer/dirsweep/internal/scanner"
)

// Recorder collects per-target probe and scan metrics on its own registry.
// A nil Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	probes   *prometheus.CounterVec
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	scans    *prometheus.CounterVec
	duration *prometheus.GaugeVec
}

// New creates a recorder and registers its metrics.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dirsweep_probes_total",
			Help: "Probes completed, by target and outcome.",
		}, []string{"target", "outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dirsweep_request_attempts_total",
			Help: "HTTP requests sent for probes, including retries.",
		}, []string{"target"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dirsweep_response_seconds",
			Help:    "Response time of successful probes.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"target"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dirsweep_scans_total",
			Help: "Finished target scans, by termination reason.",
		}, []string{"target", "reason"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dirsweep_scan_duration_seconds",
			Help: "Wall-clock duration of the last scan of a target.",
		}, []string{"target"}),
	}
	r.registry.MustRegister(r.probes, r.attempts, r.latency, r.scans, r.duration)
	return r
}

// Observe records one probe result.
func (r *Recorder) Observe(target string, res *scanner.ProbeResult) {
	if r == nil {
		return
	}
	r.probes.WithLabelValues(target, res.Outcome.String()).Inc()
	if res.Attempts > 0 {
		r.attempts.WithLabelValues(target).Add(float64(res.Attempts))
	}
	if res.Outcome != scanner.Error && res.Outcome != scanner.Cancelled {
		r.latency.WithLabelValues(target).Observe(res.Duration.Seconds())
	}
}

// ScanFinished records how a target scan ended.
func (r *Recorder) ScanFinished(target string, sum scanner.Summary) {
	if r == nil {
		return
	}
	r.scans.WithLabelValues(target, sum.Reason.String()).Inc()
	r.duration.WithLabelValues(target).Set(sum.Elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx ends.
func (r *Recorder) Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("addr", ln.Addr().String()).Info("serving metrics")
	return nil
}
