package scanner

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/maxvaer/dirsweep/internal/policy"
)

const tracerName = "github.com/maxvaer/dirsweep/internal/scanner"

// Classifier maps responses to outcomes. Calibrate must be safe to call
// concurrently and should calibrate each directory at most once.
type Classifier interface {
	Calibrate(ctx context.Context, dir string)
	Classify(dir string, resp *Response) (Outcome, string)
}

// WorkerConfig holds the per-probe policies.
type WorkerConfig struct {
	Retry     policy.RetryConfig
	Limiter   *policy.Limiter
	Throttler *policy.Throttler
	Pauser    *Pauser // nil = no pause support
	KeepBody  bool    // retain response body in ProbeResult
	Log       logrus.FieldLogger
	// RequestLog receives one line per completed request when set.
	RequestLog logrus.FieldLogger
}

// Worker executes one request-classify-retry cycle per job.
type Worker struct {
	sender     Sender
	classifier Classifier
	state      *State
	cfg        WorkerConfig
	tracer     trace.Tracer
}

// NewWorker creates a Worker. classifier may be nil, in which case every
// response is reported as Found.
func NewWorker(sender Sender, classifier Classifier, state *State, cfg WorkerConfig) *Worker {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Worker{
		sender:     sender,
		classifier: classifier,
		state:      state,
		cfg:        cfg,
		tracer:     otel.Tracer(tracerName),
	}
}

// Probe consumes one job and produces exactly one result. It never panics
// on network failure: exhausted retries yield an Error result and a stop
// signal yields a Cancelled one.
func (w *Worker) Probe(ctx context.Context, job Job) ProbeResult {
	ctx, span := w.tracer.Start(ctx, "probe", trace.WithAttributes(
		attribute.String("http.method", job.method()),
		attribute.String("dirsweep.path", job.Path),
		attribute.Int("dirsweep.depth", job.Depth),
	))
	defer span.End()

	res := w.probe(ctx, job)
	w.state.Record(res.Outcome)

	span.SetAttributes(
		attribute.String("dirsweep.outcome", res.Outcome.String()),
		attribute.Int("http.status_code", res.StatusCode),
		attribute.Int("dirsweep.attempts", res.Attempts),
	)
	if res.Outcome == Error {
		span.SetStatus(codes.Error, res.Err.Error())
	}
	return res
}

// pace waits for the configured delay, rate cap and adaptive throttle.
func (w *Worker) pace(ctx context.Context) error {
	return w.cfg.Limiter.Wait(ctx, w.cfg.Throttler.Extra())
}

func (w *Worker) probe(ctx context.Context, job Job) ProbeResult {
	if err := w.cfg.Pauser.Wait(ctx); err != nil {
		return cancelled(job, context.Cause(ctx))
	}
	// Calibration paces its own requests, so the job's pacing comes after it.
	if w.classifier != nil {
		w.classifier.Calibrate(ctx, job.Dir)
	}
	if err := w.pace(ctx); err != nil {
		return cancelled(job, context.Cause(ctx))
	}

	w.state.Dispatched.Add(1)
	w.state.enter()
	defer w.state.leave()

	resp, attempts, err := policy.Retry(ctx, w.cfg.Retry, func() (*Response, error) {
		r, err := w.sender.Do(ctx, job.method(), job.Path)
		if err == nil {
			return r, nil
		}
		var te *TransportError
		if ctx.Err() != nil || !errors.As(err, &te) {
			return nil, policy.Permanent(err)
		}
		w.cfg.Throttler.RecordError()
		return nil, err
	})
	if attempts > 1 {
		w.state.Retries.Add(int64(attempts - 1))
	}

	res := ProbeResult{Job: job, Attempts: attempts}
	if err != nil {
		if ctx.Err() != nil {
			res.Outcome = Cancelled
			res.Err = context.Cause(ctx)
			return res
		}
		res.Outcome = Error
		res.Err = err
		w.cfg.Log.WithFields(logrus.Fields{
			"path":     job.Path,
			"attempts": attempts,
		}).WithError(err).Debug("probe failed")
		return res
	}

	w.cfg.Throttler.RecordStatus(resp.StatusCode)
	res.fill(resp, w.cfg.KeepBody)
	if w.classifier != nil {
		res.Outcome, res.Reason = w.classifier.Classify(job.Dir, resp)
	} else {
		res.Outcome = Found
	}

	if w.cfg.RequestLog != nil {
		w.cfg.RequestLog.WithFields(logrus.Fields{
			"method": job.method(),
			"url":    resp.URL,
			"status": resp.StatusCode,
			"size":   resp.ContentLength,
		}).Info(res.Outcome.String())
	}
	return res
}
