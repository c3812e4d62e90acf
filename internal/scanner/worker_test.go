package scanner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRetriesTransportErrors(t *testing.T) {
	var n int
	sender := &fakeSender{fn: func(_ context.Context, _, _ string) (*Response, error) {
		n++
		if n < 3 {
			return nil, &TransportError{Err: errors.New("connection reset by peer")}
		}
		return NewResponse(200, []byte("hello world\n")), nil
	}}
	state := NewState()
	cls := &statusClassifier{}
	w := NewWorker(sender, cls, state, WorkerConfig{Retry: fastRetry(3), Log: quietLog()})

	res := w.Probe(context.Background(), Job{Path: "admin", Dir: ""})
	assert.Equal(t, Found, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, 2, res.WordCount)
	assert.Equal(t, 2, res.LineCount)
	assert.Nil(t, res.Body, "body is only kept on request")
	assert.Equal(t, int64(2), state.Retries.Load())
	assert.Equal(t, int64(1), state.Found.Load())
	assert.Equal(t, 1, cls.calibrated[""])
}

func TestWorkerNonTransportErrorIsNotRetried(t *testing.T) {
	sender := &fakeSender{fn: func(_ context.Context, _, _ string) (*Response, error) {
		return nil, errors.New("bad request line")
	}}
	state := NewState()
	w := NewWorker(sender, nil, state, WorkerConfig{Retry: fastRetry(3), Log: quietLog()})

	res := w.Probe(context.Background(), Job{Path: "x"})
	assert.Equal(t, Error, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int64(1), sender.calls.Load())
	assert.Equal(t, int64(1), state.Errors.Load())
}

func TestWorkerCancelledBeforeDispatch(t *testing.T) {
	sender := statusSender("x")
	state := NewState()
	w := NewWorker(sender, nil, state, WorkerConfig{Log: quietLog()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := w.Probe(ctx, Job{Path: "x"})
	assert.Equal(t, Cancelled, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Zero(t, sender.calls.Load())
	assert.Equal(t, int64(1), state.Cancelled.Load())
}

func TestWorkerWithoutClassifierReportsFound(t *testing.T) {
	w := NewWorker(statusSender(), nil, NewState(), WorkerConfig{KeepBody: true, Log: quietLog()})
	res := w.Probe(context.Background(), Job{Path: "missing"})
	assert.Equal(t, Found, res.Outcome)
	assert.Equal(t, []byte("not found"), res.Body)
}

func TestWorkerRequestLog(t *testing.T) {
	var buf bytes.Buffer
	rl := logrus.New()
	rl.SetOutput(&buf)
	rl.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	w := NewWorker(statusSender("admin"), &statusClassifier{}, NewState(), WorkerConfig{Log: quietLog(), RequestLog: rl})
	w.Probe(context.Background(), Job{Method: "HEAD", Path: "admin"})

	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), "method=HEAD")
	assert.Contains(t, buf.String(), "status=200")
	assert.Contains(t, buf.String(), "msg=found")
}

func TestStatePeakInFlight(t *testing.T) {
	s := NewState()
	s.enter()
	s.enter()
	s.leave()
	s.enter()
	s.leave()
	s.leave()
	assert.Equal(t, int64(2), s.PeakInFlight.Load())
	assert.Zero(t, s.InFlight.Load())
	assert.NotEmpty(t, s.ID)
}
