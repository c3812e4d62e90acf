package scanner

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the shared per-scan state. Every counter is atomic so workers,
// the scheduler and the progress reporter can touch it concurrently.
type State struct {
	ID      string
	Started time.Time

	Dispatched          atomic.Int64
	Completed           atomic.Int64
	Found               atomic.Int64
	NotFound            atomic.Int64
	Filtered            atomic.Int64
	Errors              atomic.Int64
	Cancelled           atomic.Int64
	InFlight            atomic.Int64
	PeakInFlight        atomic.Int64
	Pending             atomic.Int64 // materialised jobs without a collected result
	Segments            atomic.Int64 // directory segments expanded so far
	CalibrationRequests atomic.Int64
	Retries             atomic.Int64
}

// NewState returns a fresh state with a random scan ID.
func NewState() *State {
	return &State{ID: uuid.NewString(), Started: time.Now()}
}

// Elapsed returns the wall-clock time since the scan started.
func (s *State) Elapsed() time.Duration { return time.Since(s.Started) }

func (s *State) enter() {
	n := s.InFlight.Add(1)
	for {
		peak := s.PeakInFlight.Load()
		if n <= peak || s.PeakInFlight.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (s *State) leave() { s.InFlight.Add(-1) }

// Record counts a finished probe under its outcome.
func (s *State) Record(o Outcome) {
	s.Completed.Add(1)
	switch o {
	case Found:
		s.Found.Add(1)
	case NotFound:
		s.NotFound.Add(1)
	case Filtered:
		s.Filtered.Add(1)
	case Error:
		s.Errors.Add(1)
	case Cancelled:
		s.Cancelled.Add(1)
	}
}

// Counters is a point-in-time copy of the State counters.
type Counters struct {
	Dispatched          int64 `json:"dispatched"`
	Completed           int64 `json:"completed"`
	Found               int64 `json:"found"`
	NotFound            int64 `json:"not_found"`
	Filtered            int64 `json:"filtered"`
	Errors              int64 `json:"errors"`
	Cancelled           int64 `json:"cancelled"`
	PeakInFlight        int64 `json:"peak_in_flight"`
	Segments            int64 `json:"segments"`
	CalibrationRequests int64 `json:"calibration_requests"`
	Retries             int64 `json:"retries"`
}

// Snapshot copies the counters.
func (s *State) Snapshot() Counters {
	return Counters{
		Dispatched:          s.Dispatched.Load(),
		Completed:           s.Completed.Load(),
		Found:               s.Found.Load(),
		NotFound:            s.NotFound.Load(),
		Filtered:            s.Filtered.Load(),
		Errors:              s.Errors.Load(),
		Cancelled:           s.Cancelled.Load(),
		PeakInFlight:        s.PeakInFlight.Load(),
		Segments:            s.Segments.Load(),
		CalibrationRequests: s.CalibrationRequests.Load(),
		Retries:             s.Retries.Load(),
	}
}
