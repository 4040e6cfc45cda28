package output

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skoglund/rayprop/internal/particle"
)

// logSinkFailure reports and counts a lost row. Sink errors on the
// trajectory feed are never fatal and never abort the run. failures may
// be nil, meaning uncounted.
func logSinkFailure(c *particle.Candidate, err error, failures prometheus.Counter) {
	if failures != nil {
		failures.Inc()
	}
	slog.Warn("output sink write failed",
		"candidate", c.Lineage,
		"error", err,
	)
}

// Candidate property tracking the next step index for trajectory feeds.
const stepIndexProperty = "output:step_index"

// TrajectoryModule writes every candidate's snapshot once per pass to a
// sink: the full-trajectory feed. It is a regular pipeline module, placed
// after propagation and interactions so each row reflects the committed
// step. Logically separate from the detection feed even when both end up
// in the same database.
type TrajectoryModule struct {
	sink     Sink
	failures prometheus.Counter
}

// NewTrajectoryModule wraps a sink into a pipeline module. failures is
// the run's sink-failure counter; nil means uncounted.
func NewTrajectoryModule(sink Sink, failures prometheus.Counter) *TrajectoryModule {
	return &TrajectoryModule{sink: sink, failures: failures}
}

// Process writes one trajectory row. A failed write loses the row, is
// reported and counted, and does not affect the candidate.
func (t *TrajectoryModule) Process(c *particle.Candidate) error {
	if err := t.sink.Write(NewSnapshot(c)); err != nil {
		logSinkFailure(c, err, t.failures)
	}
	return nil
}

func (t *TrajectoryModule) String() string { return "TrajectoryOutput" }

// StepRecorder writes every pass to the event store's steps table,
// numbering steps per candidate. Used to record replayable runs.
type StepRecorder struct {
	store    *Store
	runID    string
	failures prometheus.Counter
}

// NewStepRecorder creates a recorder bound to one run. failures is the
// run's sink-failure counter; nil means uncounted.
func NewStepRecorder(store *Store, runID string, failures prometheus.Counter) *StepRecorder {
	return &StepRecorder{store: store, runID: runID, failures: failures}
}

// Process appends the candidate's current state to its step history.
func (r *StepRecorder) Process(c *particle.Candidate) error {
	idx, _ := c.Property(stepIndexProperty)
	if err := r.store.WriteStep(r.runID, int(idx), NewSnapshot(c)); err != nil {
		logSinkFailure(c, err, r.failures)
		return nil
	}
	c.SetProperty(stepIndexProperty, idx+1)
	return nil
}

func (r *StepRecorder) String() string { return "StepRecorder" }

// StoreSink adapts the event store to the detection-feed sink contract.
// The store itself is owned and closed by the caller that opened it, so
// Close here only fences further writes.
type StoreSink struct {
	store  *Store
	runID  string
	closed bool
}

// NewStoreSink creates a detection sink bound to one run.
func NewStoreSink(store *Store, runID string) *StoreSink {
	return &StoreSink{store: store, runID: runID}
}

// Write records a detection row.
func (s *StoreSink) Write(snap Snapshot) error {
	if s.closed {
		return fmt.Errorf("write to closed store sink")
	}
	return s.store.WriteDetection(s.runID, snap)
}

// Close fences the sink. The underlying store stays open for its owner.
func (s *StoreSink) Close() error {
	s.closed = true
	return nil
}
