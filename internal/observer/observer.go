// Package observer implements detection points and sink fan-out.
//
// An observer holds detection predicates and registered output sinks. It
// runs after propagation and interactions in the recommended order, so
// detection sees the candidate's state with the current step's effects
// applied, and it evaluates at most one detection per pass.
package observer

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/skoglund/rayprop/internal/output"
	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/sim"
)

// CauseDetected marks candidates terminated by a deactivating observer.
const CauseDetected = "Detected"

// Predicate decides whether a candidate is detected this pass.
// Predicates read state only; they never mutate the candidate.
type Predicate interface {
	Detects(c *particle.Candidate) bool
	String() string
}

// Observer forwards detected candidates to its sinks.
type Observer struct {
	name         string
	predicates   []Predicate
	sinks        []output.Sink
	makeInactive bool

	// counters are optional; nil means uncounted.
	detections   prometheus.Counter
	sinkFailures prometheus.Counter
}

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// WithMakeInactive controls whether the observer terminates detected
// candidates. Defaults to true; pass-through observers disable it and then
// do not count as terminating modules.
func WithMakeInactive(v bool) ObserverOption {
	return func(o *Observer) { o.makeInactive = v }
}

// WithCounters attaches detection and sink-failure counters.
func WithCounters(detections, sinkFailures prometheus.Counter) ObserverOption {
	return func(o *Observer) {
		o.detections = detections
		o.sinkFailures = sinkFailures
	}
}

// New builds an observer. At least one predicate is required; sinks may be
// empty (detection then only tags the candidate).
func New(name string, predicates []Predicate, sinks []output.Sink, opts ...ObserverOption) (*Observer, error) {
	if name == "" {
		return nil, sim.NewConfigError("observer requires a name")
	}
	if len(predicates) == 0 {
		return nil, sim.NewConfigError("observer %s has no detection points", name)
	}
	o := &Observer{
		name:         name,
		predicates:   predicates,
		sinks:        sinks,
		makeInactive: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Process evaluates detection exactly once per pass, after the pass's
// propagation and interaction effects.
//
// On detection every registered sink receives the snapshot. A sink
// failure is reported and counted, never fatal, and does not keep the
// remaining sinks from being invoked. The MakeInactive policy is applied
// last.
func (o *Observer) Process(c *particle.Candidate) error {
	if !c.Active {
		return nil
	}

	detected := false
	for _, p := range o.predicates {
		if p.Detects(c) {
			detected = true
			break
		}
	}
	if !detected {
		return nil
	}

	if o.detections != nil {
		o.detections.Inc()
	}
	c.Tags[particle.TagDetected] = o.name

	snap := output.NewSnapshot(c)
	snap.Observer = o.name
	for _, sink := range o.sinks {
		if err := sink.Write(snap); err != nil {
			if o.sinkFailures != nil {
				o.sinkFailures.Inc()
			}
			slog.Warn("observer sink write failed",
				"observer", o.name,
				"candidate", c.Lineage,
				"error", err,
			)
		}
	}

	if o.makeInactive {
		c.Deactivate(CauseDetected)
	}
	return nil
}

func (o *Observer) String() string {
	return fmt.Sprintf("Observer(%s, %d points)", o.name, len(o.predicates))
}

// Terminates implements sim.Terminator: an observer terminates candidates
// only under the MakeInactive policy.
func (o *Observer) Terminates() bool {
	return o.makeInactive
}
