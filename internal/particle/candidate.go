// Package particle defines the Candidate record: one simulated particle's
// mutable transport state plus its lineage.
//
// A candidate is owned by exactly one scheduler pass at a time. Once
// deactivated it is terminal: the scheduler never processes it again, and
// no module may mutate it. The deactivation cause is recorded as a tag for
// diagnostics and does not change scheduling semantics.
package particle

import (
	"errors"
	"fmt"

	"github.com/skoglund/rayprop/internal/random"
)

// Deactivation cause tags written under TagDeactivated.
const (
	// TagDeactivated is the tag key that records why a candidate became
	// inactive.
	TagDeactivated = "deactivated"

	// TagDetected is the tag key recording the observer that detected the
	// candidate.
	TagDetected = "detected"

	// TagError is the tag key recording a per-candidate domain failure.
	TagError = "error"
)

// ErrNegativeStep is wrapped by step-negotiation methods when a module
// proposes a negative step. A negative step is a programming error, not a
// domain error, and aborts the run.
var ErrNegativeStep = errors.New("negative step")

// Candidate is the mutable transport state of one simulated particle.
//
// All distances are meters, energies are eV. Position and direction follow
// the 1D convention described on Vector3. TrajectoryLength never decreases;
// Redshift never increases.
type Candidate struct {
	// Serial is a globally unique identity assigned by the scheduler.
	// ParentSerial is the serial of the spawning candidate, empty for
	// primaries.
	Serial       string
	ParentSerial string

	// Lineage is the deterministic identity used for replay comparison:
	// primaries are numbered in generation order ("c000001"), secondaries
	// append their emission index ("c000001.0"). Unlike Serial, lineage is
	// identical across reruns of the same seeded configuration.
	Lineage string

	// Generation is 0 for primaries and parent+1 for secondaries.
	Generation int

	// ParticleID is the species code (see species.go).
	ParticleID int

	SourceEnergy  float64
	CurrentEnergy float64

	SourcePosition  Vector3
	SourceDirection Vector3

	// PreviousPosition is the position before the most recent propagation
	// step. Observers use it for crossing detection.
	PreviousPosition Vector3
	CurrentPosition  Vector3
	CurrentDirection Vector3

	TrajectoryLength float64
	Redshift         float64

	// CurrentStep is the step accepted and taken in the current pass.
	// NextStep is the proposal being negotiated for the following pass;
	// every module may only shrink it (LimitNextStep).
	CurrentStep float64
	NextStep    float64

	// Active is false once the candidate reached a terminal state.
	Active bool

	// Secondaries holds candidates spawned during the current pass.
	// Ownership transfers to the scheduler worklist via TakeSecondaries.
	Secondaries []*Candidate

	// Tags is the open string annotation bag (causes, diagnostics).
	// Properties is the numeric scratch bag modules use for per-candidate
	// state such as the remaining distance to a sampled interaction.
	Tags       map[string]string
	Properties map[string]float64

	rng        random.Source
	childCount int
}

// New returns a blank active candidate with empty tag and property bags.
// Source-side fields are populated by source properties afterwards.
func New() *Candidate {
	return &Candidate{
		Active:     true,
		Tags:       map[string]string{},
		Properties: map[string]float64{},
	}
}

// Deactivate makes the candidate terminal and records the cause.
// Idempotent: the first cause wins and later calls are no-ops, so break
// conditions may fire on already-terminal candidates without effect.
func (c *Candidate) Deactivate(cause string) {
	if !c.Active {
		return
	}
	c.Active = false
	c.Tags[TagDeactivated] = cause
}

// Cause returns the recorded deactivation cause, empty while active.
func (c *Candidate) Cause() string {
	return c.Tags[TagDeactivated]
}

// LimitNextStep shrinks the negotiated step proposal to d if d is smaller.
// The minimum proposed by any module in a pass is the accepted step.
func (c *Candidate) LimitNextStep(d float64) error {
	if d < 0 {
		return fmt.Errorf("limit next step to %g: %w", d, ErrNegativeStep)
	}
	if d < c.NextStep {
		c.NextStep = d
	}
	return nil
}

// Random returns the candidate's private sampling stream.
func (c *Candidate) Random() random.Source {
	return c.rng
}

// SetRandom attaches the candidate's sampling stream.
// Called once by the scheduler (or a test) before the first pass.
func (c *Candidate) SetRandom(src random.Source) {
	c.rng = src
}

// AddSecondary spawns a new candidate produced by an interaction or decay.
//
// The secondary inherits position, direction and redshift from the parent
// but carries its own species and energy. Its lineage and random stream are
// derived deterministically from the parent, so secondary trajectories are
// reproducible regardless of worker scheduling. The returned candidate is
// also appended to Secondaries for the scheduler to collect.
func (c *Candidate) AddSecondary(id int, energy float64) *Candidate {
	s := New()
	s.ParticleID = id
	s.SourceEnergy = energy
	s.CurrentEnergy = energy
	s.SourcePosition = c.CurrentPosition
	s.SourceDirection = c.CurrentDirection
	s.PreviousPosition = c.CurrentPosition
	s.CurrentPosition = c.CurrentPosition
	s.CurrentDirection = c.CurrentDirection
	s.Redshift = c.Redshift
	s.Generation = c.Generation + 1
	s.ParentSerial = c.Serial
	s.Lineage = fmt.Sprintf("%s.%d", c.Lineage, c.childCount)
	if c.rng != nil {
		s.rng = c.rng.Child(c.childCount)
	}
	c.childCount++
	c.Secondaries = append(c.Secondaries, s)
	return s
}

// TakeSecondaries transfers ownership of all pending secondaries to the
// caller and clears the list. Only the scheduler calls this.
func (c *Candidate) TakeSecondaries() []*Candidate {
	s := c.Secondaries
	c.Secondaries = nil
	return s
}

// Property reads a numeric module annotation.
func (c *Candidate) Property(key string) (float64, bool) {
	v, ok := c.Properties[key]
	return v, ok
}

// SetProperty writes a numeric module annotation.
func (c *Candidate) SetProperty(key string, v float64) {
	c.Properties[key] = v
}

// ClearProperty removes a numeric module annotation.
func (c *Candidate) ClearProperty(key string) {
	delete(c.Properties, key)
}
