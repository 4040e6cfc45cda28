// Package propagation implements rectilinear transport.
//
// SimplePropagation is the one module that actually moves candidates: it
// takes the step accepted by the previous pass's negotiation and then
// re-proposes its configured maximum for the next pass, which interaction
// modules may shrink.
package propagation

import (
	"fmt"

	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/sim"
)

// SimplePropagation advances candidates along their current direction.
//
// The accepted step is clamped to [MinStep, MaxStep]. MinStep keeps the
// very first pass (which starts with a zero proposal) from stalling;
// MaxStep is the maximal step the propagator proposes for the next
// negotiation.
type SimplePropagation struct {
	MinStep float64
	MaxStep float64

	// Redshift is the distance-to-redshift relation. Nil means NoRedshift.
	Redshift RedshiftRelation
}

// NewSimplePropagation validates the step policy.
func NewSimplePropagation(minStep, maxStep float64, rel RedshiftRelation) (*SimplePropagation, error) {
	if minStep < 0 {
		return nil, sim.NewConfigError("propagation: min step must be non-negative, got %g", minStep)
	}
	if maxStep <= 0 || maxStep < minStep {
		return nil, sim.NewConfigError("propagation: max step must be positive and >= min step, got %g", maxStep)
	}
	return &SimplePropagation{MinStep: minStep, MaxStep: maxStep, Redshift: rel}, nil
}

// Process takes one step.
//
// The step is the negotiated NextStep clamped to the configured bounds,
// never negative. Position advances along the current direction, the
// trajectory length grows by exactly the step, and the redshift decreases
// by the relation's decrement, clamped at zero.
func (p *SimplePropagation) Process(c *particle.Candidate) error {
	step := c.NextStep
	if step < p.MinStep {
		step = p.MinStep
	}
	if step > p.MaxStep {
		step = p.MaxStep
	}

	c.PreviousPosition = c.CurrentPosition
	c.CurrentPosition = c.CurrentPosition.Add(c.CurrentDirection.Scale(step))
	c.TrajectoryLength += step
	c.CurrentStep = step

	if p.Redshift != nil {
		z := c.Redshift - p.Redshift.Delta(step, c.Redshift)
		if z < 0 {
			z = 0
		}
		c.Redshift = z
	}

	// Re-propose the maximal step; interactions negotiate it down.
	c.NextStep = p.MaxStep
	return nil
}

func (p *SimplePropagation) String() string {
	return fmt.Sprintf("SimplePropagation(min=%g, max=%g)", p.MinStep, p.MaxStep)
}
