// Package interaction implements stochastic interaction modules.
//
// Every interaction is the same machine wrapped around a different physics
// implementation: sample an exponential free path on the candidate's
// private stream, negotiate the step so the interaction point is never
// overstepped, and apply the effect when the travelled step reaches the
// sampled length. Cross-section physics stays behind the Implementation
// interface; the built-in processes use configurable parametrizations.
package interaction

import (
	"fmt"

	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/random"
	"github.com/skoglund/rayprop/internal/sim"
)

// Implementation is the physics behind one stochastic process.
type Implementation interface {
	// Name identifies the process in logs and candidate properties.
	Name() string

	// MeanFreePath returns the mean free path in meters for the
	// candidate's current energy and species. ok is false when the
	// process cannot act on this candidate (wrong species, below
	// threshold); any armed interaction point is then discarded.
	MeanFreePath(c *particle.Candidate) (mfp float64, ok bool)

	// Perform applies the interaction effect at the candidate's current
	// position: energy loss, species change, secondary emission.
	Perform(c *particle.Candidate) error
}

// Stochastic drives an Implementation through step negotiation.
//
// The sampled distance to the next interaction is stored on the candidate
// (property "interaction:<name>") and decremented by each taken step, so
// the decision where the process fires survives across passes and is
// independent of which other modules shrink the step. The minimum proposal
// across all modules wins the negotiation; a process applies its effect
// only when the taken step reaches its own sampled length.
type Stochastic struct {
	impl Implementation
	key  string
}

// NewStochastic wraps an implementation into a scheduler module.
func NewStochastic(impl Implementation) *Stochastic {
	return &Stochastic{
		impl: impl,
		key:  "interaction:" + impl.Name(),
	}
}

// Process consumes the step taken this pass and negotiates the next one.
func (s *Stochastic) Process(c *particle.Candidate) error {
	if c.Random() == nil {
		return fmt.Errorf("%s: candidate %s has no random stream", s.impl.Name(), c.Lineage)
	}
	if c.CurrentEnergy < 0 {
		return sim.NewDomainError(s.impl.Name(), "negative energy %g", c.CurrentEnergy)
	}

	step := c.CurrentStep
	for {
		d, armed := c.Property(s.key)
		mfp, ok := s.impl.MeanFreePath(c)
		if !ok {
			// Process cannot act on the candidate in its current state
			// (species changed, fell below threshold); discard any armed
			// interaction point and leave the negotiation alone.
			if armed {
				c.ClearProperty(s.key)
			}
			return nil
		}
		if !armed {
			d = random.Exponential(c.Random(), mfp)
		}

		if d > step {
			// Interaction point not reached yet: remember the remaining
			// distance and make sure the next step does not overshoot it.
			c.SetProperty(s.key, d-step)
			return c.LimitNextStep(d - step)
		}

		// The taken step reaches the sampled length: interact here.
		step -= d
		c.ClearProperty(s.key)
		if err := s.impl.Perform(c); err != nil {
			return err
		}
		if !c.Active {
			return nil
		}
	}
}

func (s *Stochastic) String() string {
	return s.impl.Name()
}
