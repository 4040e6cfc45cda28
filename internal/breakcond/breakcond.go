// Package breakcond implements termination predicates.
//
// Break conditions are pure predicate-and-deactivate modules: they read
// the candidate's current state, and when the condition holds they make it
// inactive and record the cause. They are idempotent and have no other
// side effect.
package breakcond

import (
	"fmt"

	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/sim"
)

// Deactivation causes recorded by the built-in break conditions.
const (
	CauseBelowThreshold = "BelowThreshold"
	CauseExhausted      = "Exhausted"
	CauseRedshiftLimit  = "RedshiftLimit"
)

// MinimumEnergy deactivates candidates whose energy fell below the
// threshold.
type MinimumEnergy struct {
	EMin float64
}

// NewMinimumEnergy validates the threshold.
func NewMinimumEnergy(eMin float64) (*MinimumEnergy, error) {
	if eMin < 0 {
		return nil, sim.NewConfigError("minimum energy must be non-negative, got %g", eMin)
	}
	return &MinimumEnergy{EMin: eMin}, nil
}

// Process deactivates with cause BelowThreshold when energy < EMin.
func (b *MinimumEnergy) Process(c *particle.Candidate) error {
	if c.Active && c.CurrentEnergy < b.EMin {
		c.Deactivate(CauseBelowThreshold)
	}
	return nil
}

func (b *MinimumEnergy) String() string {
	return fmt.Sprintf("MinimumEnergy(%g eV)", b.EMin)
}

// Terminates implements sim.Terminator.
func (b *MinimumEnergy) Terminates() bool { return true }

// MaximumTrajectoryLength deactivates candidates that travelled farther
// than the limit.
type MaximumTrajectoryLength struct {
	LMax float64
}

// NewMaximumTrajectoryLength validates the limit.
func NewMaximumTrajectoryLength(lMax float64) (*MaximumTrajectoryLength, error) {
	if lMax <= 0 {
		return nil, sim.NewConfigError("maximum trajectory length must be positive, got %g", lMax)
	}
	return &MaximumTrajectoryLength{LMax: lMax}, nil
}

// Process deactivates with cause Exhausted when the trajectory exceeds
// the limit.
func (b *MaximumTrajectoryLength) Process(c *particle.Candidate) error {
	if c.Active && c.TrajectoryLength > b.LMax {
		c.Deactivate(CauseExhausted)
	}
	return nil
}

func (b *MaximumTrajectoryLength) String() string {
	return fmt.Sprintf("MaximumTrajectoryLength(%g m)", b.LMax)
}

// Terminates implements sim.Terminator.
func (b *MaximumTrajectoryLength) Terminates() bool { return true }

// MinimumRedshift deactivates candidates below the redshift floor.
// In the 1D convention redshift only decreases, so this bounds how far
// toward (or past) the observer a candidate is followed.
type MinimumRedshift struct {
	ZMin float64
}

// NewMinimumRedshift validates the floor.
func NewMinimumRedshift(zMin float64) (*MinimumRedshift, error) {
	if zMin < 0 {
		return nil, sim.NewConfigError("minimum redshift must be non-negative, got %g", zMin)
	}
	return &MinimumRedshift{ZMin: zMin}, nil
}

// Process deactivates with cause RedshiftLimit when redshift < ZMin.
func (b *MinimumRedshift) Process(c *particle.Candidate) error {
	if c.Active && c.Redshift < b.ZMin {
		c.Deactivate(CauseRedshiftLimit)
	}
	return nil
}

func (b *MinimumRedshift) String() string {
	return fmt.Sprintf("MinimumRedshift(%g)", b.ZMin)
}

// Terminates implements sim.Terminator.
func (b *MinimumRedshift) Terminates() bool { return true }
