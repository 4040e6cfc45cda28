package observer

import (
	"fmt"

	"github.com/skoglund/rayprop/internal/particle"
)

// Point1D detects candidates crossing a plane at the given X coordinate.
//
// Detection triggers on the step whose movement crossed the plane from
// the positive side (or landed exactly on it), using the positions before
// and after the step. Equality alone is not enough: a candidate sitting
// on the plane without having moved across it is not re-detected.
type Point1D struct {
	X float64
}

// Detects reports a positive-side crossing during the last step.
func (p Point1D) Detects(c *particle.Candidate) bool {
	prev := c.PreviousPosition.X
	cur := c.CurrentPosition.X
	return prev > p.X && cur <= p.X
}

func (p Point1D) String() string {
	return fmt.Sprintf("Point1D(x=%g)", p.X)
}
