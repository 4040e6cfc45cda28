package source

import (
	"fmt"

	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/random"
	"github.com/skoglund/rayprop/internal/sim"
)

// Position places candidates at a fixed point.
type Position struct {
	Point particle.Vector3
}

// Apply sets source and current position.
func (p Position) Apply(c *particle.Candidate, _ random.Source) error {
	c.SourcePosition = p.Point
	c.CurrentPosition = p.Point
	c.PreviousPosition = p.Point
	return nil
}

func (p Position) String() string {
	return fmt.Sprintf("Position(%g, %g, %g)", p.Point.X, p.Point.Y, p.Point.Z)
}

// UniformPosition1D samples the X coordinate uniformly in [XMin, XMax].
type UniformPosition1D struct {
	XMin, XMax float64
}

// NewUniformPosition1D validates the range.
func NewUniformPosition1D(xMin, xMax float64) (UniformPosition1D, error) {
	if xMin > xMax {
		return UniformPosition1D{}, sim.NewConfigError("uniform position range [%g, %g] is inverted", xMin, xMax)
	}
	return UniformPosition1D{XMin: xMin, XMax: xMax}, nil
}

// Apply samples the position.
func (p UniformPosition1D) Apply(c *particle.Candidate, rng random.Source) error {
	x := p.XMin + rng.Uniform()*(p.XMax-p.XMin)
	pos := particle.Vector3{X: x}
	c.SourcePosition = pos
	c.CurrentPosition = pos
	c.PreviousPosition = pos
	return nil
}

func (p UniformPosition1D) String() string {
	return fmt.Sprintf("UniformPosition1D[%g, %g]", p.XMin, p.XMax)
}

// Direction launches candidates along a fixed unit direction.
type Direction struct {
	Dir particle.Vector3
}

// NewDirection validates and normalizes the direction.
func NewDirection(dir particle.Vector3) (Direction, error) {
	if dir.Norm() == 0 {
		return Direction{}, sim.NewConfigError("source direction is the zero vector")
	}
	return Direction{Dir: dir.Normalized()}, nil
}

// Apply sets source and current direction.
func (d Direction) Apply(c *particle.Candidate, _ random.Source) error {
	c.SourceDirection = d.Dir
	c.CurrentDirection = d.Dir
	return nil
}

func (d Direction) String() string {
	return fmt.Sprintf("Direction(%g, %g, %g)", d.Dir.X, d.Dir.Y, d.Dir.Z)
}

// ParticleType sets the species code.
type ParticleType struct {
	ID int
}

// Apply sets the species.
func (p ParticleType) Apply(c *particle.Candidate, _ random.Source) error {
	c.ParticleID = p.ID
	return nil
}

func (p ParticleType) String() string {
	return fmt.Sprintf("ParticleType(%s)", particle.SpeciesName(p.ID))
}

// Energy injects candidates at a fixed energy.
type Energy struct {
	E float64
}

// NewEnergy validates the energy.
func NewEnergy(e float64) (Energy, error) {
	if e <= 0 {
		return Energy{}, sim.NewConfigError("source energy must be positive, got %g", e)
	}
	return Energy{E: e}, nil
}

// Apply sets source and current energy.
func (p Energy) Apply(c *particle.Candidate, _ random.Source) error {
	c.SourceEnergy = p.E
	c.CurrentEnergy = p.E
	return nil
}

func (p Energy) String() string {
	return fmt.Sprintf("Energy(%g eV)", p.E)
}

// Redshift sets the initial cosmological redshift.
type Redshift struct {
	Z float64
}

// NewRedshift validates the redshift.
func NewRedshift(z float64) (Redshift, error) {
	if z < 0 {
		return Redshift{}, sim.NewConfigError("source redshift must be non-negative, got %g", z)
	}
	return Redshift{Z: z}, nil
}

// Apply sets the redshift.
func (p Redshift) Apply(c *particle.Candidate, _ random.Source) error {
	c.Redshift = p.Z
	return nil
}

func (p Redshift) String() string {
	return fmt.Sprintf("Redshift(%g)", p.Z)
}
