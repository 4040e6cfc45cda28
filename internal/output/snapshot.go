// Package output implements the sink contract and its adapters.
//
// Sinks receive immutable candidate snapshots, either from observers
// (detection feed) or from an output module that records every step
// (trajectory feed). The two feeds are logically separate streams; a sink
// instance belongs to exactly one of them.
package output

import (
	"fmt"
	"strconv"

	"github.com/skoglund/rayprop/internal/particle"
)

// Snapshot is an immutable copy of a candidate's recordable fields.
// Modules and sinks never share the live candidate.
type Snapshot struct {
	Serial       string
	ParentSerial string
	Lineage      string
	ParticleID   int

	SourceEnergy  float64
	CurrentEnergy float64

	Position  particle.Vector3
	Direction particle.Vector3

	Redshift         float64
	TrajectoryLength float64

	// Cause is the deactivation cause, empty while active.
	Cause string

	// Observer names the detecting observer on detection feeds.
	Observer string
}

// NewSnapshot copies the recordable fields of a candidate.
func NewSnapshot(c *particle.Candidate) Snapshot {
	return Snapshot{
		Serial:           c.Serial,
		ParentSerial:     c.ParentSerial,
		Lineage:          c.Lineage,
		ParticleID:       c.ParticleID,
		SourceEnergy:     c.SourceEnergy,
		CurrentEnergy:    c.CurrentEnergy,
		Position:         c.CurrentPosition,
		Direction:        c.CurrentDirection,
		Redshift:         c.Redshift,
		TrajectoryLength: c.TrajectoryLength,
		Cause:            c.Cause(),
	}
}

// Field is one column of the fixed output schema.
type Field string

// The fixed output schema. Configurations enable a subset per sink.
const (
	FieldSerial           Field = "serial"
	FieldParentSerial     Field = "parent_serial"
	FieldLineage          Field = "lineage"
	FieldParticleID       Field = "particle_id"
	FieldSourceEnergy     Field = "source_energy"
	FieldCurrentEnergy    Field = "current_energy"
	FieldX                Field = "x"
	FieldY                Field = "y"
	FieldZ                Field = "z"
	FieldDirX             Field = "dir_x"
	FieldDirY             Field = "dir_y"
	FieldDirZ             Field = "dir_z"
	FieldRedshift         Field = "redshift"
	FieldTrajectoryLength Field = "trajectory_length"
	FieldCause            Field = "cause"
	FieldObserver         Field = "observer"
)

// AllFields lists the schema in column order.
var AllFields = []Field{
	FieldSerial, FieldParentSerial, FieldLineage, FieldParticleID,
	FieldSourceEnergy, FieldCurrentEnergy,
	FieldX, FieldY, FieldZ,
	FieldDirX, FieldDirY, FieldDirZ,
	FieldRedshift, FieldTrajectoryLength, FieldCause, FieldObserver,
}

// FieldSet is the enabled subset of the schema for one sink.
type FieldSet map[Field]bool

// DefaultFields enables the columns most runs care about.
func DefaultFields() FieldSet {
	return FieldSet{
		FieldSerial:           true,
		FieldParticleID:       true,
		FieldSourceEnergy:     true,
		FieldCurrentEnergy:    true,
		FieldX:                true,
		FieldRedshift:         true,
		FieldTrajectoryLength: true,
	}
}

// ParseFields validates config field names against the schema.
// An empty list selects DefaultFields.
func ParseFields(names []string) (FieldSet, error) {
	if len(names) == 0 {
		return DefaultFields(), nil
	}
	known := map[Field]bool{}
	for _, f := range AllFields {
		known[f] = true
	}
	set := FieldSet{}
	for _, n := range names {
		f := Field(n)
		if !known[f] {
			return nil, fmt.Errorf("unknown output field %q", n)
		}
		set[f] = true
	}
	return set, nil
}

// Columns returns the enabled fields in schema order.
func (s FieldSet) Columns() []Field {
	var cols []Field
	for _, f := range AllFields {
		if s[f] {
			cols = append(cols, f)
		}
	}
	return cols
}

// Value formats one schema column of the snapshot.
// Floats use the shortest round-trip representation, which keeps text
// output byte-stable across runs.
func (s Snapshot) Value(f Field) string {
	switch f {
	case FieldSerial:
		return s.Serial
	case FieldParentSerial:
		return s.ParentSerial
	case FieldLineage:
		return s.Lineage
	case FieldParticleID:
		return strconv.Itoa(s.ParticleID)
	case FieldSourceEnergy:
		return formatFloat(s.SourceEnergy)
	case FieldCurrentEnergy:
		return formatFloat(s.CurrentEnergy)
	case FieldX:
		return formatFloat(s.Position.X)
	case FieldY:
		return formatFloat(s.Position.Y)
	case FieldZ:
		return formatFloat(s.Position.Z)
	case FieldDirX:
		return formatFloat(s.Direction.X)
	case FieldDirY:
		return formatFloat(s.Direction.Y)
	case FieldDirZ:
		return formatFloat(s.Direction.Z)
	case FieldRedshift:
		return formatFloat(s.Redshift)
	case FieldTrajectoryLength:
		return formatFloat(s.TrajectoryLength)
	case FieldCause:
		return s.Cause
	case FieldObserver:
		return s.Observer
	default:
		return ""
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
