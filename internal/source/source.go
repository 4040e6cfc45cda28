// Package source composes candidate generators from independent
// properties.
//
// A source applies each configured property once, in configuration order,
// to a blank candidate. Every property owns exactly one field group and
// reads nothing another property sets, so the order must not matter; the
// one documented exception is that sampling properties consume the
// source's random stream in configuration order, which is part of the
// reproducibility contract, not a data dependency.
package source

import (
	"fmt"

	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/random"
	"github.com/skoglund/rayprop/internal/sim"
)

// Property sets one field group on a freshly created candidate.
// Apply must be pure over the fields it owns. Sampling properties draw
// from rng, the source's private stream.
type Property interface {
	Apply(c *particle.Candidate, rng random.Source) error
	String() string
}

// Source generates freshly-initialized candidates.
type Source struct {
	props []Property
	rng   random.Source
}

// New builds a source from its properties. The source owns stream 0 of
// the run seed; candidate transport streams start at 1, so source
// sampling and transport sampling never overlap.
func New(seed uint64, props ...Property) (*Source, error) {
	if len(props) == 0 {
		return nil, sim.NewConfigError("source has no properties")
	}
	return &Source{props: props, rng: random.New(seed, 0)}, nil
}

// Generate builds one candidate by applying every property in order.
func (s *Source) Generate() (*particle.Candidate, error) {
	c := particle.New()
	for _, p := range s.props {
		if err := p.Apply(c, s.rng); err != nil {
			return nil, fmt.Errorf("source property %s: %w", p, err)
		}
	}
	return c, nil
}
