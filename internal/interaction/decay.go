package interaction

import (
	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/propagation"
	"github.com/skoglund/rayprop/internal/sim"
)

// DecayProduct is one light decay product carrying a fixed fraction of the
// parent energy.
type DecayProduct struct {
	ID       int
	Fraction float64
}

// DecayChannel describes the decay of one unstable species.
type DecayChannel struct {
	// Lifetime is the rest-frame mean lifetime in seconds.
	Lifetime float64

	// NewID is the species the candidate becomes. The candidate keeps the
	// energy not carried away by Products.
	NewID int

	// Products are emitted as secondary candidates.
	Products []DecayProduct
}

// NuclearDecay decays unstable species with a lifetime table.
//
// The lab-frame decay length is gamma * c * tau with gamma taken from the
// nucleon rest energy, so higher-energy candidates survive longer. The
// built-in table covers free neutron beta decay; richer tables are
// injected through NewNuclearDecay.
type NuclearDecay struct {
	table map[int]DecayChannel
}

// DefaultDecayTable returns the minimal built-in lifetime table:
// free neutron beta decay (tau = 880 s) into a proton plus an electron
// and an electron antineutrino carrying a small energy fraction each.
func DefaultDecayTable() map[int]DecayChannel {
	return map[int]DecayChannel{
		particle.Neutron: {
			Lifetime: 880,
			NewID:    particle.Proton,
			Products: []DecayProduct{
				{ID: particle.Electron, Fraction: 4e-4},
				{ID: particle.AntiNuE, Fraction: 4e-4},
			},
		},
	}
}

// NewNuclearDecay validates a lifetime table. A nil table selects the
// built-in default.
func NewNuclearDecay(table map[int]DecayChannel) (*NuclearDecay, error) {
	if table == nil {
		table = DefaultDecayTable()
	}
	for id, ch := range table {
		if ch.Lifetime <= 0 {
			return nil, sim.NewConfigError("decay: lifetime for %s must be positive, got %g",
				particle.SpeciesName(id), ch.Lifetime)
		}
		total := 0.0
		for _, pr := range ch.Products {
			if pr.Fraction <= 0 {
				return nil, sim.NewConfigError("decay: product fraction for %s must be positive", particle.SpeciesName(id))
			}
			total += pr.Fraction
		}
		if total >= 1 {
			return nil, sim.NewConfigError("decay: product fractions for %s sum to %g, must stay below 1",
				particle.SpeciesName(id), total)
		}
	}
	return &NuclearDecay{table: table}, nil
}

func (d *NuclearDecay) Name() string { return "NuclearDecay" }

// MeanFreePath is the lab-frame decay length of an unstable candidate.
func (d *NuclearDecay) MeanFreePath(c *particle.Candidate) (float64, bool) {
	ch, ok := d.table[c.ParticleID]
	if !ok {
		return 0, false
	}
	restEnergy := float64(particle.MassNumber(c.ParticleID)) * protonMassEnergy
	if restEnergy <= 0 || c.CurrentEnergy <= 0 {
		return 0, false
	}
	gamma := c.CurrentEnergy / restEnergy
	if gamma < 1 {
		gamma = 1
	}
	return gamma * propagation.SpeedOfLight * ch.Lifetime, true
}

// Perform applies the decay: the candidate changes species and the light
// products are emitted as secondaries at the decay point.
func (d *NuclearDecay) Perform(c *particle.Candidate) error {
	ch, ok := d.table[c.ParticleID]
	if !ok {
		return sim.NewDomainError(d.Name(), "no decay channel for %s", particle.SpeciesName(c.ParticleID))
	}

	kept := c.CurrentEnergy
	for _, pr := range ch.Products {
		e := pr.Fraction * c.CurrentEnergy
		c.AddSecondary(pr.ID, e)
		kept -= e
	}

	c.ParticleID = ch.NewID
	c.CurrentEnergy = kept
	return nil
}
