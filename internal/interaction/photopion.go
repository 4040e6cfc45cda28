package interaction

import (
	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/sim"
)

// Proton rest energy in eV, used for Lorentz factors.
const protonMassEnergy = 9.382720813e8

// PhotoPionProduction models pion production of nucleons on a background
// photon field with a parametrized constant mean free path above
// threshold.
//
// Each interaction transfers the configured inelasticity to a pion and may
// convert the nucleon between proton and neutron (charge exchange).
type PhotoPionProduction struct {
	// InteractionLength is the mean free path in meters above threshold.
	InteractionLength float64

	// Threshold is the minimum nucleon energy in eV. Below it the process
	// is inactive. Defaults to 5e19 (the GZK regime) via the constructor.
	Threshold float64

	// Inelasticity is the fractional energy transferred per interaction.
	Inelasticity float64

	// NeutronBranch is the probability of charge exchange per interaction.
	NeutronBranch float64

	// EmitPions controls whether the produced pion is tracked as a
	// secondary candidate.
	EmitPions bool
}

// NewPhotoPionProduction validates the parametrization and applies
// defaults: threshold 5e19 eV, inelasticity 0.2, neutron branch 0.5.
func NewPhotoPionProduction(length float64, opts ...func(*PhotoPionProduction)) (*PhotoPionProduction, error) {
	if length <= 0 {
		return nil, sim.NewConfigError("photopion: interaction length must be positive, got %g", length)
	}
	p := &PhotoPionProduction{
		InteractionLength: length,
		Threshold:         5e19,
		Inelasticity:      0.2,
		NeutronBranch:     0.5,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.Inelasticity <= 0 || p.Inelasticity >= 1 {
		return nil, sim.NewConfigError("photopion: inelasticity must be in (0, 1), got %g", p.Inelasticity)
	}
	if p.NeutronBranch < 0 || p.NeutronBranch > 1 {
		return nil, sim.NewConfigError("photopion: neutron branch must be in [0, 1], got %g", p.NeutronBranch)
	}
	return p, nil
}

func (p *PhotoPionProduction) Name() string { return "PhotoPionProduction" }

// MeanFreePath applies to nucleons at or above threshold.
func (p *PhotoPionProduction) MeanFreePath(c *particle.Candidate) (float64, bool) {
	if c.ParticleID != particle.Proton && c.ParticleID != particle.Neutron {
		return 0, false
	}
	if c.CurrentEnergy < p.Threshold {
		return 0, false
	}
	return p.InteractionLength, true
}

// Perform transfers the inelasticity to a pion and samples the charge
// exchange branch.
func (p *PhotoPionProduction) Perform(c *particle.Candidate) error {
	loss := p.Inelasticity * c.CurrentEnergy
	c.CurrentEnergy -= loss

	pion := particle.PiZero
	if c.Random().Uniform() < p.NeutronBranch {
		if c.ParticleID == particle.Proton {
			c.ParticleID = particle.Neutron
			pion = particle.PiPlus
		} else {
			c.ParticleID = particle.Proton
			pion = particle.PiMinus
		}
	}

	if p.EmitPions {
		c.AddSecondary(pion, loss)
	}
	return nil
}
