package interaction

import (
	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/sim"
)

// ElectronPairProduction models Bethe-Heitler pair production of charged
// nuclei on a background photon field.
//
// The per-event energy loss is small so the process behaves almost
// continuously, but it runs through the same free-path sampling as every
// other interaction, keeping the negotiation rule uniform.
type ElectronPairProduction struct {
	// InteractionLength is the mean free path in meters above threshold.
	InteractionLength float64

	// Threshold is the minimum energy in eV. Defaults to 1e18.
	Threshold float64

	// LossFraction is the fractional energy lost per event.
	// Defaults to 1e-3 (the two electron masses against a proton mass).
	LossFraction float64

	// EmitPairs controls whether the produced electron and positron are
	// tracked as secondary candidates.
	EmitPairs bool
}

// NewElectronPairProduction validates the parametrization.
func NewElectronPairProduction(length float64, opts ...func(*ElectronPairProduction)) (*ElectronPairProduction, error) {
	if length <= 0 {
		return nil, sim.NewConfigError("pair production: interaction length must be positive, got %g", length)
	}
	p := &ElectronPairProduction{
		InteractionLength: length,
		Threshold:         1e18,
		LossFraction:      1e-3,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.LossFraction <= 0 || p.LossFraction >= 1 {
		return nil, sim.NewConfigError("pair production: loss fraction must be in (0, 1), got %g", p.LossFraction)
	}
	return p, nil
}

func (p *ElectronPairProduction) Name() string { return "ElectronPairProduction" }

// MeanFreePath applies to charged nuclei at or above threshold.
func (p *ElectronPairProduction) MeanFreePath(c *particle.Candidate) (float64, bool) {
	if !particle.IsNucleus(c.ParticleID) || particle.ChargeNumber(c.ParticleID) == 0 {
		return 0, false
	}
	if c.CurrentEnergy < p.Threshold {
		return 0, false
	}
	return p.InteractionLength, true
}

// Perform removes the loss fraction and optionally emits the pair.
func (p *ElectronPairProduction) Perform(c *particle.Candidate) error {
	loss := p.LossFraction * c.CurrentEnergy
	c.CurrentEnergy -= loss

	if p.EmitPairs {
		c.AddSecondary(particle.Electron, loss/2)
		c.AddSecondary(particle.Positron, loss/2)
	}
	return nil
}
