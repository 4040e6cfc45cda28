package source

import (
	"fmt"
	"math"

	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/random"
	"github.com/skoglund/rayprop/internal/sim"
)

// PowerLawSpectrum samples energies with density proportional to E^Index
// on [EMin, EMax] by inverse-CDF sampling.
//
// For Index != -1 the inverse CDF has the closed form
//
//	E = (u*(EMax^(a) - EMin^(a)) + EMin^(a))^(1/a),  a = Index+1
//
// and for Index = -1 the logarithmic form
//
//	E = EMin * (EMax/EMin)^u
//
// so log(E) is uniform on [log EMin, log EMax].
type PowerLawSpectrum struct {
	EMin, EMax float64
	Index      float64
}

// NewPowerLawSpectrum validates the bounds. EMin > EMax or non-positive
// bounds are configuration errors.
func NewPowerLawSpectrum(eMin, eMax, index float64) (PowerLawSpectrum, error) {
	if eMin <= 0 || eMax <= 0 {
		return PowerLawSpectrum{}, sim.NewConfigError("spectrum bounds must be positive, got [%g, %g]", eMin, eMax)
	}
	if eMin > eMax {
		return PowerLawSpectrum{}, sim.NewConfigError("spectrum bounds inverted: emin %g > emax %g", eMin, eMax)
	}
	return PowerLawSpectrum{EMin: eMin, EMax: eMax, Index: index}, nil
}

// Apply samples the candidate's source energy.
func (p PowerLawSpectrum) Apply(c *particle.Candidate, rng random.Source) error {
	e := p.Sample(rng)
	c.SourceEnergy = e
	c.CurrentEnergy = e
	return nil
}

// Sample draws one energy from the spectrum.
func (p PowerLawSpectrum) Sample(rng random.Source) float64 {
	u := rng.Uniform()
	if p.Index == -1 {
		return p.EMin * math.Pow(p.EMax/p.EMin, u)
	}
	a := p.Index + 1
	lo := math.Pow(p.EMin, a)
	hi := math.Pow(p.EMax, a)
	return math.Pow(u*(hi-lo)+lo, 1/a)
}

func (p PowerLawSpectrum) String() string {
	return fmt.Sprintf("PowerLawSpectrum(E^%g on [%g, %g])", p.Index, p.EMin, p.EMax)
}
