package propagation

// Physical constants (SI).
const (
	// SpeedOfLight in m/s.
	SpeedOfLight = 299792458.0

	// Mpc in meters.
	Mpc = 3.0856775814913673e22

	// DefaultHubbleRate H0 in 1/s (67.3 km/s/Mpc).
	DefaultHubbleRate = 67.3 * 1000 / Mpc
)

// RedshiftRelation maps a travelled distance to a redshift decrement.
// The concrete cosmology is an external collaborator; the engine only
// requires that candidates moving toward the observer never gain redshift.
type RedshiftRelation interface {
	// Delta returns the (non-negative) redshift decrease for a step of
	// the given length taken at redshift z.
	Delta(step, z float64) float64
}

// NoRedshift leaves the redshift untouched. Used for local-universe setups
// and for fully deterministic golden scenarios.
type NoRedshift struct{}

// Delta always returns 0.
func (NoRedshift) Delta(step, z float64) float64 { return 0 }

// LinearRedshift is the small-z approximation dz = H0/c * (1+z) * dx.
type LinearRedshift struct {
	// H0 is the Hubble rate in 1/s. Zero means DefaultHubbleRate.
	H0 float64
}

// Delta returns the linear redshift decrement for the step.
func (r LinearRedshift) Delta(step, z float64) float64 {
	h := r.H0
	if h == 0 {
		h = DefaultHubbleRate
	}
	return h / SpeedOfLight * (1 + z) * step
}
