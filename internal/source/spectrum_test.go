package source

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skoglund/rayprop/internal/random"
	"github.com/skoglund/rayprop/internal/sim"
)

func TestNewPowerLawSpectrum_InvalidBounds(t *testing.T) {
	cases := []struct {
		name       string
		emin, emax float64
	}{
		{"zero emin", 0, 1e20},
		{"negative emax", 1e18, -1},
		{"inverted", 1e20, 1e18},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPowerLawSpectrum(tc.emin, tc.emax, -2)
			require.Error(t, err)
			assert.True(t, sim.IsConfigError(err))
		})
	}
}

func TestPowerLawSpectrum_Sample_WithinBounds(t *testing.T) {
	for _, index := range []float64{-2.7, -1, 0, 1.5} {
		spec, err := NewPowerLawSpectrum(1e18, 1e21, index)
		require.NoError(t, err)

		rng := random.New(9, 0)
		for i := 0; i < 10000; i++ {
			e := spec.Sample(rng)
			assert.GreaterOrEqual(t, e, 1e18)
			assert.LessOrEqual(t, e, 1e21)
		}
	}
}

// For index -1 the sampler is log-uniform: over many draws from [1, 200],
// log(E) fills equal log-spaced bins evenly, not just symmetrically.
func TestPowerLawSpectrum_Sample_LogUniform(t *testing.T) {
	spec, err := NewPowerLawSpectrum(1, 200, -1)
	require.NoError(t, err)

	const (
		n    = 100000
		bins = 10
	)
	lo, hi := math.Log(1.0), math.Log(200.0)

	rng := random.New(11, 0)
	var counts [bins]int
	var sum float64
	for i := 0; i < n; i++ {
		l := math.Log(spec.Sample(rng))
		sum += l
		b := int((l - lo) / (hi - lo) * bins)
		if b == bins {
			b = bins - 1
		}
		counts[b]++
	}

	// Each bin holds n/bins draws within 5%, far beyond the binomial
	// fluctuation at this sample size.
	want := float64(n) / bins
	for b, got := range counts {
		assert.InDelta(t, want, float64(got), 0.05*want, "bin %d", b)
	}
	assert.InDelta(t, (lo+hi)/2, sum/n, 0.05)
}

func TestPowerLawSpectrum_Apply_SetsBothEnergies(t *testing.T) {
	spec, err := NewPowerLawSpectrum(1e18, 1e21, -2)
	require.NoError(t, err)

	rng := random.New(5, 0)
	src, err := New(5, spec)
	require.NoError(t, err)

	c, err := src.Generate()
	require.NoError(t, err)
	assert.Equal(t, c.SourceEnergy, c.CurrentEnergy)
	assert.Equal(t, spec.Sample(rng), c.SourceEnergy)
}
