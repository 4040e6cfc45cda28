package particle

import "fmt"

// Particle species codes.
//
// Nuclei use a packed numeric convention encoding charge and mass:
// 1000000000 + Z*10000 + A*10. Leptons and bosons use their PDG codes.
// The code is the single integer identity carried by a candidate; charge
// and mass are recovered arithmetically, never stored separately.
const (
	Electron     = 11
	Positron     = -11
	NuE          = 12
	AntiNuE      = -12
	Photon       = 22
	PiPlus       = 211
	PiMinus      = -211
	PiZero       = 111
	nucleusBase  = 1000000000
	nucleusLimit = 2000000000
)

// NucleusID returns the species code for a nucleus with mass number a and
// charge number z.
func NucleusID(a, z int) int {
	return nucleusBase + z*10000 + a*10
}

// Proton and Neutron are the two nucleon codes used throughout.
var (
	Proton  = NucleusID(1, 1)
	Neutron = NucleusID(1, 0)
)

// IsNucleus reports whether id uses the packed nucleus convention.
func IsNucleus(id int) bool {
	return id >= nucleusBase && id < nucleusLimit
}

// MassNumber returns A for a nucleus code, 0 otherwise.
func MassNumber(id int) int {
	if !IsNucleus(id) {
		return 0
	}
	return (id % 10000) / 10
}

// ChargeNumber returns Z for a nucleus code, 0 otherwise.
func ChargeNumber(id int) int {
	if !IsNucleus(id) {
		return 0
	}
	return (id - nucleusBase) / 10000
}

// speciesNames maps config-facing names to species codes.
// Keep in sync with the config schema's particle enum.
var speciesNames = map[string]int{
	"proton":    Proton,
	"neutron":   Neutron,
	"electron":  Electron,
	"positron":  Positron,
	"photon":    Photon,
	"nu_e":      NuE,
	"anti_nu_e": AntiNuE,
	"pi_plus":   PiPlus,
	"pi_minus":  PiMinus,
	"pi_zero":   PiZero,
	"helium":    NucleusID(4, 2),
	"carbon":    NucleusID(12, 6),
	"nitrogen":  NucleusID(14, 7),
	"oxygen":    NucleusID(16, 8),
	"iron":      NucleusID(56, 26),
}

// ParseSpecies resolves a config particle name to its species code.
// Unknown names are a configuration error.
func ParseSpecies(name string) (int, error) {
	id, ok := speciesNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown particle %q", name)
	}
	return id, nil
}

// SpeciesName returns the config-facing name for a species code, or a
// numeric fallback for codes without a registered name.
func SpeciesName(id int) string {
	for name, code := range speciesNames {
		if code == id {
			return name
		}
	}
	if IsNucleus(id) {
		return fmt.Sprintf("nucleus(A=%d,Z=%d)", MassNumber(id), ChargeNumber(id))
	}
	return fmt.Sprintf("pdg(%d)", id)
}
