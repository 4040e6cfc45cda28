// Package config loads and validates rayprop run configurations.
//
// A configuration is a YAML document validated in two layers: an embedded
// CUE schema gates structure (field names, types, enums, basic bounds), and
// the Go builder in build.go enforces the cross-field rules that need
// domain context (spectrum bounds, sink references, terminator presence).
// All failures surface as sim.ConfigError so callers can map them to the
// usage exit code.
package config

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/skoglund/rayprop/internal/sim"
)

// Run modes.
const (
	// ModeSource generates Count primaries from the configured source.
	ModeSource = "source"
	// ModeSingle generates exactly one primary regardless of Count.
	ModeSingle = "single"
)

// Config is the decoded form of a run configuration document.
type Config struct {
	Seed     uint64 `yaml:"seed"`
	Mode     string `yaml:"mode"`
	Count    int    `yaml:"count"`
	Workers  int    `yaml:"workers"`
	MaxSteps int    `yaml:"max_steps"`
	Progress bool   `yaml:"progress"`

	Source  SourceConfig   `yaml:"source"`
	Modules []ModuleConfig `yaml:"modules"`
	Outputs []OutputConfig `yaml:"outputs"`
}

// SourceConfig lists the properties applied, in order, to every primary.
type SourceConfig struct {
	Properties []PropertyConfig `yaml:"properties"`
}

// PropertyConfig is one source property. Type selects which of the
// remaining fields are meaningful; the builder rejects mismatches.
type PropertyConfig struct {
	Type string `yaml:"type"`

	Position  []float64 `yaml:"position,omitempty"`
	Range     []float64 `yaml:"range,omitempty"`
	Direction []float64 `yaml:"direction,omitempty"`
	Particle  string    `yaml:"particle,omitempty"`
	Energy    float64   `yaml:"energy,omitempty"`
	EMin      float64   `yaml:"emin,omitempty"`
	EMax      float64   `yaml:"emax,omitempty"`
	Index     float64   `yaml:"index,omitempty"`
	Redshift  float64   `yaml:"redshift,omitempty"`
}

// ModuleConfig is one entry in the process chain. Type selects the module;
// the remaining fields parameterize it.
type ModuleConfig struct {
	Type string `yaml:"type"`

	// propagation
	MinStep  float64 `yaml:"min_step,omitempty"`
	MaxStep  float64 `yaml:"max_step,omitempty"`
	Redshift string  `yaml:"redshift,omitempty"`
	H0       float64 `yaml:"h0,omitempty"`

	// stochastic interactions
	InteractionLength float64  `yaml:"interaction_length,omitempty"`
	Threshold         float64  `yaml:"threshold,omitempty"`
	Inelasticity      float64  `yaml:"inelasticity,omitempty"`
	NeutronBranch     *float64 `yaml:"neutron_branch,omitempty"`
	LossFraction      float64  `yaml:"loss_fraction,omitempty"`
	Secondaries       bool     `yaml:"secondaries,omitempty"`

	// break conditions
	EMin float64 `yaml:"emin,omitempty"`
	LMax float64 `yaml:"lmax,omitempty"`
	ZMin float64 `yaml:"zmin,omitempty"`

	// observer
	Name         string    `yaml:"name,omitempty"`
	Points       []float64 `yaml:"points,omitempty"`
	MakeInactive *bool     `yaml:"make_inactive,omitempty"`
	Sinks        []string  `yaml:"sinks,omitempty"`
}

// OutputConfig declares a named sink. Stream selects what feeds it:
// "detections" sinks are referenced by observers, "trajectory" sinks
// receive one record per candidate per pass.
type OutputConfig struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Path   string   `yaml:"path"`
	Stream string   `yaml:"stream,omitempty"`
	Fields []string `yaml:"fields,omitempty"`
}

// Defaults applied by Load when the document leaves a field unset.
const (
	DefaultMode     = ModeSource
	DefaultCount    = 1
	DefaultWorkers  = 1
	DefaultMaxSteps = 1000
)

// Load parses and validates a configuration document. The raw bytes are
// validated against the embedded CUE schema before decoding, so a Config
// returned by Load is structurally sound; builder-level rules still apply.
func Load(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode:     DefaultMode,
		Count:    DefaultCount,
		Workers:  DefaultWorkers,
		MaxSteps: DefaultMaxSteps,
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, sim.NewConfigError("decode config: %v", err)
	}

	if cfg.Mode == ModeSingle {
		cfg.Count = 1
	}
	return cfg, nil
}
