package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a complete run
// configuration plus assertions on the resulting detections and terminal
// states.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the run configuration document, verbatim. Observers may
	// reference the sink name "memory"; the harness injects an in-process
	// sink under that name and drops any declared file outputs.
	Config string `yaml:"config"`

	// Assertions validate detections and terminal states.
	Assertions []Assertion `yaml:"assertions"`

	// Golden enables golden-file comparison of the canonical detection
	// trace.
	Golden bool `yaml:"golden,omitempty"`
}

// Assertion validates one aspect of a finished run.
type Assertion struct {
	// Type selects the assertion:
	//   - "detection_count": Observer detected Count candidates
	//   - "cause_count": Count candidates terminated with Cause
	//   - "terminal_cause": the candidate Lineage terminated with Cause
	//   - "terminal_count": the run produced Count terminal candidates
	Type string `yaml:"type"`

	Observer string `yaml:"observer,omitempty"`
	Cause    string `yaml:"cause,omitempty"`
	Lineage  string `yaml:"lineage,omitempty"`
	Count    int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertDetectionCount = "detection_count"
	AssertCauseCount     = "cause_count"
	AssertTerminalCause  = "terminal_cause"
	AssertTerminalCount  = "terminal_count"
)

// LoadScenario parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if s.Config == "" {
		return nil, fmt.Errorf("scenario %s: config is required", path)
	}
	return &s, nil
}

// LoadScenarios loads every scenario under dir, sorted by file name so
// test order is stable.
func LoadScenarios(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
