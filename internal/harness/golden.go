package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/skoglund/rayprop/internal/output"
)

// RunWithGolden executes a scenario and compares its canonical detection
// trace against a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can additionally inspect assertions;
// golden mismatch fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, output.EncodeTrace(result.Detections))
	return result, nil
}
