// Package harness provides a conformance testing framework for the
// propagation engine.
//
// A scenario carries a complete run configuration and a set of assertions.
// The harness builds the engine from the configuration with deterministic
// serials and an injected in-process detection sink, drives the run to
// completion and evaluates the assertions against the collected detections
// and terminal states. Scenarios marked golden additionally compare the
// canonical detection trace against a golden file.
package harness

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/skoglund/rayprop/internal/config"
	"github.com/skoglund/rayprop/internal/output"
	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/sim"
)

// MemorySinkName is the sink name scenarios use to reference the injected
// in-process detection sink.
const MemorySinkName = "memory"

// Result collects everything a finished scenario run produced.
type Result struct {
	// Detections are the snapshots the injected sink received, sorted by
	// lineage then observer for stable comparison.
	Detections []output.Snapshot

	// Terminals maps lineage to the terminal snapshot of each candidate.
	Terminals map[string]output.Snapshot

	// Passed is false if any assertion failed.
	Passed bool

	// Failures lists assertion failure messages.
	Failures []string
}

func (r *Result) fail(format string, args ...any) {
	r.Passed = false
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Run executes a scenario and evaluates its assertions.
//
// Each scenario runs against a fresh engine with sequential serials, so
// detection traces are reproducible across runs and machines.
func Run(scenario *Scenario) (*Result, error) {
	raw := []byte(scenario.Config)
	cfg, err := config.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	mem := output.NewMemorySink()
	var mu sync.Mutex
	terminals := map[string]output.Snapshot{}

	eng, err := config.Build(cfg, raw,
		config.WithoutOutputs(),
		config.WithSink(MemorySinkName, mem),
		config.WithSerials(sim.NewSequentialGenerator("s")),
		config.WithTerminalFunc(func(c *particle.Candidate) {
			snap := output.NewSnapshot(c)
			mu.Lock()
			terminals[snap.Lineage] = snap
			mu.Unlock()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	defer eng.Close()

	if err := eng.Run(context.Background()); err != nil {
		return nil, fmt.Errorf("scenario %s: run: %w", scenario.Name, err)
	}

	detections := mem.Snapshots()
	sort.Slice(detections, func(i, j int) bool {
		if detections[i].Lineage != detections[j].Lineage {
			return detections[i].Lineage < detections[j].Lineage
		}
		return detections[i].Observer < detections[j].Observer
	})

	result := &Result{
		Detections: detections,
		Terminals:  terminals,
		Passed:     true,
	}
	evaluate(scenario, result)
	return result, nil
}

func evaluate(scenario *Scenario, result *Result) {
	for i, a := range scenario.Assertions {
		switch a.Type {
		case AssertDetectionCount:
			got := 0
			for _, d := range result.Detections {
				if a.Observer == "" || d.Observer == a.Observer {
					got++
				}
			}
			if got != a.Count {
				result.fail("assertion %d: detection count %d, want %d (observer %q)", i, got, a.Count, a.Observer)
			}

		case AssertCauseCount:
			got := 0
			for _, t := range result.Terminals {
				if t.Cause == a.Cause {
					got++
				}
			}
			if got != a.Count {
				result.fail("assertion %d: %d candidates with cause %q, want %d", i, got, a.Cause, a.Count)
			}

		case AssertTerminalCause:
			t, ok := result.Terminals[a.Lineage]
			if !ok {
				result.fail("assertion %d: no terminal candidate with lineage %q", i, a.Lineage)
			} else if t.Cause != a.Cause {
				result.fail("assertion %d: lineage %q terminated with %q, want %q", i, a.Lineage, t.Cause, a.Cause)
			}

		case AssertTerminalCount:
			if got := len(result.Terminals); got != a.Count {
				result.fail("assertion %d: %d terminal candidates, want %d", i, got, a.Count)
			}

		default:
			result.fail("assertion %d: unknown type %q", i, a.Type)
		}
	}
}
