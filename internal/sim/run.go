package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/random"
)

// Source produces freshly-initialized candidates.
// Implemented by source.Source; Generate is called sequentially by the
// dispatch loop, so implementations need no internal locking for the
// sampling stream they own.
type Source interface {
	Generate() (*particle.Candidate, error)
}

// Run drives one candidate and its entire secondary subtree to
// termination.
//
// The worklist is seeded with the candidate; each pop loops full passes
// while the candidate is active, pushing any secondaries emitted during a
// pass for their own future passes. Run returns only when the worklist is
// drained.
//
// Calling Run with an inactive candidate is an invariant violation.
func (m *ModuleList) Run(root *particle.Candidate) error {
	return m.run(context.Background(), root)
}

// run is Run with cancellation: when ctx is done, candidates still queued
// in the worklist are deactivated without further module passes.
func (m *ModuleList) run(ctx context.Context, root *particle.Candidate) error {
	if root == nil {
		return &InvariantError{Message: "run called with nil candidate"}
	}
	if !root.Active {
		return &InvariantError{Message: "run called with inactive candidate", Lineage: root.Lineage}
	}

	m.adoptPrimary(root)

	w := newWorklist()
	w.Push(root)

	for {
		if ctx.Err() != nil {
			w.Drain(func(c *particle.Candidate) {
				c.Deactivate(CauseCancelled)
				m.finish(c)
			})
			return nil
		}
		c, ok := w.Pop()
		if !ok {
			return nil
		}
		if err := m.drive(c, w); err != nil {
			return err
		}
	}
}

// drive loops passes over one candidate until it is inactive, transferring
// emitted secondaries to the worklist after every pass.
func (m *ModuleList) drive(c *particle.Candidate, w *worklist) error {
	if !c.Active {
		return &InvariantError{Message: "worklist held inactive candidate", Lineage: c.Lineage}
	}

	steps := 0
	for c.Active {
		if err := m.Process(c); err != nil {
			var de *DomainError
			if errors.As(err, &de) {
				// Per-candidate domain failure: deactivate this candidate
				// only and keep the run going.
				c.Tags[particle.TagError] = de.Error()
				c.Deactivate("Error")
				if m.metrics != nil {
					m.metrics.DomainErrors.Inc()
				}
				slog.Warn("candidate deactivated by domain error",
					"candidate", c.Lineage,
					"module", de.Module,
					"error", de.Message,
				)
			} else {
				return err
			}
		}

		steps++
		if m.metrics != nil {
			m.metrics.Steps.Inc()
		}
		if c.Active && steps >= m.maxSteps {
			c.Deactivate(CauseStepsExceeded)
			slog.Warn("candidate exceeded step quota",
				"candidate", c.Lineage,
				"steps", steps,
				"limit", m.maxSteps,
			)
		}

		for _, s := range c.TakeSecondaries() {
			m.adoptSecondary(s)
			w.Push(s)
		}
	}

	m.finish(c)
	return nil
}

// finish records a terminal candidate.
func (m *ModuleList) finish(c *particle.Candidate) {
	if m.metrics != nil {
		m.metrics.Candidates.Inc()
	}
	if m.terminal != nil {
		m.terminal(c)
	}
	slog.Debug("candidate terminal",
		"candidate", c.Lineage,
		"cause", c.Cause(),
		"energy", c.CurrentEnergy,
		"trajectory", c.TrajectoryLength,
	)
}

// adoptPrimary fills in scheduler-owned identity for a candidate entering
// the drive loop directly, without going through RunSource.
func (m *ModuleList) adoptPrimary(c *particle.Candidate) {
	if c.Lineage == "" || c.Random() == nil {
		seq := m.clock.Next()
		if c.Lineage == "" {
			c.Lineage = fmt.Sprintf("c%06d", seq)
		}
		if c.Random() == nil {
			c.SetRandom(random.New(m.seed, uint64(seq)))
		}
	}
	if c.Serial == "" {
		c.Serial = m.serials.Generate()
	}
}

// adoptSecondary assigns a serial to a freshly emitted secondary.
// Lineage and random stream were already derived from the parent.
func (m *ModuleList) adoptSecondary(c *particle.Candidate) {
	if c.Serial == "" {
		c.Serial = m.serials.Generate()
	}
	if m.metrics != nil {
		m.metrics.Secondaries.Inc()
	}
}

// RunSource generates up to count candidates and drives each, plus its
// secondaries, to termination.
//
// Candidates are numbered and seeded sequentially in the dispatch loop, so
// their random streams do not depend on the worker count. Workers own
// private worklists; the shared module list is only read. On context
// cancellation dispatch stops and already-queued candidates are
// deactivated without further module passes (best-effort early
// termination).
//
// A source failure before count candidates were generated is fatal to the
// whole call.
func (m *ModuleList) RunSource(ctx context.Context, src Source, count int) error {
	if src == nil {
		return NewConfigError("source is nil")
	}
	if count <= 0 {
		return NewConfigError("candidate count must be positive, got %d", count)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *particle.Candidate)

	var (
		wg       sync.WaitGroup
		firstErr error
		errOnce  sync.Once
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if ctx.Err() != nil {
					// Early termination: deactivate without running
					// further modules.
					c.Deactivate(CauseCancelled)
					m.finish(c)
					continue
				}
				if err := m.run(ctx, c); err != nil {
					fail(err)
				}
			}
		}()
	}

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		c, err := src.Generate()
		if err != nil {
			fail(fmt.Errorf("%s: source failed after %d of %d candidates: %w",
				CodeSourceExhausted, i, count, err))
			break
		}
		seq := m.clock.Next()
		c.Lineage = fmt.Sprintf("c%06d", seq)
		c.Serial = m.serials.Generate()
		c.SetRandom(random.New(m.seed, uint64(seq)))
		jobs <- c
	}

	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
