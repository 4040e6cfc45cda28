package metrics

import (
	"context"
	"log/slog"
	"time"
)

// Snapshot gathers the current counter values keyed by metric name.
func (r *Run) Snapshot() map[string]float64 {
	out := map[string]float64{}
	mfs, err := r.registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				out[mf.GetName()] = c.GetValue()
			}
		}
	}
	return out
}

// ReportProgress logs counter values at the given interval until ctx is
// cancelled. Cosmetic only: enabling or disabling it has no behavioral
// effect on the run.
func (r *Run) ReportProgress(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := r.Snapshot()
			slog.Info("progress",
				"candidates", s["rayprop_candidates_total"],
				"steps", s["rayprop_steps_total"],
				"secondaries", s["rayprop_secondaries_total"],
				"detections", s["rayprop_detections_total"],
			)
		}
	}
}
