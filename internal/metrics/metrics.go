// Package metrics exposes run counters on a private Prometheus registry.
//
// Counters are purely observational: progress reporting and the optional
// metrics endpoint consume them, and nothing in the engine reads them back.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run holds the counters for one simulation run.
//
// Thread-safety: prometheus counters are safe for concurrent use; workers
// increment them without coordination.
type Run struct {
	registry *prometheus.Registry

	Candidates   prometheus.Counter // candidates driven to a terminal state
	Steps        prometheus.Counter // full module-list passes executed
	Secondaries  prometheus.Counter // secondaries spawned
	Detections   prometheus.Counter // observer detections
	SinkFailures prometheus.Counter // output sink write failures
	DomainErrors prometheus.Counter // candidates deactivated by domain errors
}

// NewRun creates a run metrics set on its own registry.
func NewRun() *Run {
	r := &Run{registry: prometheus.NewRegistry()}

	r.Candidates = counter(r.registry, "rayprop_candidates_total",
		"Candidates driven to a terminal state.")
	r.Steps = counter(r.registry, "rayprop_steps_total",
		"Full module-list passes executed.")
	r.Secondaries = counter(r.registry, "rayprop_secondaries_total",
		"Secondary candidates spawned by interactions and decays.")
	r.Detections = counter(r.registry, "rayprop_detections_total",
		"Observer detections forwarded to sinks.")
	r.SinkFailures = counter(r.registry, "rayprop_sink_failures_total",
		"Output sink write failures (reported, never fatal).")
	r.DomainErrors = counter(r.registry, "rayprop_domain_errors_total",
		"Candidates deactivated by per-candidate domain errors.")

	return r
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format. Used by the run command's --metrics-listen flag.
func (r *Run) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry for test gathering.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

func counter(reg *prometheus.Registry, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	reg.MustRegister(c)
	return c
}
