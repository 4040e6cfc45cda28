package config

import (
	"context"
	"fmt"
	"time"

	"github.com/skoglund/rayprop/internal/breakcond"
	"github.com/skoglund/rayprop/internal/interaction"
	"github.com/skoglund/rayprop/internal/metrics"
	"github.com/skoglund/rayprop/internal/observer"
	"github.com/skoglund/rayprop/internal/output"
	"github.com/skoglund/rayprop/internal/particle"
	"github.com/skoglund/rayprop/internal/propagation"
	"github.com/skoglund/rayprop/internal/sim"
	"github.com/skoglund/rayprop/internal/source"
)

// Engine is a fully wired run: source, module chain, sinks and metrics.
// Build constructs one from a validated Config; Run drives it; Close
// releases sinks and the event store.
type Engine struct {
	Config  *Config
	Source  *source.Source
	List    *sim.ModuleList
	Metrics *metrics.Run

	// Store and RunID are set when the config declares a sqlite output.
	Store *output.Store
	RunID string

	sinks    []output.Sink
	progress time.Duration
}

// BuildOption adjusts how Build wires the engine.
type BuildOption func(*buildOptions)

type buildOptions struct {
	serials     sim.SerialGenerator
	noOutputs   bool
	onTerminal  func(*particle.Candidate)
	extraSinks  map[string]output.Sink
	progressInt time.Duration
}

// WithSerials overrides the serial generator, used by tests and replay to
// make serials reproducible.
func WithSerials(g sim.SerialGenerator) BuildOption {
	return func(o *buildOptions) { o.serials = g }
}

// WithoutOutputs drops every declared output. Replay uses this to rerun a
// stored config without touching the filesystem.
func WithoutOutputs() BuildOption {
	return func(o *buildOptions) { o.noOutputs = true }
}

// WithTerminalFunc registers an extra callback invoked for every candidate
// that reaches a terminal state, after any store write.
func WithTerminalFunc(fn func(*particle.Candidate)) BuildOption {
	return func(o *buildOptions) { o.onTerminal = fn }
}

// WithSink registers an in-process sink under the given name so observers
// can reference it like a declared output.
func WithSink(name string, s output.Sink) BuildOption {
	return func(o *buildOptions) {
		if o.extraSinks == nil {
			o.extraSinks = map[string]output.Sink{}
		}
		o.extraSinks[name] = s
	}
}

// WithProgressInterval overrides the progress report interval.
func WithProgressInterval(d time.Duration) BuildOption {
	return func(o *buildOptions) { o.progressInt = d }
}

// Build wires a Config into a runnable Engine. raw is the original config
// document; it is recorded verbatim in the event store so replay can
// rebuild the identical engine.
func Build(cfg *Config, raw []byte, opts ...BuildOption) (*Engine, error) {
	bo := buildOptions{progressInt: 10 * time.Second}
	for _, opt := range opts {
		opt(&bo)
	}

	src, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}

	eng := &Engine{
		Config:   cfg,
		Source:   src,
		Metrics:  metrics.NewRun(),
		progress: bo.progressInt,
	}

	detections := map[string]output.Sink{}
	for name, s := range bo.extraSinks {
		detections[name] = s
	}
	var trailing []sim.Module

	if bo.noOutputs {
		if err := declareOutputs(cfg, detections); err != nil {
			eng.Close()
			return nil, err
		}
	} else if err := eng.buildOutputs(cfg, raw, detections, &trailing); err != nil {
		eng.Close()
		return nil, err
	}

	modules, err := eng.buildModules(cfg, detections)
	if err != nil {
		eng.Close()
		return nil, err
	}
	modules = append(modules, trailing...)

	listOpts := []sim.Option{
		sim.WithSeed(cfg.Seed),
		sim.WithMaxSteps(cfg.MaxSteps),
		sim.WithWorkers(cfg.Workers),
		sim.WithMetrics(eng.Metrics),
	}
	if bo.serials != nil {
		listOpts = append(listOpts, sim.WithSerials(bo.serials))
	}
	if fn := eng.terminalFunc(bo.onTerminal); fn != nil {
		listOpts = append(listOpts, sim.WithTerminalFunc(fn))
	}

	list, err := sim.NewModuleList(modules, listOpts...)
	if err != nil {
		eng.Close()
		return nil, err
	}
	eng.List = list
	return eng, nil
}

// Run executes the configured run to completion or cancellation.
func (e *Engine) Run(ctx context.Context) error {
	if e.Config.Progress {
		pctx, stop := context.WithCancel(ctx)
		defer stop()
		go e.Metrics.ReportProgress(pctx, e.progress)
	}
	return e.List.RunSource(ctx, e.Source, e.Config.Count)
}

// Close flushes and closes every sink and the event store. Safe to call
// after a failed Build.
func (e *Engine) Close() error {
	var first error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	e.sinks = nil
	if e.Store != nil {
		if err := e.Store.Close(); err != nil && first == nil {
			first = err
		}
		e.Store = nil
	}
	return first
}

// terminalFunc composes the store terminal write with any caller callback.
func (e *Engine) terminalFunc(extra func(*particle.Candidate)) func(*particle.Candidate) {
	store, runID := e.Store, e.RunID
	if store == nil && extra == nil {
		return nil
	}
	return func(c *particle.Candidate) {
		if store != nil {
			if err := store.WriteTerminal(runID, output.NewSnapshot(c)); err != nil {
				e.Metrics.SinkFailures.Inc()
			}
		}
		if extra != nil {
			extra(c)
		}
	}
}

func buildSource(cfg *Config) (*source.Source, error) {
	if len(cfg.Source.Properties) == 0 {
		return nil, sim.NewConfigError("source: at least one property is required")
	}
	props := make([]source.Property, 0, len(cfg.Source.Properties))
	for i, pc := range cfg.Source.Properties {
		p, err := buildProperty(pc)
		if err != nil {
			return nil, fmt.Errorf("source property %d: %w", i, err)
		}
		props = append(props, p)
	}
	return source.New(cfg.Seed, props...)
}

func buildProperty(pc PropertyConfig) (source.Property, error) {
	switch pc.Type {
	case "position":
		v, err := vector3(pc.Position)
		if err != nil {
			return nil, sim.NewConfigError("position: %v", err)
		}
		return source.Position{Point: v}, nil
	case "uniform_position":
		if len(pc.Range) != 2 {
			return nil, sim.NewConfigError("uniform_position: range must have 2 elements, got %d", len(pc.Range))
		}
		return source.NewUniformPosition1D(pc.Range[0], pc.Range[1])
	case "direction":
		v, err := vector3(pc.Direction)
		if err != nil {
			return nil, sim.NewConfigError("direction: %v", err)
		}
		return source.NewDirection(v)
	case "particle":
		id, err := particle.ParseSpecies(pc.Particle)
		if err != nil {
			return nil, sim.NewConfigError("particle: %v", err)
		}
		return source.ParticleType{ID: id}, nil
	case "energy":
		return source.NewEnergy(pc.Energy)
	case "power_law":
		return source.NewPowerLawSpectrum(pc.EMin, pc.EMax, pc.Index)
	case "redshift":
		return source.NewRedshift(pc.Redshift)
	default:
		return nil, sim.NewConfigError("unknown source property type %q", pc.Type)
	}
}

func vector3(v []float64) (particle.Vector3, error) {
	if len(v) != 3 {
		return particle.Vector3{}, fmt.Errorf("want 3 components, got %d", len(v))
	}
	return particle.Vector3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// declareOutputs runs the declared-output checks without opening anything
// and binds detection-stream names to discarding sinks. Validate and
// replay rebuild engines this way: observers referencing declared outputs
// must still resolve, but no file or database may be touched.
func declareOutputs(cfg *Config, detections map[string]output.Sink) error {
	sqlite := false
	for _, oc := range cfg.Outputs {
		if oc.Name == "" {
			return sim.NewConfigError("output: name is required")
		}
		if _, dup := detections[oc.Name]; dup {
			return sim.NewConfigError("output: duplicate name %q", oc.Name)
		}

		switch oc.Type {
		case "tsv":
			if len(oc.Fields) > 0 {
				if _, err := output.ParseFields(oc.Fields); err != nil {
					return sim.NewConfigError("output %q: %v", oc.Name, err)
				}
			}
		case "sqlite":
			if sqlite {
				return sim.NewConfigError("output %q: at most one sqlite output per run", oc.Name)
			}
			sqlite = true
		default:
			return sim.NewConfigError("output %q: unknown type %q", oc.Name, oc.Type)
		}

		if oc.Stream != "trajectory" {
			detections[oc.Name] = output.Discard{}
		}
	}
	return nil
}

// buildOutputs opens declared sinks. Detection sinks land in the
// detections map for observers to reference by name; trajectory sinks
// become modules appended after the configured chain.
func (e *Engine) buildOutputs(cfg *Config, raw []byte, detections map[string]output.Sink, trailing *[]sim.Module) error {
	for _, oc := range cfg.Outputs {
		if oc.Name == "" {
			return sim.NewConfigError("output: name is required")
		}
		if _, dup := detections[oc.Name]; dup {
			return sim.NewConfigError("output: duplicate name %q", oc.Name)
		}
		stream := oc.Stream
		if stream == "" {
			stream = "detections"
		}

		switch oc.Type {
		case "tsv":
			fields := output.DefaultFields()
			if len(oc.Fields) > 0 {
				var err error
				fields, err = output.ParseFields(oc.Fields)
				if err != nil {
					return sim.NewConfigError("output %q: %v", oc.Name, err)
				}
			}
			sink, err := output.NewTSVSink(oc.Path, fields)
			if err != nil {
				return sim.NewConfigError("output %q: %v", oc.Name, err)
			}
			e.sinks = append(e.sinks, sink)
			if stream == "trajectory" {
				*trailing = append(*trailing, output.NewTrajectoryModule(sink, e.Metrics.SinkFailures))
			} else {
				detections[oc.Name] = sink
			}

		case "sqlite":
			if e.Store != nil {
				return sim.NewConfigError("output %q: at most one sqlite output per run", oc.Name)
			}
			store, err := output.OpenStore(oc.Path)
			if err != nil {
				return sim.NewConfigError("output %q: %v", oc.Name, err)
			}
			runID, err := store.CreateRun(cfg.Seed, raw)
			if err != nil {
				store.Close()
				return sim.NewConfigError("output %q: %v", oc.Name, err)
			}
			e.Store = store
			e.RunID = runID
			if stream == "trajectory" {
				*trailing = append(*trailing, output.NewStepRecorder(store, runID, e.Metrics.SinkFailures))
			} else {
				detections[oc.Name] = output.NewStoreSink(store, runID)
			}

		default:
			return sim.NewConfigError("output %q: unknown type %q", oc.Name, oc.Type)
		}
	}
	return nil
}

func (e *Engine) buildModules(cfg *Config, detections map[string]output.Sink) ([]sim.Module, error) {
	if len(cfg.Modules) == 0 {
		return nil, sim.NewConfigError("modules: at least one module is required")
	}
	modules := make([]sim.Module, 0, len(cfg.Modules))
	for i, mc := range cfg.Modules {
		m, err := e.buildModule(mc, detections)
		if err != nil {
			return nil, fmt.Errorf("module %d (%s): %w", i, mc.Type, err)
		}
		modules = append(modules, m)
	}
	return modules, nil
}

func (e *Engine) buildModule(mc ModuleConfig, detections map[string]output.Sink) (sim.Module, error) {
	switch mc.Type {
	case "propagation":
		rel, err := redshiftRelation(mc)
		if err != nil {
			return nil, err
		}
		return propagation.NewSimplePropagation(mc.MinStep, mc.MaxStep, rel)

	case "photopion":
		var opts []func(*interaction.PhotoPionProduction)
		if mc.Threshold > 0 {
			opts = append(opts, func(p *interaction.PhotoPionProduction) { p.Threshold = mc.Threshold })
		}
		if mc.Inelasticity != 0 {
			opts = append(opts, func(p *interaction.PhotoPionProduction) { p.Inelasticity = mc.Inelasticity })
		}
		if mc.NeutronBranch != nil {
			opts = append(opts, func(p *interaction.PhotoPionProduction) { p.NeutronBranch = *mc.NeutronBranch })
		}
		if mc.Secondaries {
			opts = append(opts, func(p *interaction.PhotoPionProduction) { p.EmitPions = true })
		}
		impl, err := interaction.NewPhotoPionProduction(mc.InteractionLength, opts...)
		if err != nil {
			return nil, err
		}
		return interaction.NewStochastic(impl), nil

	case "pair_production":
		var opts []func(*interaction.ElectronPairProduction)
		if mc.Threshold > 0 {
			opts = append(opts, func(p *interaction.ElectronPairProduction) { p.Threshold = mc.Threshold })
		}
		if mc.LossFraction != 0 {
			opts = append(opts, func(p *interaction.ElectronPairProduction) { p.LossFraction = mc.LossFraction })
		}
		if mc.Secondaries {
			opts = append(opts, func(p *interaction.ElectronPairProduction) { p.EmitPairs = true })
		}
		impl, err := interaction.NewElectronPairProduction(mc.InteractionLength, opts...)
		if err != nil {
			return nil, err
		}
		return interaction.NewStochastic(impl), nil

	case "nuclear_decay":
		impl, err := interaction.NewNuclearDecay(interaction.DefaultDecayTable())
		if err != nil {
			return nil, err
		}
		return interaction.NewStochastic(impl), nil

	case "minimum_energy":
		return breakcond.NewMinimumEnergy(mc.EMin)

	case "maximum_trajectory_length":
		return breakcond.NewMaximumTrajectoryLength(mc.LMax)

	case "minimum_redshift":
		return breakcond.NewMinimumRedshift(mc.ZMin)

	case "observer":
		return e.buildObserver(mc, detections)

	default:
		return nil, sim.NewConfigError("unknown module type %q", mc.Type)
	}
}

func redshiftRelation(mc ModuleConfig) (propagation.RedshiftRelation, error) {
	switch mc.Redshift {
	case "", "none":
		return propagation.NoRedshift{}, nil
	case "linear":
		h0 := mc.H0
		if h0 == 0 {
			h0 = propagation.DefaultHubbleRate
		}
		return propagation.LinearRedshift{H0: h0}, nil
	default:
		return nil, sim.NewConfigError("unknown redshift relation %q", mc.Redshift)
	}
}

func (e *Engine) buildObserver(mc ModuleConfig, detections map[string]output.Sink) (sim.Module, error) {
	if mc.Name == "" {
		return nil, sim.NewConfigError("observer: name is required")
	}
	if len(mc.Points) == 0 {
		return nil, sim.NewConfigError("observer %q: at least one point is required", mc.Name)
	}
	predicates := make([]observer.Predicate, 0, len(mc.Points))
	for _, x := range mc.Points {
		predicates = append(predicates, observer.Point1D{X: x})
	}
	var sinks []output.Sink
	for _, name := range mc.Sinks {
		s, ok := detections[name]
		if !ok {
			return nil, sim.NewConfigError("observer %q: unknown sink %q", mc.Name, name)
		}
		sinks = append(sinks, s)
	}
	opts := []observer.ObserverOption{
		observer.WithCounters(e.Metrics.Detections, e.Metrics.SinkFailures),
	}
	if mc.MakeInactive != nil {
		opts = append(opts, observer.WithMakeInactive(*mc.MakeInactive))
	}
	return observer.New(mc.Name, predicates, sinks, opts...)
}
