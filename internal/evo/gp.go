package evo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"gpforge/internal/dataset"
	"gpforge/internal/expr"
	"gpforge/internal/variation"
)

type State int

const (
	StateUninitialized State = iota
	StateReady
	StateEvolving
	StateDone
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateEvolving:
		return "evolving"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// GP drives a single generational run over one population. A GP is not
// safe for concurrent use; island runs give each GP its own goroutine.
type GP struct {
	cfg      Config
	ds       dataset.Source
	rng      *rand.Rand
	selector Selector
	strategy variation.Strategy
	reporter Reporter
	logger   *slog.Logger

	pop        *Population
	state      State
	generation int
}

type Option func(*GP)

func WithReporter(r Reporter) Option {
	return func(g *GP) { g.reporter = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *GP) { g.logger = l }
}

// WithRand overrides the seeded random source built from Config.Seed.
func WithRand(rng *rand.Rand) Option {
	return func(g *GP) { g.rng = rng }
}

// WithPopulation seeds the run with an already evaluated population.
func WithPopulation(pop *Population) Option {
	return func(g *GP) { g.pop = pop }
}

// New validates cfg and resolves its selection and variation policies.
func New(ds dataset.Source, cfg Config, opts ...Option) (*GP, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	selector, err := NewSelector(cfg.Selection, cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	strategy, err := cfg.Variation.Strategy()
	if err != nil {
		return nil, err
	}

	g := &GP{
		cfg:      cfg,
		ds:       ds,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		selector: selector,
		strategy: strategy,
		pop:      NewPopulation(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default().With(slog.String("component", "gp"), slog.String("run", g.Name()))
	}
	if g.reporter == nil {
		g.reporter = LogReporter{Logger: g.logger}
	}
	if !g.pop.IsEmpty() {
		g.state = StateReady
	}
	return g, nil
}

func (g *GP) Name() string {
	if g.cfg.Name != "" {
		return g.cfg.Name
	}
	return fmt.Sprintf("gp-%d", g.cfg.Seed)
}

func (g *GP) Config() Config          { return g.cfg }
func (g *GP) Population() *Population { return g.pop }
func (g *GP) State() State            { return g.state }
func (g *GP) Generation() int         { return g.generation }

// Initialize fills an empty population by ramped half-and-half.
func (g *GP) Initialize() error {
	if g.state == StateDone {
		return ErrRunFinished
	}
	if !g.pop.IsEmpty() {
		g.state = StateReady
		return nil
	}
	pop, err := RampedHalfHalf(g.rng, g.cfg.PopulationSize, g.cfg.MaxInitDepth, g.ds)
	if err != nil {
		return fmt.Errorf("initialize %s: %w", g.Name(), err)
	}
	g.pop = pop
	g.state = StateReady
	g.logger.Debug("population initialized", slog.Int("size", pop.Len()))
	return nil
}

// Evolve runs generations generational steps, initializing first if needed.
// The reports of the executed generations are returned in order.
func (g *GP) Evolve(ctx context.Context, generations int) ([]GenerationReport, error) {
	if g.state == StateDone {
		return nil, ErrRunFinished
	}
	if g.pop.IsEmpty() {
		if err := g.Initialize(); err != nil {
			return nil, err
		}
	}

	reports := make([]GenerationReport, 0, generations)
	for i := 0; i < generations; i++ {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := g.Step(ctx)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Step runs one generation and replaces the population with its offspring.
func (g *GP) Step(ctx context.Context) (GenerationReport, error) {
	switch g.state {
	case StateDone:
		return GenerationReport{}, ErrRunFinished
	case StateUninitialized:
		if err := g.Initialize(); err != nil {
			return GenerationReport{}, err
		}
	}
	g.state = StateEvolving
	gen := g.generation + 1

	target := g.cfg.PopulationSize
	offspring := &Population{members: make([]*expr.Individual, 0, target)}
	for offspring.Len() < target {
		child, err := g.breed()
		if err != nil {
			g.state = StateReady
			return GenerationReport{}, fmt.Errorf("%s generation %d: %w", g.Name(), gen, err)
		}
		offspring.Add(child)
	}
	g.pop = offspring
	g.generation = gen
	g.state = StateReady

	report, err := Diagnose(gen, g.pop)
	if err != nil {
		return GenerationReport{}, fmt.Errorf("%s generation %d: %w", g.Name(), gen, err)
	}
	g.reporter.Report(ctx, g.Name(), report)
	return report, nil
}

func (g *GP) breed() (*expr.Individual, error) {
	p1, err := g.selector.PickParent(g.rng, g.pop)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	var child *expr.Individual
	if g.rng.Float64() < g.cfg.CrossoverProbability {
		p2, err := g.selector.PickParent(g.rng, g.pop)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		child, err = g.strategy.Crossover(g.rng, p1, p2, g.ds)
		if err != nil {
			return nil, fmt.Errorf("%s crossover: %w", g.strategy.Name(), err)
		}
	} else {
		child, err = g.strategy.Mutation(g.rng, p1, g.ds)
		if err != nil {
			return nil, fmt.Errorf("%s mutation: %w", g.strategy.Name(), err)
		}
	}

	if g.cfg.DepthLimit > 0 {
		if depth, ok := child.Depth(); ok && depth > g.cfg.DepthLimit {
			return p1.Clone(), nil
		}
	}
	return child, nil
}

// Clean truncates the population to its targetSize fittest members.
func (g *GP) Clean(targetSize int) error {
	if targetSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPopulationSize, targetSize)
	}
	return g.pop.TruncateToK(targetSize)
}

// Fittest returns the lowest training error individual of the current population.
func (g *GP) Fittest() (*expr.Individual, error) {
	return g.pop.Fittest()
}

// Finish moves the run to its terminal state; further evolution fails.
func (g *GP) Finish() {
	g.state = StateDone
}
