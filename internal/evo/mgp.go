package evo

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gpforge/internal/expr"
)

// DefaultMigrants is how many of each subpopulation's best individuals move
// to the next subpopulation in the ring per migration.
const DefaultMigrants = 4

// Mgp coordinates independently evolving subpopulations that exchange their
// best individuals over a ring at turn boundaries.
type Mgp struct {
	subpops  []*GP
	sizes    []int
	total    int
	migrants int
	workers  int

	observer MigrationObserver
	logger   *slog.Logger
	tracer   trace.Tracer
	turn     int
}

type MgpOption func(*Mgp)

func WithMigrants(k int) MgpOption {
	return func(m *Mgp) { m.migrants = k }
}

// WithWorkers bounds how many subpopulations evolve at once.
func WithWorkers(n int) MgpOption {
	return func(m *Mgp) { m.workers = n }
}

func WithMigrationObserver(o MigrationObserver) MgpOption {
	return func(m *Mgp) { m.observer = o }
}

func WithMgpLogger(l *slog.Logger) MgpOption {
	return func(m *Mgp) { m.logger = l }
}

func NewMgp(opts ...MgpOption) *Mgp {
	m := &Mgp{
		migrants: DefaultMigrants,
		tracer:   otel.Tracer("gpforge/evo"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default().With(slog.String("component", "mgp"))
	}
	return m
}

// AddSubpopulation appends a configured GP to the ring.
func (m *Mgp) AddSubpopulation(gp *GP) *Mgp {
	m.subpops = append(m.subpops, gp)
	return m
}

func (m *Mgp) Subpopulations() []*GP {
	return append([]*GP(nil), m.subpops...)
}

// TotalSize is the summed configured size of all subpopulations, set by Initialize.
func (m *Mgp) TotalSize() int {
	return m.total
}

// Initialize initializes every subpopulation concurrently.
func (m *Mgp) Initialize(ctx context.Context) error {
	if len(m.subpops) == 0 {
		return ErrNoSubpopulations
	}
	m.sizes = make([]int, len(m.subpops))
	m.total = 0
	for i, gp := range m.subpops {
		m.sizes[i] = gp.Config().PopulationSize
		m.total += m.sizes[i]
	}
	return m.forEach(ctx, func(_ context.Context, i int, gp *GP) error {
		if err := gp.Initialize(); err != nil {
			return fmt.Errorf("subpopulation %d: %w", i, err)
		}
		return nil
	})
}

// EvolveInParallel runs turns turns of generationsPerTurn generations. Every
// turn but the last ends with a ring migration and a truncation of each
// subpopulation back to its configured size.
func (m *Mgp) EvolveInParallel(ctx context.Context, turns, generationsPerTurn int) error {
	if turns < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidTurns, turns)
	}
	if len(m.subpops) == 0 {
		return ErrNoSubpopulations
	}
	if m.sizes == nil {
		if err := m.Initialize(ctx); err != nil {
			return err
		}
	}

	for t := 1; t < turns; t++ {
		if err := m.runTurn(ctx, generationsPerTurn); err != nil {
			return err
		}
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("turn %d migration: %w", m.turn, err)
		}
	}
	if err := m.runTurn(ctx, generationsPerTurn); err != nil {
		return err
	}
	for _, gp := range m.subpops {
		gp.Finish()
	}
	return nil
}

func (m *Mgp) runTurn(ctx context.Context, generations int) error {
	m.turn++
	ctx, span := m.tracer.Start(ctx, "mgp.turn", trace.WithAttributes(
		attribute.Int("turn", m.turn),
		attribute.Int("generations", generations),
		attribute.Int("subpopulations", len(m.subpops)),
	))
	defer span.End()

	err := m.forEach(ctx, func(ctx context.Context, i int, gp *GP) error {
		if _, err := gp.Evolve(ctx, generations); err != nil {
			return fmt.Errorf("subpopulation %d: %w", i, err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("turn %d: %w", m.turn, err)
	}
	m.logger.InfoContext(ctx, "turn complete", slog.Int("turn", m.turn))
	return nil
}

// Migrate copies the best migrants of subpopulation i into i+1 (the last
// feeds the first), then truncates every subpopulation to its configured size.
// Migrants are collected from every source before any destination changes.
func (m *Mgp) Migrate(ctx context.Context) error {
	if len(m.subpops) == 0 {
		return ErrNoSubpopulations
	}
	if m.sizes == nil {
		return fmt.Errorf("migrate before initialize: %w", ErrEmptyPopulation)
	}
	_, span := m.tracer.Start(ctx, "mgp.migrate", trace.WithAttributes(attribute.Int("turn", m.turn)))
	defer span.End()

	outgoing := make([][]*expr.Individual, len(m.subpops))
	for i, gp := range m.subpops {
		best, err := gp.Population().BestK(m.migrants)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("subpopulation %d: %w", i, err)
		}
		outgoing[i] = best
	}

	n := len(m.subpops)
	for i, migrants := range outgoing {
		dest := (i + 1) % n
		m.subpops[dest].Population().AddAll(migrants)
		if m.observer != nil {
			event := MigrationEvent{
				Turn:  m.turn,
				From:  m.subpops[i].Name(),
				To:    m.subpops[dest].Name(),
				Count: len(migrants),
			}
			if len(migrants) > 0 {
				event.BestTrain, _ = migrants[0].Train()
			}
			m.observer.Migrated(ctx, event)
		}
	}

	return m.forEach(ctx, func(_ context.Context, i int, gp *GP) error {
		if err := gp.Clean(m.sizes[i]); err != nil {
			return fmt.Errorf("subpopulation %d: %w", i, err)
		}
		return nil
	})
}

// Fittest returns the best individual across all subpopulations and the
// index of the subpopulation holding it.
func (m *Mgp) Fittest() (*expr.Individual, int, error) {
	if len(m.subpops) == 0 {
		return nil, -1, ErrNoSubpopulations
	}
	var best *expr.Individual
	bestIdx := -1
	for i, gp := range m.subpops {
		ind, err := gp.Fittest()
		if err != nil {
			return nil, -1, fmt.Errorf("subpopulation %d: %w", i, err)
		}
		if best == nil {
			best, bestIdx = ind, i
			continue
		}
		a, _ := ind.Train()
		b, _ := best.Train()
		if lessError(a, b) {
			best, bestIdx = ind, i
		}
	}
	return best, bestIdx, nil
}

// forEach runs fn for every subpopulation on a bounded pool and waits for
// all of them; this wait is the turn barrier.
func (m *Mgp) forEach(ctx context.Context, fn func(ctx context.Context, i int, gp *GP) error) error {
	workers := m.workers
	if workers <= 0 {
		workers = min(len(m.subpops), runtime.GOMAXPROCS(0))
	}
	p := pool.New().WithErrors().WithMaxGoroutines(max(workers, 1))
	for i, gp := range m.subpops {
		i, gp := i, gp
		p.Go(func() error {
			return fn(ctx, i, gp)
		})
	}
	return p.Wait()
}
