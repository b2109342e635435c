package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gpforge/internal/dataset"
	"gpforge/internal/evo"
	"gpforge/internal/expr"
	"gpforge/internal/metrics"
	"gpforge/internal/model"
	"gpforge/internal/storage"
)

var (
	ErrNotStarted    = errors.New("polis is not initialized")
	ErrRunActive     = errors.New("run already active")
	ErrRunNotActive  = errors.New("run not active")
	ErrNoDataset     = errors.New("dataset is required")
	ErrInvalidRounds = errors.New("generations must be positive")
)

type Config struct {
	Store          storage.Store
	Metrics        *metrics.Collector
	SupportModules []SupportModule
	Logger         *slog.Logger
}

// SupportModule is a long-lived service whose lifetime follows the polis.
type SupportModule interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// SingleRunConfig describes one single-population run.
type SingleRunConfig struct {
	RunID       string
	Dataset     dataset.Source
	GP          evo.Config
	Generations int
}

// IslandRunConfig describes a ring of identically configured islands. Island
// i is seeded with GP.Seed+i.
type IslandRunConfig struct {
	RunID              string
	Dataset            dataset.Source
	GP                 evo.Config
	Islands            int
	Turns              int
	GenerationsPerTurn int
	Migrants           int
	Workers            int
}

type RunResult struct {
	Summary     model.RunSummary
	Diagnostics []model.GenerationDiagnostics
	Migrations  []model.MigrationRecord
	Best        *expr.Individual
}

type Polis struct {
	store   storage.Store
	metrics *metrics.Collector
	logger  *slog.Logger
	config  Config

	mu             sync.RWMutex
	started        bool
	supportModules map[string]SupportModule
	runs           map[string]context.CancelFunc

	now func() time.Time
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With(slog.String("component", "polis"))
	}
	return &Polis{
		store:          cfg.Store,
		metrics:        cfg.Metrics,
		logger:         logger,
		config:         cfg,
		supportModules: make(map[string]SupportModule),
		runs:           make(map[string]context.CancelFunc),
		now:            time.Now,
	}
}

// Init initializes the store and starts support modules in order. On failure
// the modules already started are stopped in reverse order.
func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}

	started := make([]SupportModule, 0, len(p.config.SupportModules))
	fail := func(err error) error {
		stopSupportModules(ctx, started)
		p.supportModules = make(map[string]SupportModule)
		return err
	}
	for i, module := range p.config.SupportModules {
		if module == nil {
			return fail(fmt.Errorf("support module is nil at index %d", i))
		}
		name := module.Name()
		if name == "" {
			return fail(fmt.Errorf("support module name is required at index %d", i))
		}
		if _, exists := p.supportModules[name]; exists {
			return fail(fmt.Errorf("duplicate support module: %s", name))
		}
		if err := module.Start(ctx); err != nil {
			return fail(fmt.Errorf("start support module %s: %w", name, err))
		}
		p.supportModules[name] = module
		started = append(started, module)
	}

	p.started = true
	return nil
}

// Reset stops everything, clears the store and initializes again.
func (p *Polis) Reset(ctx context.Context) error {
	p.Stop()
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	if err := p.store.Reset(ctx); err != nil {
		return err
	}
	return p.Init(ctx)
}

// Stop cancels active runs and stops support modules.
func (p *Polis) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, cancel := range p.runs {
		cancel()
	}
	for _, module := range p.supportModules {
		_ = module.Stop(context.Background())
	}
	p.started = false
	p.supportModules = make(map[string]SupportModule)
	p.runs = make(map[string]context.CancelFunc)
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) Store() storage.Store {
	return p.store
}

func (p *Polis) ActiveSupportModules() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.supportModules))
	for name := range p.supportModules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StopRun cancels an active run; it ends with a context error.
func (p *Polis) StopRun(runID string) error {
	p.mu.RLock()
	cancel, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	cancel()
	return nil
}

// RunSingle evolves one population and persists its report.
func (p *Polis) RunSingle(ctx context.Context, cfg SingleRunConfig) (RunResult, error) {
	if cfg.Dataset == nil {
		return RunResult{}, ErrNoDataset
	}
	if cfg.Generations < 1 {
		return RunResult{}, fmt.Errorf("%w: %d", ErrInvalidRounds, cfg.Generations)
	}
	runID := runIDOrNew(cfg.RunID)
	ctx, done, err := p.registerRun(ctx, runID)
	if err != nil {
		return RunResult{}, err
	}
	defer done()

	sink := newDiagnosticsSink()
	gp, err := evo.New(cfg.Dataset, cfg.GP, evo.WithReporter(p.reporter(sink.forIsland(0))))
	if err != nil {
		return RunResult{}, err
	}

	started := p.now()
	p.logger.InfoContext(ctx, "run started", slog.String("run_id", runID), slog.String("mode", string(model.RunModeSingle)))
	_, err = gp.Evolve(ctx, cfg.Generations)
	p.recordFinished(model.RunModeSingle, err)
	if err != nil {
		return RunResult{}, fmt.Errorf("run %s: %w", runID, err)
	}
	gp.Finish()

	best, err := gp.Fittest()
	if err != nil {
		return RunResult{}, fmt.Errorf("run %s: %w", runID, err)
	}
	summary := p.summary(runID, cfg.GP, model.RunModeSingle, best, 0)
	summary.Subpopulations = 1
	summary.Generations = gp.Generation()
	summary.StartedAt = started
	summary.FinishedAt = p.now()

	result := RunResult{
		Summary:     summary,
		Diagnostics: sink.snapshot(),
		Best:        best,
	}
	if err := p.persist(ctx, result); err != nil {
		return RunResult{}, err
	}
	p.logger.InfoContext(ctx, "run finished", slog.String("run_id", runID), slog.Float64("best_train", summary.BestTrain))
	return result, nil
}

// RunIslands evolves a ring of subpopulations with migration between turns
// and persists its report.
func (p *Polis) RunIslands(ctx context.Context, cfg IslandRunConfig) (RunResult, error) {
	if cfg.Dataset == nil {
		return RunResult{}, ErrNoDataset
	}
	if cfg.Islands < 1 {
		return RunResult{}, fmt.Errorf("%w: %d islands", evo.ErrNoSubpopulations, cfg.Islands)
	}
	if cfg.GenerationsPerTurn < 1 {
		return RunResult{}, fmt.Errorf("%w: %d", ErrInvalidRounds, cfg.GenerationsPerTurn)
	}
	if cfg.Turns < 1 {
		return RunResult{}, fmt.Errorf("%w: %d", evo.ErrInvalidTurns, cfg.Turns)
	}
	runID := runIDOrNew(cfg.RunID)
	ctx, done, err := p.registerRun(ctx, runID)
	if err != nil {
		return RunResult{}, err
	}
	defer done()

	sink := newDiagnosticsSink()
	migrations := &migrationLog{}
	opts := []evo.MgpOption{evo.WithMigrationObserver(p.migrationObserver(migrations))}
	if cfg.Migrants > 0 {
		opts = append(opts, evo.WithMigrants(cfg.Migrants))
	}
	if cfg.Workers > 0 {
		opts = append(opts, evo.WithWorkers(cfg.Workers))
	}
	mgp := evo.NewMgp(opts...)
	for i := 0; i < cfg.Islands; i++ {
		islandCfg := cfg.GP.
			WithName(fmt.Sprintf("island-%d", i)).
			WithSeed(cfg.GP.Seed + int64(i))
		gp, err := evo.New(cfg.Dataset, islandCfg, evo.WithReporter(p.reporter(sink.forIsland(i))))
		if err != nil {
			return RunResult{}, fmt.Errorf("island %d: %w", i, err)
		}
		mgp.AddSubpopulation(gp)
	}

	started := p.now()
	p.logger.InfoContext(ctx, "run started",
		slog.String("run_id", runID),
		slog.String("mode", string(model.RunModeIslands)),
		slog.Int("islands", cfg.Islands),
	)
	err = mgp.EvolveInParallel(ctx, cfg.Turns, cfg.GenerationsPerTurn)
	p.recordFinished(model.RunModeIslands, err)
	if err != nil {
		return RunResult{}, fmt.Errorf("run %s: %w", runID, err)
	}

	best, island, err := mgp.Fittest()
	if err != nil {
		return RunResult{}, fmt.Errorf("run %s: %w", runID, err)
	}
	summary := p.summary(runID, cfg.GP, model.RunModeIslands, best, island)
	summary.Subpopulations = cfg.Islands
	summary.Turns = cfg.Turns
	summary.Generations = cfg.Turns * cfg.GenerationsPerTurn
	summary.StartedAt = started
	summary.FinishedAt = p.now()

	result := RunResult{
		Summary:     summary,
		Diagnostics: sink.snapshot(),
		Migrations:  migrations.snapshot(),
		Best:        best,
	}
	if err := p.persist(ctx, result); err != nil {
		return RunResult{}, err
	}
	p.logger.InfoContext(ctx, "run finished",
		slog.String("run_id", runID),
		slog.Float64("best_train", summary.BestTrain),
		slog.Int("best_island", island),
	)
	return result, nil
}

func (p *Polis) summary(runID string, cfg evo.Config, mode model.RunMode, best *expr.Individual, island int) model.RunSummary {
	train, _ := best.Train()
	test, _ := best.Test()
	depth, _ := best.Depth()
	return storage.Stamp(model.RunSummary{
		ID:             runID,
		Name:           cfg.Name,
		Mode:           mode,
		Variation:      cfg.Variation.String(),
		Selection:      string(cfg.Selection),
		PopulationSize: cfg.PopulationSize,
		Seed:           cfg.Seed,
		BestTrain:      train,
		BestTest:       test,
		BestSize:       best.Size(),
		BestDepth:      depth,
		BestFormula:    best.String(),
		BestIsland:     island,
	})
}

func (p *Polis) persist(ctx context.Context, result RunResult) error {
	runID := result.Summary.ID
	if err := p.store.SaveRun(ctx, result.Summary); err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	if err := p.store.SaveGenerationDiagnostics(ctx, runID, result.Diagnostics); err != nil {
		return fmt.Errorf("save diagnostics %s: %w", runID, err)
	}
	if len(result.Migrations) > 0 {
		if err := p.store.SaveMigrations(ctx, runID, result.Migrations); err != nil {
			return fmt.Errorf("save migrations %s: %w", runID, err)
		}
	}
	return nil
}

func (p *Polis) reporter(island evo.Reporter) evo.Reporter {
	reporters := evo.MultiReporter{island, evo.LogReporter{Logger: p.logger}}
	if p.metrics != nil {
		reporters = append(reporters, p.metrics)
	}
	return reporters
}

func (p *Polis) migrationObserver(log *migrationLog) evo.MigrationObserver {
	return evo.MigrationObserverFunc(func(ctx context.Context, event evo.MigrationEvent) {
		log.add(event)
		if p.metrics != nil {
			p.metrics.Migrated(ctx, event)
		}
		p.logger.DebugContext(ctx, "migration", slog.String("event", event.String()))
	})
}

func (p *Polis) recordFinished(mode model.RunMode, err error) {
	if p.metrics != nil {
		p.metrics.RunFinished(string(mode), err)
	}
}

func (p *Polis) registerRun(ctx context.Context, runID string) (context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil, nil, ErrNotStarted
	}
	if _, exists := p.runs[runID]; exists {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunActive, runID)
	}
	ctx, cancel := context.WithCancel(ctx)
	p.runs[runID] = cancel
	return ctx, func() {
		cancel()
		p.mu.Lock()
		delete(p.runs, runID)
		p.mu.Unlock()
	}, nil
}

func runIDOrNew(runID string) string {
	if runID != "" {
		return runID
	}
	return uuid.NewString()
}

func stopSupportModules(ctx context.Context, modules []SupportModule) {
	for i := len(modules) - 1; i >= 0; i-- {
		_ = modules[i].Stop(ctx)
	}
}
