package platform

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpforge/internal/dataset"
	"gpforge/internal/evo"
	"gpforge/internal/metrics"
	"gpforge/internal/model"
	"gpforge/internal/storage"
)

type testSupportModule struct {
	name       string
	startCalls int
	stopCalls  int
	startErr   error
}

func (m *testSupportModule) Name() string { return m.name }

func (m *testSupportModule) Start(context.Context) error {
	m.startCalls++
	return m.startErr
}

func (m *testSupportModule) Stop(context.Context) error {
	m.stopCalls++
	return nil
}

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromColumns(
		[][]float64{{1, 2, 3, 4}, {2, 3, 4, 5}, {3, 5, 7, 9}},
		[][]float64{{5, 6}, {6, 7}, {11, 13}},
	)
	require.NoError(t, err)
	return ds
}

func startedPolis(t *testing.T, cfg Config) *Polis {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = storage.NewMemoryStore()
	}
	p := NewPolis(cfg)
	require.NoError(t, p.Init(context.Background()))
	t.Cleanup(p.Stop)
	return p
}

func TestPolisLifecycleStopAndReinit(t *testing.T) {
	module := &testSupportModule{name: "probe"}
	p := NewPolis(Config{Store: storage.NewMemoryStore(), SupportModules: []SupportModule{module}})

	require.NoError(t, p.Init(context.Background()))
	require.NoError(t, p.Init(context.Background()))
	assert.True(t, p.Started())
	assert.Equal(t, []string{"probe"}, p.ActiveSupportModules())
	assert.Equal(t, 1, module.startCalls)

	p.Stop()
	assert.False(t, p.Started())
	assert.Equal(t, 1, module.stopCalls)
	assert.Empty(t, p.ActiveSupportModules())

	require.NoError(t, p.Init(context.Background()))
	assert.Equal(t, 2, module.startCalls)
}

func TestPolisInitRollsBackSupportModules(t *testing.T) {
	first := &testSupportModule{name: "first"}
	failing := &testSupportModule{name: "second", startErr: errors.New("boom")}
	p := NewPolis(Config{Store: storage.NewMemoryStore(), SupportModules: []SupportModule{first, failing}})

	err := p.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start support module second")
	assert.False(t, p.Started())
	assert.Equal(t, 1, first.stopCalls)
	assert.Empty(t, p.ActiveSupportModules())

	dup := NewPolis(Config{Store: storage.NewMemoryStore(), SupportModules: []SupportModule{
		&testSupportModule{name: "x"}, &testSupportModule{name: "x"},
	}})
	require.ErrorContains(t, dup.Init(context.Background()), "duplicate support module")
}

func TestPolisRequiresStore(t *testing.T) {
	require.Error(t, NewPolis(Config{}).Init(context.Background()))
}

func TestRunSingleRequiresInit(t *testing.T) {
	p := NewPolis(Config{Store: storage.NewMemoryStore()})
	_, err := p.RunSingle(context.Background(), SingleRunConfig{
		Dataset:     testDataset(t),
		GP:          evo.DefaultConfig().WithPopulationSize(10),
		Generations: 1,
	})
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestRunSinglePersistsReport(t *testing.T) {
	collector := metrics.NewCollector()
	p := startedPolis(t, Config{Metrics: collector})
	ctx := context.Background()

	result, err := p.RunSingle(ctx, SingleRunConfig{
		Dataset:     testDataset(t),
		GP:          evo.DefaultConfig().WithPopulationSize(16).WithSeed(3).WithName("solo"),
		Generations: 4,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Summary.ID)
	assert.Equal(t, model.RunModeSingle, result.Summary.Mode)
	assert.Equal(t, 4, result.Summary.Generations)
	assert.Equal(t, "solo", result.Summary.Name)
	assert.Len(t, result.Diagnostics, 4)
	assert.Empty(t, result.Migrations)

	stored, ok, err := p.Store().GetRun(ctx, result.Summary.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, storage.CurrentSchemaVersion, stored.SchemaVersion)
	assert.Equal(t, result.Summary.BestTrain, stored.BestTrain)

	diags, ok, err := p.Store().GetGenerationDiagnostics(ctx, result.Summary.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, diags, 4)
	assert.Empty(t, p.ActiveRuns())
}

func TestRunSingleRejectsBadInput(t *testing.T) {
	p := startedPolis(t, Config{})
	_, err := p.RunSingle(context.Background(), SingleRunConfig{GP: evo.DefaultConfig(), Generations: 1})
	require.ErrorIs(t, err, ErrNoDataset)

	_, err = p.RunSingle(context.Background(), SingleRunConfig{Dataset: testDataset(t), GP: evo.DefaultConfig()})
	require.ErrorIs(t, err, ErrInvalidRounds)

	_, err = p.RunSingle(context.Background(), SingleRunConfig{
		Dataset:     testDataset(t),
		GP:          evo.DefaultConfig().WithPoolSize(0),
		Generations: 1,
	})
	require.ErrorIs(t, err, evo.ErrInvalidPoolSize)
}

func TestRunIslandsPersistsMigrations(t *testing.T) {
	collector := metrics.NewCollector()
	p := startedPolis(t, Config{Metrics: collector})
	ctx := context.Background()

	result, err := p.RunIslands(ctx, IslandRunConfig{
		RunID:              "islands-1",
		Dataset:            testDataset(t),
		GP:                 evo.DefaultConfig().WithPopulationSize(10).WithSeed(11),
		Islands:            3,
		Turns:              3,
		GenerationsPerTurn: 2,
		Workers:            2,
	})
	require.NoError(t, err)
	assert.Equal(t, "islands-1", result.Summary.ID)
	assert.Equal(t, 3, result.Summary.Subpopulations)
	assert.Equal(t, 6, result.Summary.Generations)
	assert.Len(t, result.Diagnostics, 3*6)
	// two migrations, three hops each
	require.Len(t, result.Migrations, 6)
	assert.Equal(t, "island-2", result.Migrations[2].From)
	assert.Equal(t, "island-0", result.Migrations[2].To)

	migrations, ok, err := p.Store().GetMigrations(ctx, "islands-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.Migrations, migrations)

	runs, err := p.Store().ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunModeIslands, runs[0].Mode)
}

func TestRunIslandsRejectsBadInput(t *testing.T) {
	p := startedPolis(t, Config{})
	base := IslandRunConfig{Dataset: testDataset(t), GP: evo.DefaultConfig(), Islands: 2, Turns: 1, GenerationsPerTurn: 1}

	bad := base
	bad.Islands = 0
	_, err := p.RunIslands(context.Background(), bad)
	require.ErrorIs(t, err, evo.ErrNoSubpopulations)

	bad = base
	bad.Turns = 0
	_, err = p.RunIslands(context.Background(), bad)
	require.ErrorIs(t, err, evo.ErrInvalidTurns)
}

func TestRunWithCancelledContextIsNotPersisted(t *testing.T) {
	p := startedPolis(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunSingle(ctx, SingleRunConfig{
		RunID:       "cancelled",
		Dataset:     testDataset(t),
		GP:          evo.DefaultConfig().WithPopulationSize(8),
		Generations: 3,
	})
	require.ErrorIs(t, err, context.Canceled)

	_, ok, err := p.Store().GetRun(context.Background(), "cancelled")
	require.NoError(t, err)
	assert.False(t, ok)
	require.ErrorIs(t, p.StopRun("cancelled"), ErrRunNotActive)
}

func TestPolisResetClearsRuns(t *testing.T) {
	p := startedPolis(t, Config{})
	ctx := context.Background()
	_, err := p.RunSingle(ctx, SingleRunConfig{
		Dataset:     testDataset(t),
		GP:          evo.DefaultConfig().WithPopulationSize(8),
		Generations: 1,
	})
	require.NoError(t, err)

	require.NoError(t, p.Reset(ctx))
	assert.True(t, p.Started())
	runs, err := p.Store().ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHTTPModuleServesHandler(t *testing.T) {
	collector := metrics.NewCollector()
	module := &HTTPModule{ModuleName: "metrics", Addr: "127.0.0.1:0", Handler: collector.Handler()}
	p := startedPolis(t, Config{SupportModules: []SupportModule{module}})

	_, err := p.RunSingle(context.Background(), SingleRunConfig{
		Dataset:     testDataset(t),
		GP:          evo.DefaultConfig().WithPopulationSize(8).WithName("served"),
		Generations: 2,
	})
	require.NoError(t, err)

	resp, err := http.Get("http://" + module.ListenAddr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gpforge_generations_total{run="served"} 2`)
	assert.Contains(t, string(body), `gpforge_runs_total{mode="single",status="ok"} 1`)

	p.Stop()
	assert.Empty(t, module.ListenAddr())
}
