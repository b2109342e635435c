package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpforge/internal/model"
)

func newInitializedMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.ErrorIs(t, store.SaveRun(ctx, model.RunSummary{ID: "r"}), ErrNotInitialized)
	_, err := store.ListRuns(ctx)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestMemoryStoreRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newInitializedMemoryStore(t)
	base := time.Unix(1700000000, 0)

	require.NoError(t, store.SaveRun(ctx, Stamp(model.RunSummary{ID: "old", StartedAt: base})))
	require.NoError(t, store.SaveRun(ctx, Stamp(model.RunSummary{ID: "new", StartedAt: base.Add(time.Minute)})))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[1].ID)

	run, ok, err := store.GetRun(ctx, "old")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CurrentSchemaVersion, run.SchemaVersion)

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDiagnosticsAreCopied(t *testing.T) {
	ctx := context.Background()
	store := newInitializedMemoryStore(t)

	input := []model.GenerationDiagnostics{
		{Island: 0, Generation: 1, BestTrain: 0.8},
		{Island: 0, Generation: 2, BestTrain: 0.6},
	}
	require.NoError(t, store.SaveGenerationDiagnostics(ctx, "run-1", input))
	input[0].BestTrain = 99

	output, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, output, 2)
	assert.Equal(t, 0.8, output[0].BestTrain)

	_, ok, err = store.GetGenerationDiagnostics(ctx, "run-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreMigrationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newInitializedMemoryStore(t)

	input := []model.MigrationRecord{{Turn: 1, From: "a", To: "b", Count: 4}}
	require.NoError(t, store.SaveMigrations(ctx, "run-1", input))

	output, ok, err := store.GetMigrations(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, input, output)
}

func TestMemoryStoreResetClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := newInitializedMemoryStore(t)
	require.NoError(t, store.SaveRun(ctx, model.RunSummary{ID: "r"}))
	require.NoError(t, store.SaveMigrations(ctx, "r", []model.MigrationRecord{{Turn: 1}}))

	require.NoError(t, store.Reset(ctx))
	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
	_, ok, err := store.GetMigrations(ctx, "r")
	require.NoError(t, err)
	assert.False(t, ok)

	// Init after data exists keeps it.
	require.NoError(t, store.SaveRun(ctx, model.RunSummary{ID: "kept"}))
	require.NoError(t, store.Init(ctx))
	_, ok, err = store.GetRun(ctx, "kept")
	require.NoError(t, err)
	assert.True(t, ok)
}
