//go:build sqlite

package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpforge/internal/model"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "gpforge.db"))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteTestStore(t)
	base := time.Unix(1700000000, 0).UTC()

	first := Stamp(model.RunSummary{ID: "r1", Name: "first", StartedAt: base, BestTrain: 0.3})
	second := Stamp(model.RunSummary{ID: "r2", Name: "second", StartedAt: base.Add(time.Hour)})
	require.NoError(t, store.SaveRun(ctx, first))
	require.NoError(t, store.SaveRun(ctx, second))

	loaded, ok, err := store.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, loaded)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreSavesDivergedRun(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteTestStore(t)
	run := Stamp(model.RunSummary{ID: "diverged", StartedAt: time.Unix(1700000000, 0).UTC(), BestTest: math.Inf(1)})
	require.NoError(t, store.SaveRun(ctx, run))
	require.NoError(t, store.SaveGenerationDiagnostics(ctx, "diverged", []model.GenerationDiagnostics{
		{Generation: 1, BestTest: math.Inf(1), MeanTrain: math.NaN()},
	}))

	loaded, ok, err := store.GetRun(ctx, "diverged")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, math.IsInf(loaded.BestTest, 1))

	diagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "diverged")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, math.IsNaN(diagnostics[0].MeanTrain))
}

func TestSQLiteStoreRejectsUnversionedRun(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteTestStore(t)
	require.NoError(t, store.SaveRun(ctx, model.RunSummary{ID: "raw"}))

	_, _, err := store.GetRun(ctx, "raw")
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestSQLiteStoreDiagnosticsAndMigrations(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteTestStore(t)

	diagnostics := []model.GenerationDiagnostics{{Island: 2, Generation: 5, BestTrain: 0.1}}
	require.NoError(t, store.SaveGenerationDiagnostics(ctx, "r1", diagnostics))
	gotDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, diagnostics, gotDiagnostics)

	migrations := []model.MigrationRecord{{Turn: 1, From: "a", To: "b", Count: 4}}
	require.NoError(t, store.SaveMigrations(ctx, "r1", migrations))
	gotMigrations, ok, err := store.GetMigrations(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, migrations, gotMigrations)

	require.NoError(t, store.Reset(ctx))
	_, ok, err = store.GetMigrations(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "unused.db"))
	_, err := store.ListRuns(context.Background())
	require.ErrorIs(t, err, ErrNotInitialized)
	require.NoError(t, store.Close())
}
