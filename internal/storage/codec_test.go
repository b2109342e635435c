package storage

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpforge/internal/model"
)

func TestDecodeRunFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("run_summary_v1.json"))
	require.NoError(t, err)

	run, err := DecodeRun(data)
	require.NoError(t, err)
	assert.Equal(t, "run-fixture-1", run.ID)
	assert.Equal(t, model.RunModeIslands, run.Mode)
	assert.Equal(t, 4, run.Subpopulations)
	assert.Equal(t, 0.125, run.BestTrain)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), run.StartedAt.UTC())
}

func TestDecodeRunRejectsOldSchema(t *testing.T) {
	data, err := os.ReadFile(fixturePath("run_summary_v0.json"))
	require.NoError(t, err)

	_, err = DecodeRun(data)
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeRunRejectsMalformedPayload(t *testing.T) {
	_, err := DecodeRun([]byte(`{"id":`))
	require.Error(t, err)
}

func TestRunCodecRoundTrip(t *testing.T) {
	input := Stamp(model.RunSummary{
		ID:          "r1",
		Name:        "round-trip",
		Mode:        model.RunModeSingle,
		Generations: 10,
		BestTrain:   0.5,
		BestFormula: "(x0 + x1)",
		StartedAt:   time.Unix(1700000000, 0).UTC(),
	})
	data, err := EncodeRun(input)
	require.NoError(t, err)

	output, err := DecodeRun(data)
	require.NoError(t, err)
	assert.Equal(t, input, output)
}

func TestDiagnosticsAndMigrationsCodec(t *testing.T) {
	diagnostics := []model.GenerationDiagnostics{
		{Island: 1, Generation: 3, BestTrain: 0.2, MeanTrain: 0.9, StdDevTrain: 0.1},
	}
	data, err := EncodeGenerationDiagnostics(diagnostics)
	require.NoError(t, err)
	decoded, err := DecodeGenerationDiagnostics(data)
	require.NoError(t, err)
	assert.Equal(t, diagnostics, decoded)

	migrations := []model.MigrationRecord{{Turn: 1, From: "a", To: "b", Count: 4, BestTrain: 0.3}}
	data, err = EncodeMigrations(migrations)
	require.NoError(t, err)
	decodedMigrations, err := DecodeMigrations(data)
	require.NoError(t, err)
	assert.Equal(t, migrations, decodedMigrations)
}

func TestCodecsEncodeNonFiniteErrors(t *testing.T) {
	run := Stamp(model.RunSummary{ID: "diverged", BestTrain: 0, BestTest: math.Inf(1)})
	data, err := EncodeRun(run)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"best_test":"+Inf"`)

	decoded, err := DecodeRun(data)
	require.NoError(t, err)
	assert.Equal(t, "diverged", decoded.ID)
	assert.Equal(t, 0.0, decoded.BestTrain)
	assert.True(t, math.IsInf(decoded.BestTest, 1))

	diagnostics := []model.GenerationDiagnostics{
		{Island: 0, Generation: 1, BestTrain: 0.5, BestTest: math.Inf(1), MeanTrain: math.NaN(), StdDevTrain: math.NaN()},
	}
	data, err = EncodeGenerationDiagnostics(diagnostics)
	require.NoError(t, err)
	decodedDiagnostics, err := DecodeGenerationDiagnostics(data)
	require.NoError(t, err)
	require.Len(t, decodedDiagnostics, 1)
	assert.Equal(t, 0.5, decodedDiagnostics[0].BestTrain)
	assert.True(t, math.IsInf(decodedDiagnostics[0].BestTest, 1))
	assert.True(t, math.IsNaN(decodedDiagnostics[0].MeanTrain))
	assert.True(t, math.IsNaN(decodedDiagnostics[0].StdDevTrain))

	data, err = EncodeMigrations([]model.MigrationRecord{{Turn: 1, From: "a", To: "b", Count: 4, BestTrain: math.NaN()}})
	require.NoError(t, err)
	decodedMigrations, err := DecodeMigrations(data)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(decodedMigrations[0].BestTrain))
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
