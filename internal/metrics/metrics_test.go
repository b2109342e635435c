package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpforge/internal/evo"
)

func TestCollectorTracksGenerations(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	c.Report(ctx, "island-0", evo.GenerationReport{Generation: 1, BestTrain: 0.9, BestTest: 1.1, BestSize: 7})
	c.Report(ctx, "island-0", evo.GenerationReport{Generation: 2, BestTrain: 0.4, BestTest: 0.6, BestSize: 9})
	c.Report(ctx, "island-1", evo.GenerationReport{Generation: 1, BestTrain: 2})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.generations.WithLabelValues("island-0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generations.WithLabelValues("island-1")))
	assert.Equal(t, 0.4, testutil.ToFloat64(c.bestTrain.WithLabelValues("island-0")))
	assert.Equal(t, 0.6, testutil.ToFloat64(c.bestTest.WithLabelValues("island-0")))
	assert.Equal(t, 9.0, testutil.ToFloat64(c.bestSize.WithLabelValues("island-0")))
}

func TestCollectorTracksMigrationsAndRuns(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	c.Migrated(ctx, evo.MigrationEvent{Turn: 1, From: "a", To: "b", Count: 4})
	c.Migrated(ctx, evo.MigrationEvent{Turn: 1, From: "b", To: "a", Count: 3})
	c.RunFinished("islands", nil)
	c.RunFinished("single", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.migrations))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.migrants))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("islands", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("single", "error")))
}

func TestCollectorHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.Report(context.Background(), "solo", evo.GenerationReport{BestTrain: 1.5})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gpforge_best_train_error{run="solo"} 1.5`)
	assert.Contains(t, string(body), "gpforge_generations_total")
}
