// Package metrics exposes evolution progress as Prometheus collectors.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gpforge/internal/evo"
)

// Collector implements evo.Reporter and evo.MigrationObserver on top of its
// own registry so several collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	generations *prometheus.CounterVec
	bestTrain   *prometheus.GaugeVec
	bestTest    *prometheus.GaugeVec
	bestSize    *prometheus.GaugeVec
	migrations  prometheus.Counter
	migrants    prometheus.Counter
	runs        *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpforge_generations_total",
			Help: "Generations completed per (sub)population.",
		}, []string{"run"}),
		bestTrain: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gpforge_best_train_error",
			Help: "Training RMSE of the fittest individual in the latest generation.",
		}, []string{"run"}),
		bestTest: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gpforge_best_test_error",
			Help: "Test RMSE of the fittest individual in the latest generation.",
		}, []string{"run"}),
		bestSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gpforge_best_size_nodes",
			Help: "Node count of the fittest individual in the latest generation.",
		}, []string{"run"}),
		migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpforge_migrations_total",
			Help: "Ring hops between subpopulations.",
		}),
		migrants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpforge_migrants_total",
			Help: "Individuals copied between subpopulations.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpforge_runs_total",
			Help: "Finished runs by mode and outcome.",
		}, []string{"mode", "status"}),
	}
	c.registry.MustRegister(c.generations, c.bestTrain, c.bestTest, c.bestSize, c.migrations, c.migrants, c.runs)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Report(_ context.Context, run string, report evo.GenerationReport) {
	c.generations.WithLabelValues(run).Inc()
	c.bestTrain.WithLabelValues(run).Set(report.BestTrain)
	c.bestTest.WithLabelValues(run).Set(report.BestTest)
	c.bestSize.WithLabelValues(run).Set(float64(report.BestSize))
}

func (c *Collector) Migrated(_ context.Context, event evo.MigrationEvent) {
	c.migrations.Inc()
	c.migrants.Add(float64(event.Count))
}

// RunFinished counts a completed run; a nil err counts as success.
func (c *Collector) RunFinished(mode string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.runs.WithLabelValues(mode, status).Inc()
}
