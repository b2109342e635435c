package evo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// GenerationReport summarizes a population after one generation.
type GenerationReport struct {
	Generation  int     `json:"generation"`
	Population  int     `json:"population"`
	BestTrain   float64 `json:"best_train"`
	BestTest    float64 `json:"best_test"`
	BestSize    int     `json:"best_size"`
	BestDepth   int     `json:"best_depth"`
	BestFormula string  `json:"best_formula,omitempty"`
	MeanTrain   float64 `json:"mean_train"`
	StdDevTrain float64 `json:"stddev_train"`
}

// Diagnose reports the fittest individual and the spread of finite
// training errors.
func Diagnose(generation int, pop *Population) (GenerationReport, error) {
	best, err := pop.Fittest()
	if err != nil {
		return GenerationReport{}, err
	}
	train, _ := best.Train()
	test, _ := best.Test()
	depth, _ := best.Depth()

	errs := make([]float64, 0, pop.Len())
	for _, ind := range pop.Members() {
		e, _ := ind.Train()
		if !math.IsNaN(e) && !math.IsInf(e, 0) {
			errs = append(errs, e)
		}
	}
	report := GenerationReport{
		Generation:  generation,
		Population:  pop.Len(),
		BestTrain:   train,
		BestTest:    test,
		BestSize:    best.Size(),
		BestDepth:   depth,
		BestFormula: best.String(),
	}
	if len(errs) > 0 {
		report.MeanTrain = stat.Mean(errs, nil)
	}
	if len(errs) > 1 {
		report.StdDevTrain = stat.StdDev(errs, nil)
	}
	return report, nil
}

// Reporter receives the per-generation summary of a named run. It may be
// called concurrently by island runs.
type Reporter interface {
	Report(ctx context.Context, run string, report GenerationReport)
}

// LogReporter writes every report as a structured log line.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Report(ctx context.Context, run string, report GenerationReport) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "generation",
		slog.String("run", run),
		slog.Int("generation", report.Generation),
		slog.Float64("train", report.BestTrain),
		slog.Float64("test", report.BestTest),
		slog.Int("size", report.BestSize),
		slog.Int("depth", report.BestDepth),
	)
}

// RecordingReporter keeps every report grouped by run name.
type RecordingReporter struct {
	mu      sync.Mutex
	reports map[string][]GenerationReport
}

func NewRecordingReporter() *RecordingReporter {
	return &RecordingReporter{reports: make(map[string][]GenerationReport)}
}

func (r *RecordingReporter) Report(_ context.Context, run string, report GenerationReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[run] = append(r.reports[run], report)
}

func (r *RecordingReporter) Reports(run string) []GenerationReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GenerationReport(nil), r.reports[run]...)
}

// MultiReporter fans a report out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, run string, report GenerationReport) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, run, report)
		}
	}
}

// MigrationEvent records one ring hop between subpopulations.
type MigrationEvent struct {
	Turn      int     `json:"turn"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Count     int     `json:"count"`
	BestTrain float64 `json:"best_train"`
}

type MigrationObserver interface {
	Migrated(ctx context.Context, event MigrationEvent)
}

type MigrationObserverFunc func(ctx context.Context, event MigrationEvent)

func (f MigrationObserverFunc) Migrated(ctx context.Context, event MigrationEvent) {
	f(ctx, event)
}

func (e MigrationEvent) String() string {
	return fmt.Sprintf("turn %d: %s -> %s (%d, best %.6g)", e.Turn, e.From, e.To, e.Count, e.BestTrain)
}
