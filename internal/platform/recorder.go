package platform

import (
	"context"
	"sync"

	"gpforge/internal/evo"
	"gpforge/internal/model"
)

// diagnosticsSink collects generation reports from concurrently running islands.
type diagnosticsSink struct {
	mu    sync.Mutex
	items []model.GenerationDiagnostics
}

func newDiagnosticsSink() *diagnosticsSink {
	return &diagnosticsSink{}
}

func (s *diagnosticsSink) forIsland(island int) evo.Reporter {
	return islandReporter{island: island, sink: s}
}

func (s *diagnosticsSink) snapshot() []model.GenerationDiagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.GenerationDiagnostics(nil), s.items...)
}

type islandReporter struct {
	island int
	sink   *diagnosticsSink
}

func (r islandReporter) Report(_ context.Context, _ string, report evo.GenerationReport) {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	r.sink.items = append(r.sink.items, model.GenerationDiagnostics{
		Island:      r.island,
		Generation:  report.Generation,
		Population:  report.Population,
		BestTrain:   report.BestTrain,
		BestTest:    report.BestTest,
		BestSize:    report.BestSize,
		BestDepth:   report.BestDepth,
		MeanTrain:   report.MeanTrain,
		StdDevTrain: report.StdDevTrain,
	})
}

type migrationLog struct {
	mu    sync.Mutex
	items []model.MigrationRecord
}

func (l *migrationLog) add(event evo.MigrationEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, model.MigrationRecord{
		Turn:      event.Turn,
		From:      event.From,
		To:        event.To,
		Count:     event.Count,
		BestTrain: event.BestTrain,
	})
}

func (l *migrationLog) snapshot() []model.MigrationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.MigrationRecord(nil), l.items...)
}
