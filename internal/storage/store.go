package storage

import (
	"context"

	"gpforge/internal/model"
)

// Store persists run reports. Every Get reports whether the record exists.
type Store interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunSummary) error
	GetRun(ctx context.Context, id string) (model.RunSummary, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.RunSummary, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveMigrations(ctx context.Context, runID string, migrations []model.MigrationRecord) error
	GetMigrations(ctx context.Context, runID string) ([]model.MigrationRecord, bool, error)
}
