package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"gpforge/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunSummary
	diagnostics map[string][]model.GenerationDiagnostics
	migrations  map[string][]model.MigrationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.reset()
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return nil
}

func (s *MemoryStore) reset() {
	s.initialized = true
	s.runs = make(map[string]model.RunSummary)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	s.migrations = make(map[string][]model.MigrationRecord)
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RunSummary{}, false, ErrNotInitialized
	}
	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	runs := make([]model.RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortNewestFirst(runs)
	return runs, nil
}

func (s *MemoryStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	s.diagnostics[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	return copied, true, nil
}

func (s *MemoryStore) SaveMigrations(_ context.Context, runID string, migrations []model.MigrationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	copied := make([]model.MigrationRecord, len(migrations))
	copy(copied, migrations)
	s.migrations[runID] = copied
	return nil
}

func (s *MemoryStore) GetMigrations(_ context.Context, runID string) ([]model.MigrationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	migrations, ok := s.migrations[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.MigrationRecord, len(migrations))
	copy(copied, migrations)
	return copied, true, nil
}

func sortNewestFirst(runs []model.RunSummary) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}
