package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory run ledger.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.Run
}

// NewRunStore creates an empty ledger.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]domain.Run)}
}

// Save inserts or replaces a run.
func (s *RunStore) Save(_ context.Context, run domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(_ context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// List returns up to limit runs, newest first.
func (s *RunStore) List(_ context.Context, limit int) ([]domain.Run, error) {
	s.mu.RLock()
	runs := make([]domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
