package driven

import (
	"context"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// RunStore persists the run ledger.
type RunStore interface {
	// Save inserts or replaces a run.
	Save(ctx context.Context, run domain.Run) error

	// Get retrieves a run by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Run, error)

	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.Run, error)
}
