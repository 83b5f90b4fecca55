package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driving"
)

// Ensure RunRecorder implements the interface.
var _ driving.RunHistory = (*RunRecorder)(nil)

// RunRecorder writes run outcomes to the ledger.
type RunRecorder struct {
	store driven.RunStore
	now   func() time.Time
}

// NewRunRecorder creates a recorder backed by store.
func NewRunRecorder(store driven.RunStore) *RunRecorder {
	return &RunRecorder{store: store, now: time.Now}
}

// Record stores the outcome of a run. A run that failed is recorded as
// failed even if it was also interrupted.
func (r *RunRecorder) Record(
	ctx context.Context,
	phase domain.RunPhase,
	started time.Time,
	counts []domain.Count,
	interrupted bool,
	runErr error,
) (domain.Run, error) {
	run := domain.Run{
		ID:         uuid.New().String(),
		Phase:      phase,
		Status:     runStatus(interrupted, runErr),
		StartedAt:  started.UTC(),
		FinishedAt: r.now().UTC(),
		Counts:     domain.CountMap(counts),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	// the ledger is written even when the run's own context was cancelled
	if err := r.store.Save(context.WithoutCancel(ctx), run); err != nil {
		return run, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (r *RunRecorder) Recent(ctx context.Context, limit int) ([]domain.Run, error) {
	runs, err := r.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func runStatus(interrupted bool, runErr error) domain.RunStatus {
	switch {
	case runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded):
		return domain.RunFailed
	case interrupted || runErr != nil:
		return domain.RunInterrupted
	default:
		return domain.RunCompleted
	}
}
