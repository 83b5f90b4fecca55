package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Save inserts or replaces a run.
func (s *runStore) Save(ctx context.Context, run domain.Run) error {
	if run.ID == "" {
		return fmt.Errorf("saving run: empty id")
	}
	counts := run.Counts
	if counts == nil {
		counts = map[string]int64{}
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("marshalling counts: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO runs (id, phase, status, started_at, finished_at, counts, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			status = excluded.status,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			counts = excluded.counts,
			error = excluded.error
	`, run.ID, string(run.Phase), string(run.Status),
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		string(countsJSON), run.Error)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *runStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, phase, status, started_at, finished_at, counts, error
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// List returns up to limit runs, newest first. A non-positive limit returns
// every run.
func (s *runStore) List(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, phase, status, started_at, finished_at, counts, error
		FROM runs ORDER BY started_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.Run, error) {
	var (
		run                 domain.Run
		phase, status       string
		started, finished   string
		countsJSON, message string
	)
	if err := row.Scan(&run.ID, &phase, &status, &started, &finished, &countsJSON, &message); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scanning run: %w", err)
	}

	run.Phase = domain.RunPhase(phase)
	run.Status = domain.RunStatus(status)
	run.Error = message

	var err error
	if run.StartedAt, err = parseTime(started); err != nil {
		return run, fmt.Errorf("parsing started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return run, fmt.Errorf("parsing finished_at: %w", err)
	}
	if err := json.Unmarshal([]byte(countsJSON), &run.Counts); err != nil {
		return run, fmt.Errorf("unmarshaling counts: %w", err)
	}
	return run, nil
}

// Timestamps are stored as fixed-width RFC 3339 UTC text so they sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
