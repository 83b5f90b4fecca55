package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// setupTestStore creates a temporary SQLite ledger for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}

func TestNewStore_RecordsMigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	first, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, first.RunStore().Save(context.Background(), domain.Run{
		ID:        "run-1",
		Phase:     domain.PhaseCrawl,
		Status:    domain.RunCompleted,
		StartedAt: time.Now(),
	}))
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	defer second.Close()

	version, err := second.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	runs, err := second.RunStore().List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, path, second.Path())
}

func TestRunStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	runs := store.RunStore()
	ctx := context.Background()

	started := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	run := domain.Run{
		ID:         "run-1",
		Phase:      domain.PhaseProcess,
		Status:     domain.RunFailed,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Counts:     map[string]int64{"read": 10, "written": 7},
		Error:      "sink: disk full",
	}
	require.NoError(t, runs.Save(ctx, run))

	got, err := runs.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Phase, got.Phase)
	assert.Equal(t, run.Status, got.Status)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, run.Counts, got.Counts)
	assert.Equal(t, run.Error, got.Error)
	assert.Equal(t, 90*time.Second, got.Duration())
}

func TestRunStore_SaveReplaces(t *testing.T) {
	store := setupTestStore(t)
	runs := store.RunStore()
	ctx := context.Background()

	run := domain.Run{ID: "run-1", Phase: domain.PhaseCrawl, Status: domain.RunInterrupted, StartedAt: time.Now()}
	require.NoError(t, runs.Save(ctx, run))

	run.Status = domain.RunCompleted
	run.Counts = map[string]int64{"records_written": 3}
	require.NoError(t, runs.Save(ctx, run))

	got, err := runs.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Equal(t, int64(3), got.Counts["records_written"])
}

func TestRunStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.RunStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunStore_SaveRequiresID(t *testing.T) {
	store := setupTestStore(t)

	err := store.RunStore().Save(context.Background(), domain.Run{Phase: domain.PhaseCrawl})
	assert.Error(t, err)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	runs := store.RunStore()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, runs.Save(ctx, domain.Run{
			ID:        id,
			Phase:     domain.PhaseCrawl,
			Status:    domain.RunCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	limited, err := runs.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "c", limited[0].ID)
	assert.Empty(t, limited[0].Counts)
}

func TestRunStore_ListEmpty(t *testing.T) {
	store := setupTestStore(t)

	runs, err := store.RunStore().List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
