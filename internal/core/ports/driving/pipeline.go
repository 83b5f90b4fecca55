package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// Crawler acquires raw records from the remote hosting API.
type Crawler interface {
	// Crawl runs one acquisition pass. Per-item failures are counted in the
	// summary, never returned. Cancellation or a deadline ends the run early
	// with Interrupted set and a nil error.
	Crawl(ctx context.Context, criteria domain.SearchCriteria) (*domain.CrawlSummary, error)
}

// Processor turns the intermediate store into the final artifact.
type Processor interface {
	// Process consumes in to exhaustion and commits out. On error out is aborted.
	Process(ctx context.Context, in driven.RawRecordReader, out driven.RecordSink) (*domain.ProcessSummary, error)
}

// RunHistory records and lists completed runs.
type RunHistory interface {
	// Record stores the outcome of a run and returns its ledger entry.
	Record(ctx context.Context, phase domain.RunPhase, started time.Time, counts []domain.Count, interrupted bool, runErr error) (domain.Run, error)

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]domain.Run, error)
}
