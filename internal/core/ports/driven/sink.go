package driven

import (
	"context"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// RecordSink collects processed records into the final artifact.
// The artifact either appears complete after Commit or not at all.
type RecordSink interface {
	// Write adds a record. Records are stored in arrival order.
	Write(ctx context.Context, rec domain.ProcessedRecord) error

	// Commit finalises the artifact.
	Commit() error

	// Abort discards everything written so far.
	Abort() error

	// Count returns the number of records written.
	Count() int64
}
