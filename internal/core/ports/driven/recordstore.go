package driven

import (
	"context"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// RawRecordWriter appends RawRecords to the intermediate store.
// Each record is written as a single unit; a crash leaves at most one
// partial record at the tail.
type RawRecordWriter interface {
	Append(ctx context.Context, rec domain.RawRecord) error
	Close() error
}

// RawRecordReader streams RawRecords from the intermediate store in write order.
type RawRecordReader interface {
	// Next returns the next record, or io.EOF when the store is exhausted.
	// Malformed entries are skipped and counted rather than returned as errors.
	Next() (domain.RawRecord, error)

	// Offset returns the position just after the last consumed entry.
	Offset() int64

	// Stats reports what has been consumed so far.
	Stats() domain.ReadStats

	Close() error
}

// ProcessedRecordWriter appends ProcessedRecords to a line-delimited side
// output.
type ProcessedRecordWriter interface {
	Append(ctx context.Context, rec domain.ProcessedRecord) error
	Close() error
}
