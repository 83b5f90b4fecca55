package memory

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// Ensure RecordStore implements the writer interface.
var _ driven.RawRecordWriter = (*RecordStore)(nil)

// ErrClosed is returned when appending to a closed store.
var ErrClosed = errors.New("record store closed")

// RecordStore is an in-memory intermediate store for RawRecords.
type RecordStore struct {
	mu      sync.RWMutex
	records []domain.RawRecord
	closed  bool
}

// NewRecordStore creates an empty store, optionally seeded with records.
func NewRecordStore(records ...domain.RawRecord) *RecordStore {
	return &RecordStore{records: append([]domain.RawRecord(nil), records...)}
}

// Append stores a record.
func (s *RecordStore) Append(_ context.Context, rec domain.RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records = append(s.records, rec)
	return nil
}

// Close marks the store closed for writing.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Records returns a copy of the stored records in append order.
func (s *RecordStore) Records() []domain.RawRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.RawRecord(nil), s.records...)
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reader returns a reader over a snapshot of the current records.
func (s *RecordStore) Reader() *RecordReader {
	return &RecordReader{records: s.Records()}
}

// Ensure RecordReader implements the reader interface.
var _ driven.RawRecordReader = (*RecordReader)(nil)

// RecordReader iterates a snapshot of a RecordStore. Offset counts records.
type RecordReader struct {
	records []domain.RawRecord
	next    int
	stats   domain.ReadStats
}

// Next returns the next record or io.EOF.
func (r *RecordReader) Next() (domain.RawRecord, error) {
	if r.next >= len(r.records) {
		return domain.RawRecord{}, io.EOF
	}
	rec := r.records[r.next]
	r.next++
	r.stats.Records++
	return rec, nil
}

// Offset returns the number of records consumed.
func (r *RecordReader) Offset() int64 {
	return int64(r.next)
}

// Stats reports consumption so far.
func (r *RecordReader) Stats() domain.ReadStats {
	return r.stats
}

// Close is a no-op.
func (r *RecordReader) Close() error {
	return nil
}
