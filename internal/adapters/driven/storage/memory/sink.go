package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.RecordSink = (*Sink)(nil)

// Sink is an in-memory RecordSink. Records become visible through
// Committed only after Commit.
type Sink struct {
	mu        sync.Mutex
	pending   []domain.ProcessedRecord
	committed []domain.ProcessedRecord
	done      bool
	aborted   bool

	// FailAfter makes Write fail once this many records are held. Zero
	// disables it.
	FailAfter int
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Write holds rec until Commit.
func (s *Sink) Write(_ context.Context, rec domain.ProcessedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return &domain.SerializationError{Path: ":memory:", Err: errors.New("sink already closed")}
	}
	if s.FailAfter > 0 && len(s.pending) >= s.FailAfter {
		return &domain.SerializationError{Path: ":memory:", Err: errors.New("write limit reached")}
	}
	s.pending = append(s.pending, rec)
	return nil
}

// Commit publishes the held records.
func (s *Sink) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return &domain.SerializationError{Path: ":memory:", Err: errors.New("sink already closed")}
	}
	s.done = true
	s.committed = s.pending
	s.pending = nil
	return nil
}

// Abort drops the held records.
func (s *Sink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	s.aborted = true
	s.pending = nil
	return nil
}

// Count returns the number of records written so far.
func (s *Sink) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed != nil {
		return int64(len(s.committed))
	}
	return int64(len(s.pending))
}

// Committed returns the published records, or nil before Commit.
func (s *Sink) Committed() []domain.ProcessedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProcessedRecord(nil), s.committed...)
}

// Aborted reports whether Abort discarded the records.
func (s *Sink) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}
