// Package columnar writes the final dataset as a Snappy-compressed Parquet
// file.
//
// Rows are streamed into a temporary file next to the destination. Commit
// closes the Parquet footer, syncs, and renames the file into place, so the
// destination path only ever holds a complete artifact. Abort, or any
// write failure, removes the temporary file.
package columnar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
	"github.com/custodia-labs/codeharvest/internal/logger"
)

// Verify interface compliance.
var _ driven.RecordSink = (*Sink)(nil)

// Sink is a RecordSink backed by a Parquet file. It is not safe for
// concurrent use.
type Sink struct {
	path   string
	tmp    *os.File
	w      *parquet.GenericWriter[row]
	count  int64
	failed error
	closed bool
	log    *zerolog.Logger
}

// NewSink creates a sink that will commit to path.
func NewSink(path string) (*Sink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &Sink{
		path: path,
		tmp:  tmp,
		w:    parquet.NewGenericWriter[row](tmp, parquet.Compression(&parquet.Snappy)),
		log:  logger.Named("columnar"),
	}, nil
}

// Path returns the destination path.
func (s *Sink) Path() string {
	return s.path
}

// Write validates rec and appends it as one row.
func (s *Sink) Write(_ context.Context, rec domain.ProcessedRecord) error {
	if s.closed {
		return &domain.SerializationError{Path: s.path, Err: errors.New("sink already closed")}
	}
	if s.failed != nil {
		return s.failed
	}

	r, err := toRow(rec)
	if err != nil {
		return s.fail(err)
	}
	if _, err := s.w.Write([]row{r}); err != nil {
		return s.fail(fmt.Errorf("write row %s: %w", rec.Key(), err))
	}
	s.count++
	return nil
}

// Count returns the number of rows written.
func (s *Sink) Count() int64 {
	return s.count
}

// Commit finalises the artifact at the destination path.
func (s *Sink) Commit() error {
	if s.closed {
		return &domain.SerializationError{Path: s.path, Err: errors.New("sink already closed")}
	}
	if s.failed != nil {
		_ = s.Abort()
		return s.failed
	}
	s.closed = true

	if err := s.w.Close(); err != nil {
		return s.discard(fmt.Errorf("close parquet writer: %w", err))
	}
	if err := s.tmp.Sync(); err != nil {
		return s.discard(fmt.Errorf("sync: %w", err))
	}
	if err := s.tmp.Close(); err != nil {
		return s.discard(fmt.Errorf("close: %w", err))
	}
	if err := os.Rename(s.tmp.Name(), s.path); err != nil {
		_ = os.Remove(s.tmp.Name())
		return &domain.SerializationError{Path: s.path, Err: fmt.Errorf("rename: %w", err)}
	}

	if s.count == 0 {
		s.log.Warn().Str("path", s.path).Msg("artifact committed with no records")
	}
	s.log.Debug().Str("path", s.path).Int64("rows", s.count).Msg("artifact committed")
	return nil
}

// Abort discards the temporary file. Safe to call more than once.
func (s *Sink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.tmp.Close()
	if err := os.Remove(s.tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}

func (s *Sink) fail(err error) error {
	s.failed = &domain.SerializationError{Path: s.path, Err: err}
	return s.failed
}

func (s *Sink) discard(err error) error {
	s.tmp.Close()
	_ = os.Remove(s.tmp.Name())
	return &domain.SerializationError{Path: s.path, Err: err}
}

// ReadRecords reads a committed artifact back into records.
func ReadRecords(path string) ([]domain.ProcessedRecord, error) {
	rows, err := parquet.ReadFile[row](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := make([]domain.ProcessedRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
