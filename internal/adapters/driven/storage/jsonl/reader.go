package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
	"github.com/custodia-labs/codeharvest/internal/logger"
)

// Verify interface compliance.
var _ driven.RawRecordReader = (*Reader[domain.RawRecord])(nil)

// Reader streams JSON lines from a file. It is not safe for concurrent use.
type Reader[T any] struct {
	f      *os.File
	br     *bufio.Reader
	path   string
	offset int64
	stats  domain.ReadStats
	done   bool
	log    *zerolog.Logger
}

// Open opens path for reading from the start.
func Open[T any](path string) (*Reader[T], error) {
	return OpenAt[T](path, 0)
}

// OpenAt opens path and resumes reading at offset, which must be a value
// previously returned by Offset.
func OpenAt[T any](path string, offset int64) (*Reader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("seek %s: %w", path, err)
		}
	}
	return &Reader[T]{
		f:      f,
		br:     bufio.NewReaderSize(f, 64*1024),
		path:   path,
		offset: offset,
		log:    logger.Named("jsonl"),
	}, nil
}

// Next returns the next decodable record, or io.EOF at the end of the file.
// Lines are read without a length limit.
func (r *Reader[T]) Next() (T, error) {
	var zero T
	if r.done {
		return zero, io.EOF
	}

	for {
		line, err := r.br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return zero, fmt.Errorf("read %s: %w", r.path, err)
		}
		complete := err == nil
		if len(line) == 0 {
			r.done = true
			return zero, io.EOF
		}

		start := r.offset
		r.offset += int64(len(line))

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if !complete {
				r.done = true
				return zero, io.EOF
			}
			continue
		}

		var v T
		if uerr := json.Unmarshal(trimmed, &v); uerr != nil {
			if !complete {
				// Leave the offset at the partial line so a resumed
				// reader sees it again once it is complete.
				r.offset = start
				r.stats.TruncatedTail = true
				r.done = true
				r.log.Warn().
					Str("path", r.path).
					Int64("offset", start).
					Err(fmt.Errorf("%w: %v", domain.ErrTruncatedRecord, uerr)).
					Msg("ignoring truncated final record")
				return zero, io.EOF
			}
			r.stats.Malformed++
			r.log.Warn().
				Str("path", r.path).
				Int64("offset", start).
				Err(uerr).
				Msg("skipping malformed record")
			continue
		}

		r.stats.Records++
		return v, nil
	}
}

// Offset returns the byte offset just past the last consumed line.
func (r *Reader[T]) Offset() int64 {
	return r.offset
}

// Stats reports what has been read so far.
func (r *Reader[T]) Stats() domain.ReadStats {
	return r.stats
}

// Close closes the file.
func (r *Reader[T]) Close() error {
	return r.f.Close()
}

// ReadAll decodes every record in path.
func ReadAll[T any](path string) ([]T, domain.ReadStats, error) {
	r, err := Open[T](path)
	if err != nil {
		return nil, domain.ReadStats{}, err
	}
	defer r.Close()

	var out []T
	for {
		v, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, r.Stats(), nil
		}
		if err != nil {
			return out, r.Stats(), err
		}
		out = append(out, v)
	}
}
