package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.RawRecordWriter = (*Writer[domain.RawRecord])(nil)

// Mode selects how an existing file is treated when opening a Writer.
type Mode int

const (
	// Truncate starts a fresh file.
	Truncate Mode = iota
	// Append continues an existing file.
	Append
)

// Writer appends JSON lines to a file. It is safe for concurrent use.
type Writer[T any] struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	count int64
}

// NewWriter opens path for writing, creating parent directories as needed.
//
// In Append mode, a file whose last line lacks its newline (a record cut
// short by a crash) is terminated first, so new records start on a fresh
// line and the partial record reads back as malformed.
func NewWriter[T any](path string, mode Mode) (*Writer[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if mode == Truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if mode == Append {
		if err := terminatePartialLine(path, f); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &Writer[T]{f: f, path: path}, nil
}

func terminatePartialLine(path string, f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil
	}

	r, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	last := make([]byte, 1)
	if _, err := r.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := f.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("terminate partial line: %w", err)
	}
	return nil
}

// Append writes rec as a single line.
func (w *Writer[T]) Append(_ context.Context, rec T) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return &domain.SerializationError{Path: w.path, Err: err}
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return fmt.Errorf("write %s: writer closed", w.path)
	}
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written through this writer.
func (w *Writer[T]) Count() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Path returns the file path.
func (w *Writer[T]) Path() string {
	return w.path
}

// Close flushes the file to disk and closes it. Closing twice is a no-op.
func (w *Writer[T]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	f := w.f
	w.f = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", w.path, err)
	}
	return f.Close()
}
