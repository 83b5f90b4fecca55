package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSettings indicates the run configuration failed validation.
	ErrInvalidSettings = errors.New("invalid settings")

	// Fetch Errors.

	// ErrFatalFetch indicates the remote resource is unusable (4xx other than
	// rate limiting, or an undecodable payload). Retrying will not help.
	ErrFatalFetch = errors.New("fatal fetch error")

	// ErrTransientFetch indicates retries on a 5xx or network failure were exhausted.
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrRateLimitExceeded indicates the rate-limit retry cap was reached.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Storage Errors.

	// ErrSerialization indicates a record could not be written to an artifact.
	ErrSerialization = errors.New("serialization error")

	// ErrTruncatedRecord indicates the final line of a line-delimited file was
	// cut short, typically by a crash mid-write.
	ErrTruncatedRecord = errors.New("truncated record")
)

// FetchError describes a failed request against the remote hosting API.
// Kind is one of ErrFatalFetch, ErrTransientFetch or ErrRateLimitExceeded.
type FetchError struct {
	Kind       error
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// SerializationError reports a failure to encode or persist a record.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("serialization: %v", e.Err)
	}
	return fmt.Sprintf("serialization %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() []error {
	return []error{ErrSerialization, e.Err}
}

// FetchErrorKind returns the kind sentinel for err, or nil when err is not a
// fetch failure.
func FetchErrorKind(err error) error {
	switch {
	case errors.Is(err, ErrRateLimitExceeded):
		return ErrRateLimitExceeded
	case errors.Is(err, ErrTransientFetch):
		return ErrTransientFetch
	case errors.Is(err, ErrFatalFetch):
		return ErrFatalFetch
	default:
		return nil
	}
}
