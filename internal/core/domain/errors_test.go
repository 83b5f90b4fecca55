package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidSettings", ErrInvalidSettings},
		{"ErrFatalFetch", ErrFatalFetch},
		{"ErrTransientFetch", ErrTransientFetch},
		{"ErrRateLimitExceeded", ErrRateLimitExceeded},
		{"ErrSerialization", ErrSerialization},
		{"ErrTruncatedRecord", ErrTruncatedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestFetchError_UnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("list tree: %w", &FetchError{
		Kind:       ErrTransientFetch,
		Op:         "get tree",
		StatusCode: 502,
		Err:        cause,
	})

	assert.ErrorIs(t, err, ErrTransientFetch)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrFatalFetch)
	assert.Contains(t, err.Error(), "HTTP 502")

	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, "get tree", fe.Op)
}

func TestFetchError_NoCause(t *testing.T) {
	err := &FetchError{Kind: ErrRateLimitExceeded, Op: "search"}
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, "search: rate limit exceeded", err.Error())
}

func TestFetchErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"fatal", &FetchError{Kind: ErrFatalFetch, Op: "x"}, ErrFatalFetch},
		{"transient", &FetchError{Kind: ErrTransientFetch, Op: "x"}, ErrTransientFetch},
		{"rate limit", &FetchError{Kind: ErrRateLimitExceeded, Op: "x"}, ErrRateLimitExceeded},
		{"other", errors.New("boom"), nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FetchErrorKind(tt.err))
		})
	}
}

func TestSerializationError(t *testing.T) {
	cause := errors.New("quality_score out of range")
	err := &SerializationError{Path: "out.parquet", Err: cause}

	assert.ErrorIs(t, err, ErrSerialization)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "serialization out.parquet: quality_score out of range", err.Error())
}
