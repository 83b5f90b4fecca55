package github

import (
	"time"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the default number of retries for transient errors.
	MaxRetries = 3

	// MaxRateLimitRetries is the default number of rate-limited attempts
	// before a request fails.
	MaxRateLimitRetries = 5

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second

	// MaxRetryDelay caps the exponential backoff.
	MaxRetryDelay = 30 * time.Second

	// SearchPerPage is the page size for repository search.
	SearchPerPage = 100

	// SearchResultCeiling is the number of results the search API will
	// return for any query, regardless of the total count.
	SearchResultCeiling = 1000
)

// Config holds the tuning knobs for the API client.
type Config struct {
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	// Must end with a slash. Empty uses api.github.com.
	BaseURL string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// MaxRetries is how many times a 5xx or network failure is retried.
	MaxRetries int

	// RateLimitRetries is how many rate-limited responses a request may
	// receive before failing with domain.ErrRateLimitExceeded.
	RateLimitRetries int

	// RetryDelay is the initial backoff interval.
	RetryDelay time.Duration

	// ResetBuffer is added to every rate-limit reset time.
	ResetBuffer time.Duration

	// PerPage is the search page size.
	PerPage int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:          DefaultTimeout,
		MaxRetries:       MaxRetries,
		RateLimitRetries: MaxRateLimitRetries,
		RetryDelay:       RetryDelay,
		PerPage:          SearchPerPage,
	}
}

// ConfigFromSettings derives a client configuration from run settings.
func ConfigFromSettings(s domain.Settings) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = s.APIBaseURL
	cfg.MaxRetries = s.MaxRetries
	cfg.RateLimitRetries = s.RateLimitRetries
	cfg.ResetBuffer = s.ResetBuffer
	return cfg
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RateLimitRetries <= 0 {
		c.RateLimitRetries = d.RateLimitRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.PerPage <= 0 || c.PerPage > SearchPerPage {
		c.PerPage = d.PerPage
	}
	return c
}
