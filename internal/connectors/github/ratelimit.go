package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// GitHubRateLimit is the authenticated rate limit (5000/hour).
	GitHubRateLimit = 5000

	// ProactiveRate is the default proactive throttle rate (~1.2 req/sec = 4320/hr).
	ProactiveRate = 1.2

	// HeaderRateLimit is the rate limit header.
	HeaderRateLimit = "X-RateLimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-RateLimit-Remaining"

	// HeaderRateReset is the reset timestamp header (Unix seconds).
	HeaderRateReset = "X-RateLimit-Reset"

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter is the single gate every API request passes through.
//
// It combines a proactive token bucket with the server-reported budget:
// Acquire consumes one unit of the remaining budget and blocks while the
// budget is exhausted and the reset time lies in the future. Response
// headers reconcile the budget through Report. A rate-limited response
// sets a hard block through ReportExhausted that no header report lifts.
type RateLimiter struct {
	mu           sync.Mutex
	remaining    int           // From API header, decremented optimistically
	limit        int           // From API header
	resetAt      time.Time     // From API header or rate-limit response
	blockedUntil time.Time     // Set only by ReportExhausted, moves forward only
	bucket       *rate.Limiter // Proactive throttling, nil when disabled
	now          func() time.Time
}

// NewRateLimiter creates a rate limiter. requestsPerSecond <= 0 disables
// proactive throttling.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	r := &RateLimiter{
		remaining: GitHubRateLimit, // Assume full quota initially
		limit:     GitHubRateLimit,
		now:       time.Now,
	}
	if requestsPerSecond > 0 {
		r.bucket = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return r
}

// Acquire blocks until a request may be issued, then consumes one unit of
// the budget. It returns the context error if ctx ends while waiting.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	if r.bucket != nil {
		if err := r.bucket.Wait(ctx); err != nil {
			return err
		}
	}

	for {
		r.mu.Lock()
		now := r.now()
		if now.Before(r.blockedUntil) {
			wait := r.blockedUntil.Sub(now)
			r.mu.Unlock()
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}
		if r.remaining <= 0 && !now.Before(r.resetAt) {
			r.remaining = r.limit
		}
		if r.remaining > 0 {
			r.remaining--
			r.mu.Unlock()
			return nil
		}
		wait := r.resetAt.Sub(now)
		r.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Report reconciles the budget with rate-limit headers from a response.
// While the budget is exhausted, a report carrying an earlier reset time
// is stale and ignored. Report never lifts a block set by ReportExhausted.
func (r *RateLimiter) Report(h http.Header) {
	if h == nil {
		return
	}

	remaining, hasRemaining := headerInt(h, HeaderRateRemaining)
	limit, hasLimit := headerInt(h, HeaderRateLimit)
	resetUnix, hasReset := headerInt(h, HeaderRateReset)
	if !hasRemaining && !hasLimit && !hasReset {
		return
	}
	reset := time.Unix(int64(resetUnix), 0)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.remaining <= 0 && r.now().Before(r.resetAt) && (!hasReset || reset.Before(r.resetAt)) {
		return
	}
	if hasLimit && limit > 0 {
		r.limit = limit
	}
	if hasRemaining {
		r.remaining = remaining
	}
	if hasReset {
		r.resetAt = reset
	}
}

// ReportExhausted blocks every Acquire until resetAt. The block only ever
// moves forward.
func (r *RateLimiter) ReportExhausted(resetAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = 0
	if resetAt.After(r.blockedUntil) {
		r.blockedUntil = resetAt
	}
	if resetAt.After(r.resetAt) {
		r.resetAt = resetAt
	}
}

// Remaining returns the current remaining requests.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// Limit returns the rate limit.
func (r *RateLimiter) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// ResetTime returns the rate limit reset time.
func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blockedUntil.After(r.resetAt) {
		return r.blockedUntil
	}
	return r.resetAt
}

// BlockedUntil returns the deadline set by ReportExhausted, or the zero
// time if none was reported.
func (r *RateLimiter) BlockedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blockedUntil
}

func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
