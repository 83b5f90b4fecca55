package github

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// outcome is the classification of a single API attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRateLimited
	outcomeRetryable
	outcomeFatal
)

func (o outcome) String() string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeRateLimited:
		return "rate_limited"
	case outcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// classify maps a response and error onto the retry decision table:
//
//	403/429 with a rate-limit indication -> rate limited
//	5xx, or no response at all           -> retryable
//	any other failure                    -> fatal
func classify(resp *gh.Response, err error) outcome {
	if err == nil {
		return outcomeSuccess
	}

	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return outcomeRateLimited
	}

	status := statusCode(resp)
	switch {
	case status == 0:
		return outcomeRetryable
	case status == http.StatusTooManyRequests:
		return outcomeRateLimited
	case status == http.StatusForbidden && isRateLimitResponse(resp.Response):
		return outcomeRateLimited
	case status >= 500:
		return outcomeRetryable
	default:
		return outcomeFatal
	}
}

// isRateLimitResponse reports whether a 403 is a primary or secondary
// rate-limit response rather than a permissions failure.
func isRateLimitResponse(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	return resp.Header.Get(HeaderRateRemaining) == "0" || resp.Header.Get(HeaderRetryAfter) != ""
}

func statusCode(resp *gh.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

// rateLimitReset works out when a rate-limited request may be retried.
// Retry-After wins, then the reset header of an exhausted budget, then the
// reset reported on the go-github error. It returns the zero time when the
// response carries no hint.
func rateLimitReset(resp *gh.Response, err error, now time.Time) time.Time {
	if resp != nil && resp.Response != nil {
		if v := resp.Header.Get(HeaderRetryAfter); v != "" {
			if secs, perr := strconv.Atoi(v); perr == nil && secs >= 0 {
				return now.Add(time.Duration(secs) * time.Second)
			}
		}
		if resp.Header.Get(HeaderRateRemaining) == "0" {
			if reset, ok := headerInt(resp.Header, HeaderRateReset); ok {
				return time.Unix(int64(reset), 0)
			}
		}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.RetryAfter != nil {
		return now.Add(*abuseErr.RetryAfter)
	}
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) && !rateErr.Rate.Reset.IsZero() {
		return rateErr.Rate.Reset.Time
	}
	return time.Time{}
}

func fetchError(kind error, op string, resp *gh.Response, err error) *domain.FetchError {
	return &domain.FetchError{
		Kind:       kind,
		Op:         op,
		StatusCode: statusCode(resp),
		Err:        err,
	}
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var fe *domain.FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}

// IsRateLimited checks if the error indicates the rate-limit retry cap was hit.
func IsRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimitExceeded)
}
