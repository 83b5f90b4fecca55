// Package github implements the fetch client for the GitHub REST API.
//
// The client searches public repositories, lists repository trees and
// retrieves file blobs. It is the only component that talks to the network
// during a crawl.
//
// # Architecture
//
// The client follows the driven port pattern defined in [driven.FetchClient].
// It comprises the following components:
//
//   - Client: wraps go-github and applies the retry decision table
//   - RateLimiter: the single gate every request passes through
//   - Config: timeouts, retry caps and the API base URL
//   - BuildQuery: renders search criteria as a search query
//
// # Authentication
//
// A Personal Access Token is read through a [driven.TokenProvider]. Without
// one, requests are anonymous and limited to 60 per hour.
//
// # Rate Limiting
//
// The client implements a dual-strategy rate limiting approach:
//
//  1. Proactive throttling: a token bucket limits requests to approximately
//     1.2 requests per second, staying under the 5,000/hour limit.
//
//  2. Reactive handling: the limiter tracks X-RateLimit-Remaining and
//     X-RateLimit-Reset. When the budget is exhausted, every caller waits
//     until the reset time before continuing.
//
// # Error Handling
//
// Each attempt is classified and handled as follows:
//
//   - Rate limited (403 with an exhausted budget or Retry-After, or 429):
//     the limiter is told the reset time and the request is retried once
//     admitted, up to Config.RateLimitRetries times.
//   - Retryable (5xx or no response): retried with exponential backoff, up
//     to Config.MaxRetries times.
//   - Fatal (any other 4xx, undecodable payload): returned immediately.
//
// Failures are returned as [*domain.FetchError] so callers can count them by
// kind.
//
// # Limitations
//
//   - The search API returns at most 1,000 results per query
//   - Tree listings for very large repositories may be truncated by the API
//
// # Example Usage
//
//	limiter := github.NewRateLimiter(github.ProactiveRate)
//	client := github.NewClient(tokenProvider, limiter, github.DefaultConfig())
//
//	repos, hasMore, err := client.Search(ctx, criteria, 1)
package github
