package driven

import "context"

// TokenProvider provides access tokens for authenticated API calls.
type TokenProvider interface {
	// GetToken returns the access token.
	// Returns empty string when no credential is configured, in which case
	// requests are made anonymously at a much lower rate limit.
	GetToken(ctx context.Context) (string, error)

	// IsAuthenticated returns true if a credential is available.
	IsAuthenticated() bool
}
