package auth

import (
	"context"

	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// Ensure NullTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*NullTokenProvider)(nil)

// NullTokenProvider makes every request anonymous.
type NullTokenProvider struct{}

// NewNullTokenProvider creates a token provider without a credential.
func NewNullTokenProvider() *NullTokenProvider {
	return &NullTokenProvider{}
}

// GetToken returns an empty string.
func (p *NullTokenProvider) GetToken(_ context.Context) (string, error) {
	return "", nil
}

// IsAuthenticated always returns false.
func (p *NullTokenProvider) IsAuthenticated() bool {
	return false
}
