// Package auth provides token providers for the GitHub API client.
package auth

import (
	"context"
	"os"
	"strings"

	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// TokenEnvVar is the environment variable holding the personal access token.
const TokenEnvVar = "GITHUB_TOKEN"

// Ensure EnvTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*EnvTokenProvider)(nil)

// EnvTokenProvider reads a personal access token from the environment on
// every call, so a token loaded from a .env file after construction is
// still picked up.
type EnvTokenProvider struct {
	name   string
	lookup func(string) (string, bool)
}

// NewEnvTokenProvider creates a provider for the named variable. An empty
// name means TokenEnvVar.
func NewEnvTokenProvider(name string) *EnvTokenProvider {
	if name == "" {
		name = TokenEnvVar
	}
	return &EnvTokenProvider{name: name, lookup: os.LookupEnv}
}

// GetToken returns the trimmed token, or an empty string if unset.
func (p *EnvTokenProvider) GetToken(_ context.Context) (string, error) {
	return p.token(), nil
}

// IsAuthenticated reports whether a non-empty token is set.
func (p *EnvTokenProvider) IsAuthenticated() bool {
	return p.token() != ""
}

// Variable returns the environment variable name.
func (p *EnvTokenProvider) Variable() string {
	return p.name
}

func (p *EnvTokenProvider) token() string {
	v, _ := p.lookup(p.name)
	return strings.TrimSpace(v)
}
