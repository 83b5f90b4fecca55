package github

import (
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// BuildQuery renders search criteria as a repository search query.
//
// A license qualifier is only added when exactly one license is required;
// the search syntax cannot express a set, so larger sets are enforced
// client-side by domain.SearchCriteria.Accepts.
func BuildQuery(c domain.SearchCriteria, now time.Time) string {
	parts := make([]string, 0, 4)
	if c.Language != "" {
		parts = append(parts, "language:"+c.Language)
	}
	parts = append(parts, fmt.Sprintf("stars:>=%d", c.MinStars))
	if since := c.PushedSince(now); !since.IsZero() {
		parts = append(parts, "pushed:>"+since.UTC().Format("2006-01-02"))
	}
	if len(c.RequiredLicenses) == 1 {
		parts = append(parts, "license:"+strings.ToLower(c.RequiredLicenses[0]))
	}
	return strings.Join(parts, " ")
}

// toRepositoryRef converts a search result to a domain reference.
func toRepositoryRef(r *gh.Repository) domain.RepositoryRef {
	license := domain.NoAssertionLicense
	if l := r.GetLicense(); l != nil && l.GetSPDXID() != "" {
		license = l.GetSPDXID()
	}
	return domain.RepositoryRef{
		URL:           r.GetHTMLURL(),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		DefaultBranch: r.GetDefaultBranch(),
		License:       license,
		Stars:         r.GetStargazersCount(),
		PushedAt:      r.GetPushedAt().Time,
	}
}
