package domain

import (
	"strings"
	"time"
)

// SearchCriteria is the immutable input to a crawl run.
type SearchCriteria struct {
	// Language is the primary repository language to search for.
	Language string

	// MinStars is the minimum stargazer count, inclusive.
	MinStars int

	// RecencyWindow limits results to repositories pushed within this window.
	// Zero disables the check.
	RecencyWindow time.Duration

	// RequiredLicenses is the set of acceptable SPDX identifiers.
	// An empty set accepts any license.
	RequiredLicenses []string

	// MaxRepos caps the number of repositories accepted.
	MaxRepos int
}

// AllowsLicense reports whether spdx is in the required set.
// Matching is case-insensitive.
func (c SearchCriteria) AllowsLicense(spdx string) bool {
	if len(c.RequiredLicenses) == 0 {
		return true
	}
	for _, l := range c.RequiredLicenses {
		if strings.EqualFold(l, spdx) {
			return true
		}
	}
	return false
}

// PushedSince returns the earliest acceptable push time, or the zero time
// when no recency window is set.
func (c SearchCriteria) PushedSince(now time.Time) time.Time {
	if c.RecencyWindow <= 0 {
		return time.Time{}
	}
	return now.Add(-c.RecencyWindow)
}

// Accepts reports whether repo satisfies the criteria at time now.
// It returns a short reason when the repository is rejected.
func (c SearchCriteria) Accepts(repo RepositoryRef, now time.Time) (bool, string) {
	if !c.AllowsLicense(repo.License) {
		return false, "license"
	}
	if repo.Stars < c.MinStars {
		return false, "stars"
	}
	if since := c.PushedSince(now); !since.IsZero() && repo.PushedAt.Before(since) {
		return false, "recency"
	}
	return true, ""
}
