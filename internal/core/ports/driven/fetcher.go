package driven

import (
	"context"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// FetchClient talks to the remote code hosting API.
//
// Every call is gated by a shared rate limiter. Failures are returned as
// *domain.FetchError, classified as fatal, transient (retries exhausted) or
// rate limited (rate-limit retries exhausted). Context errors are returned
// unwrapped.
type FetchClient interface {
	// Search returns one page of repositories matching criteria, ordered by
	// stars descending. Pages are 1-based. hasMore is false on the last page.
	Search(ctx context.Context, criteria domain.SearchCriteria, page int) (repos []domain.RepositoryRef, hasMore bool, err error)

	// ListTree returns every blob reachable from the repository's default
	// branch. The tree is marked truncated when the API could not list it all.
	ListTree(ctx context.Context, repo domain.RepositoryRef) (domain.Tree, error)

	// GetBlob returns the decoded bytes of a blob.
	GetBlob(ctx context.Context, blob domain.FileBlobRef) ([]byte, error)
}
