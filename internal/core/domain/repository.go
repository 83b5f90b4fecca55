package domain

import "time"

// NoAssertionLicense is recorded when a repository declares no license.
const NoAssertionLicense = "NOASSERTION"

// RepositoryRef identifies a repository returned by search.
type RepositoryRef struct {
	URL           string
	Owner         string
	Name          string
	DefaultBranch string
	License       string
	Stars         int
	PushedAt      time.Time
}

// FullName returns owner/name.
func (r RepositoryRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// FileBlobRef identifies a single file within a repository tree.
type FileBlobRef struct {
	Repo RepositoryRef
	Path string
	SHA  string
	Size int64
	Type string
}

// Tree is the blob listing of a repository's default branch.
type Tree struct {
	Blobs []FileBlobRef

	// Truncated is set when the API cut the listing short.
	Truncated bool
}
