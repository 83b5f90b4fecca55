package github

import (
	"encoding/base64"
	"strings"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// blobsFromTree converts tree entries to blob references, skipping
// directories, submodules and symlinks.
func blobsFromTree(repo domain.RepositoryRef, tree *gh.Tree) []domain.FileBlobRef {
	if tree == nil {
		return nil
	}
	blobs := make([]domain.FileBlobRef, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || entry.GetMode() == "120000" {
			continue
		}
		blobs = append(blobs, domain.FileBlobRef{
			Repo: repo,
			Path: entry.GetPath(),
			SHA:  entry.GetSHA(),
			Size: int64(entry.GetSize()),
			Type: entry.GetType(),
		})
	}
	return blobs
}

// decodeBlob returns the raw bytes of a blob. Base64 content is decoded;
// anything else is used verbatim.
func decodeBlob(blob *gh.Blob) ([]byte, error) {
	if blob.GetEncoding() == "base64" {
		// Remove any whitespace from base64 content
		content := strings.ReplaceAll(blob.GetContent(), "\n", "")
		return base64.StdEncoding.DecodeString(content)
	}
	return []byte(blob.GetContent()), nil
}
