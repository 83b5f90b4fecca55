// Package domain defines the core business entities for codeharvest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SearchCriteria: What a crawl run looks for
//   - RepositoryRef / FileBlobRef: Remote handles discovered while crawling
//   - RawRecord: One fetched file, as written to the intermediate store
//   - ProcessedRecord: A RawRecord after filtering, sanitization and scoring
//   - Settings: The validated run configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
