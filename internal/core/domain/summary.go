package domain

import "time"

// Count is a named counter, used to render summaries in a stable order.
type Count struct {
	Name  string
	Value int64
}

// CrawlSummary reports the outcome of a crawl run.
type CrawlSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time

	// Interrupted is set when the run stopped on cancellation or deadline.
	Interrupted bool

	SearchPages     int64
	ReposSeen       int64
	ReposAccepted   int64
	ReposSkipped    int64
	BlobsListed     int64
	BlobsSkipped    int64
	BlobsFetched    int64
	RecordsWritten  int64
	DuplicatePaths  int64
	FatalErrors     int64
	TransientErrors int64
	RateLimitErrors int64
	TruncatedTrees  int64
}

// Errors returns the total number of skipped items due to fetch failures.
func (s *CrawlSummary) Errors() int64 {
	return s.FatalErrors + s.TransientErrors + s.RateLimitErrors
}

// Counts returns the summary counters in display order.
func (s *CrawlSummary) Counts() []Count {
	return []Count{
		{"search_pages", s.SearchPages},
		{"repos_seen", s.ReposSeen},
		{"repos_accepted", s.ReposAccepted},
		{"repos_skipped", s.ReposSkipped},
		{"blobs_listed", s.BlobsListed},
		{"blobs_skipped", s.BlobsSkipped},
		{"blobs_fetched", s.BlobsFetched},
		{"records_written", s.RecordsWritten},
		{"duplicate_paths", s.DuplicatePaths},
		{"fatal_errors", s.FatalErrors},
		{"transient_errors", s.TransientErrors},
		{"rate_limit_errors", s.RateLimitErrors},
		{"truncated_trees", s.TruncatedTrees},
	}
}

// ReadStats describes what a line-delimited reader consumed.
type ReadStats struct {
	Records   int64
	Malformed int64

	// TruncatedTail is set when the final line had no newline and did not decode.
	TruncatedTail bool
}

// ProcessSummary reports the outcome of a process run.
type ProcessSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Read          int64
	Malformed     int64
	TruncatedTail bool
	Filtered      int64
	Duplicates    int64
	StageErrors   int64
	Flagged       int64

	// Scored counts records that passed every stage, scoring included.
	// It exceeds Written only when a write fails.
	Scored  int64
	Written int64
}

// Counts returns the summary counters in display order.
func (s *ProcessSummary) Counts() []Count {
	truncated := int64(0)
	if s.TruncatedTail {
		truncated = 1
	}
	return []Count{
		{"read", s.Read},
		{"malformed", s.Malformed},
		{"truncated_tail", truncated},
		{"filtered", s.Filtered},
		{"duplicates", s.Duplicates},
		{"stage_errors", s.StageErrors},
		{"flagged", s.Flagged},
		{"scored", s.Scored},
		{"written", s.Written},
	}
}
