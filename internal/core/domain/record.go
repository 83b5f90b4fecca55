package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// RawRecord is one fetched file as written to the intermediate store.
// It is the connector's output before processing.
type RawRecord struct {
	RepoURL   string    `json:"repo_url"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	License   string    `json:"license"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Key identifies the record within a crawl run.
func (r RawRecord) Key() string {
	return r.RepoURL + "\x00" + r.Path
}

// ProcessedRecord is a RawRecord that has passed through the processing stages.
type ProcessedRecord struct {
	RawRecord

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string `json:"processed_content_hash"`

	// Findings lists PII and secret matches, ordered by start offset.
	Findings []Finding `json:"sanitization_findings"`

	// LineCount is the number of lines in Content.
	LineCount int `json:"line_count"`

	// QualityScore is in [0, 1].
	QualityScore float64 `json:"quality_score"`

	// Annotations holds stage-produced metadata keyed by name.
	Annotations Annotations `json:"annotations"`
}

// Annotations maps annotation names to scalar values.
type Annotations map[string]any

// NewProcessedRecord seeds a ProcessedRecord from raw, computing the content
// hash and line count.
func NewProcessedRecord(raw RawRecord) ProcessedRecord {
	return ProcessedRecord{
		RawRecord:   raw,
		ContentHash: ContentHash(raw.Content),
		LineCount:   CountLines(raw.Content),
		Annotations: Annotations{},
	}
}

// Annotate sets a single annotation, allocating the map when needed.
func (r *ProcessedRecord) Annotate(key string, value any) {
	if r.Annotations == nil {
		r.Annotations = Annotations{}
	}
	r.Annotations[key] = value
}

// ContentHash returns the hex SHA-256 digest of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// CountLines returns the number of lines in content. A trailing newline
// does not start a new line, and empty content has zero lines.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// DropReason names why a stage discarded a record.
type DropReason string

const (
	DropFiltered  DropReason = "filtered"
	DropDuplicate DropReason = "duplicate"
)

// Verdict is a stage's decision for one record.
type Verdict struct {
	Keep   bool
	Reason DropReason
	Detail string
}

// Keep returns a verdict that lets the record continue.
func Keep() Verdict {
	return Verdict{Keep: true}
}

// Drop returns a verdict that discards the record.
func Drop(reason DropReason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}
