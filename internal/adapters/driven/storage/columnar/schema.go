package columnar

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// findingRow is the nested element of the sanitization_findings column.
type findingRow struct {
	Kind     string `parquet:"kind"`
	Category string `parquet:"category"`
	Start    int64  `parquet:"start"`
	End      int64  `parquet:"end"`
	Excerpt  string `parquet:"excerpt"`
}

// row is the fixed schema of the final artifact. Annotations are stored as
// a JSON object in a string column.
type row struct {
	RepoURL              string       `parquet:"repo_url"`
	Path                 string       `parquet:"path"`
	Size                 int64        `parquet:"size"`
	License              string       `parquet:"license"`
	ProcessedContentHash string       `parquet:"processed_content_hash"`
	SanitizationFindings []findingRow `parquet:"sanitization_findings,list"`
	LineCount            int64        `parquet:"line_count"`
	QualityScore         float64      `parquet:"quality_score"`
	Annotations          string       `parquet:"annotations"`
	Content              string       `parquet:"content"`
}

// Columns lists the artifact columns in schema order.
var Columns = []string{
	"repo_url", "path", "size", "license", "processed_content_hash",
	"sanitization_findings", "line_count", "quality_score", "annotations", "content",
}

// toRow validates rec and converts it to the artifact schema. It fails
// rather than coercing a value that does not fit.
func toRow(rec domain.ProcessedRecord) (row, error) {
	var errs []error
	if rec.RepoURL == "" {
		errs = append(errs, errors.New("repo_url is empty"))
	}
	if rec.Path == "" {
		errs = append(errs, errors.New("path is empty"))
	}
	if rec.Size < 0 {
		errs = append(errs, fmt.Errorf("size %d is negative", rec.Size))
	}
	if len(rec.ContentHash) != 64 || strings.Trim(rec.ContentHash, "0123456789abcdef") != "" {
		errs = append(errs, fmt.Errorf("processed_content_hash %q is not a hex SHA-256", rec.ContentHash))
	}
	if rec.LineCount < 0 {
		errs = append(errs, fmt.Errorf("line_count %d is negative", rec.LineCount))
	}
	if math.IsNaN(rec.QualityScore) || rec.QualityScore < 0 || rec.QualityScore > 1 {
		errs = append(errs, fmt.Errorf("quality_score %v is outside [0, 1]", rec.QualityScore))
	}

	findings := make([]findingRow, 0, len(rec.Findings))
	for i, f := range rec.Findings {
		if f.Start < 0 || f.End < f.Start || f.End > len(rec.Content) {
			errs = append(errs, fmt.Errorf("finding %d span [%d, %d) is outside the content", i, f.Start, f.End))
			continue
		}
		findings = append(findings, findingRow{
			Kind:     string(f.Kind),
			Category: string(f.Kind.Category()),
			Start:    int64(f.Start),
			End:      int64(f.End),
			Excerpt:  f.Excerpt,
		})
	}

	annotations := domain.Annotations{}
	if rec.Annotations != nil {
		annotations = rec.Annotations
	}
	encoded, err := json.Marshal(annotations)
	if err != nil {
		errs = append(errs, fmt.Errorf("annotations: %w", err))
	}

	if len(errs) > 0 {
		return row{}, fmt.Errorf("%s: %w", rec.Key(), errors.Join(errs...))
	}
	return row{
		RepoURL:              rec.RepoURL,
		Path:                 rec.Path,
		Size:                 rec.Size,
		License:              rec.License,
		ProcessedContentHash: rec.ContentHash,
		SanitizationFindings: findings,
		LineCount:            int64(rec.LineCount),
		QualityScore:         rec.QualityScore,
		Annotations:          string(encoded),
		Content:              rec.Content,
	}, nil
}

// fromRow converts an artifact row back to a record. Numeric annotation
// values decode as float64.
func fromRow(r row) (domain.ProcessedRecord, error) {
	rec := domain.ProcessedRecord{
		RawRecord: domain.RawRecord{
			RepoURL: r.RepoURL,
			Path:    r.Path,
			Size:    r.Size,
			License: r.License,
			Content: r.Content,
		},
		ContentHash:  r.ProcessedContentHash,
		LineCount:    int(r.LineCount),
		QualityScore: r.QualityScore,
		Annotations:  domain.Annotations{},
	}
	for _, f := range r.SanitizationFindings {
		rec.Findings = append(rec.Findings, domain.Finding{
			Kind:    domain.FindingKind(f.Kind),
			Start:   int(f.Start),
			End:     int(f.End),
			Excerpt: f.Excerpt,
		})
	}
	if r.Annotations != "" {
		if err := json.Unmarshal([]byte(r.Annotations), &rec.Annotations); err != nil {
			return rec, fmt.Errorf("decode annotations of %s: %w", rec.Key(), err)
		}
	}
	return rec, nil
}
