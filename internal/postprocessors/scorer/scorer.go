// Package scorer provides the heuristic quality scoring stage.
package scorer

import (
	"context"
	"math"
	"strings"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// Name is the stage name.
const Name = "score"

// Weights of the scoring heuristics. They sum to 1.
const (
	densityWeight     = 0.5
	commentRangeBonus = 0.2
	testsKeywordBonus = 0.3
	minCommentRatio   = 0.05
	maxCommentRatio   = 0.3
)

var commentMarkers = []string{"#", "//", "/*", "--", "<!--"}

var testKeywords = []string{
	"import unittest",
	"import pytest",
	" test",
	" assert ",
	"func test",
	"testing.t",
	"@test",
	"describe(",
}

// Result holds the score and the metrics it was derived from.
type Result struct {
	Score           float64
	CommentRatio    float64
	CodeDensity     float64
	HasTestsKeyword bool
	TotalLines      int
	CodeLines       int
	CommentLines    int
}

// Score computes a deterministic quality score in [0, 1] for content.
//
// Half the score is code density (non-blank, non-comment lines over all
// lines), 0.2 is awarded when the comment ratio lies strictly between 0.05
// and 0.3, and 0.3 when the content mentions testing.
func Score(content string) Result {
	var r Result
	for _, line := range splitLines(content) {
		r.TotalLines++
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case isComment(trimmed):
			r.CommentLines++
		default:
			r.CodeLines++
		}
	}

	score := 0.0
	if r.TotalLines > 0 {
		r.CommentRatio = round3(float64(r.CommentLines) / float64(r.TotalLines))
		r.CodeDensity = round3(float64(r.CodeLines) / float64(r.TotalLines))
		score += float64(r.CodeLines) / float64(r.TotalLines) * densityWeight

		ratio := float64(r.CommentLines) / float64(r.TotalLines)
		if ratio > minCommentRatio && ratio < maxCommentRatio {
			score += commentRangeBonus
		}
	}

	lower := strings.ToLower(content)
	for _, kw := range testKeywords {
		if strings.Contains(lower, kw) {
			r.HasTestsKeyword = true
			score += testsKeywordBonus
			break
		}
	}

	r.Score = round3(math.Max(0, math.Min(1, score)))
	return r
}

// Scorer sets the quality score and annotations on each record.
// It implements the RecordStage interface.
type Scorer struct{}

// New creates a scorer stage.
func New() *Scorer {
	return &Scorer{}
}

// Name returns the stage name.
func (s *Scorer) Name() string {
	return Name
}

// Process scores rec. It never drops a record.
func (s *Scorer) Process(_ context.Context, rec *domain.ProcessedRecord) (domain.Verdict, error) {
	r := Score(rec.Content)
	rec.QualityScore = r.Score
	rec.Annotate("comment_ratio", r.CommentRatio)
	rec.Annotate("code_density", r.CodeDensity)
	rec.Annotate("has_tests_keyword", r.HasTestsKeyword)
	rec.Annotate("total_lines", r.TotalLines)
	rec.Annotate("code_lines", r.CodeLines)
	rec.Annotate("comment_lines", r.CommentLines)
	return domain.Keep(), nil
}

func isComment(trimmed string) bool {
	for _, m := range commentMarkers {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	return false
}

// splitLines splits on newlines; a trailing newline does not add a line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
