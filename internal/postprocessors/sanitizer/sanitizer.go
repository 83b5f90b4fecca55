// Package sanitizer provides the PII and secret scanning stage.
//
// Patterns are RE2 and match in time linear in the input.
package sanitizer

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// Name is the stage name.
const Name = "sanitize"

// DefaultMaxFindings caps findings recorded per record.
const DefaultMaxFindings = 256

// MaxExcerpt is the longest excerpt stored with a finding, in bytes.
const MaxExcerpt = 64

type pattern struct {
	kind   domain.FindingKind
	re     *regexp.Regexp
	redact bool
}

var defaultPatterns = []pattern{
	{kind: domain.FindingEmail, re: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{kind: domain.FindingPrivateKey, re: regexp.MustCompile(`-----BEGIN (?:[A-Z0-9]+ )*PRIVATE KEY(?: BLOCK)?(?:-----)?`)},
	{kind: domain.FindingAWSKey, re: regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`), redact: true},
	{kind: domain.FindingGitHubToken, re: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,255}\b`), redact: true},
}

// Sanitizer flags email addresses and secrets in record content.
// Findings are reported, never removed from the content.
// It implements the RecordStage interface.
type Sanitizer struct {
	patterns    []pattern
	maxFindings int
}

// Option configures the sanitizer.
type Option func(*Sanitizer)

// WithMaxFindings caps the number of findings kept per record.
func WithMaxFindings(n int) Option {
	return func(s *Sanitizer) {
		if n > 0 {
			s.maxFindings = n
		}
	}
}

// New creates a sanitizer with the built-in patterns.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{
		patterns:    defaultPatterns,
		maxFindings: DefaultMaxFindings,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the stage name.
func (s *Sanitizer) Name() string {
	return Name
}

// Scan returns the findings in content ordered by start offset, then kind.
func (s *Sanitizer) Scan(content string) []domain.Finding {
	var findings []domain.Finding
	for _, p := range s.patterns {
		for _, loc := range p.re.FindAllStringIndex(content, s.maxFindings) {
			findings = append(findings, domain.Finding{
				Kind:    p.kind,
				Start:   loc[0],
				End:     loc[1],
				Excerpt: excerpt(content[loc[0]:loc[1]], p.redact),
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Start != findings[j].Start {
			return findings[i].Start < findings[j].Start
		}
		return findings[i].Kind < findings[j].Kind
	})
	if len(findings) > s.maxFindings {
		findings = findings[:s.maxFindings]
	}
	return findings
}

// Process records findings on rec. It never drops a record.
func (s *Sanitizer) Process(_ context.Context, rec *domain.ProcessedRecord) (domain.Verdict, error) {
	rec.Findings = s.Scan(rec.Content)
	rec.Annotate("has_pii", domain.HasCategory(rec.Findings, domain.CategoryPII))
	rec.Annotate("has_secrets", domain.HasCategory(rec.Findings, domain.CategorySecret))
	return domain.Keep(), nil
}

// excerpt bounds a match to MaxExcerpt bytes. Secret values keep only a
// short prefix.
func excerpt(match string, redact bool) string {
	if redact {
		keep := 4
		if len(match) < keep {
			keep = len(match)
		}
		return match[:keep] + strings.Repeat("*", 8)
	}
	if len(match) <= MaxExcerpt {
		return match
	}
	n := MaxExcerpt
	for n > 0 && !utf8.RuneStart(match[n]) {
		n--
	}
	return match[:n]
}
