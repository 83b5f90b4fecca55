package domain

// FindingKind identifies what a sanitization pattern matched.
type FindingKind string

const (
	FindingEmail       FindingKind = "email"
	FindingPrivateKey  FindingKind = "private_key"
	FindingAWSKey      FindingKind = "aws_access_key"
	FindingGitHubToken FindingKind = "github_token"
)

// FindingCategory groups finding kinds.
type FindingCategory string

const (
	CategoryPII    FindingCategory = "pii"
	CategorySecret FindingCategory = "secret"
)

// Category returns the category of the kind.
func (k FindingKind) Category() FindingCategory {
	if k == FindingEmail {
		return CategoryPII
	}
	return CategorySecret
}

// Finding is one sanitization match. Start and End are byte offsets into
// the record content; Excerpt is a bounded, possibly redacted, copy.
type Finding struct {
	Kind    FindingKind `json:"kind"`
	Start   int         `json:"start"`
	End     int         `json:"end"`
	Excerpt string      `json:"excerpt"`
}

// HasCategory reports whether any finding belongs to category.
func HasCategory(findings []Finding, category FindingCategory) bool {
	for _, f := range findings {
		if f.Kind.Category() == category {
			return true
		}
	}
	return false
}
