package domain

import (
	"path"
	"strings"
)

// FileRules decide which repository files are worth keeping.
// The crawler applies them before fetching a blob and the record filter
// applies them again to the fetched content.
type FileRules struct {
	// Extensions lists accepted file suffixes such as ".py".
	Extensions []string

	// ExcludedPaths holds directory names (matched against any path segment)
	// and glob patterns (matched against the full path and each segment).
	ExcludedPaths []string

	// MaxSize is the largest accepted file size in bytes.
	MaxSize int64

	// MinLines is the smallest accepted line count.
	MinLines int
}

// Rule names reported when a file is rejected.
const (
	RuleExtension = "extension"
	RulePath      = "path"
	RuleSize      = "size"
	RuleLines     = "lines"
)

// MatchesExtension reports whether p ends with an accepted extension.
func (r FileRules) MatchesExtension(p string) bool {
	lower := strings.ToLower(p)
	for _, ext := range r.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether p falls under an excluded directory or glob.
func (r FileRules) IsExcluded(p string) bool {
	lower := strings.ToLower(p)
	segments := strings.Split(lower, "/")
	dirs := segments[:len(segments)-1]
	for _, pattern := range r.ExcludedPaths {
		pattern = strings.ToLower(strings.Trim(pattern, "/"))
		if pattern == "" {
			continue
		}
		if !strings.ContainsAny(pattern, "*?[") {
			if strings.Contains(pattern, "/") {
				if lower == pattern || strings.HasPrefix(lower, pattern+"/") ||
					strings.Contains(lower, "/"+pattern+"/") {
					return true
				}
				continue
			}
			for _, d := range dirs {
				if d == pattern {
					return true
				}
			}
			continue
		}
		if ok, _ := path.Match(pattern, lower); ok {
			return true
		}
		for _, seg := range segments {
			if ok, _ := path.Match(pattern, seg); ok {
				return true
			}
		}
	}
	return false
}

// CheckBlob applies the rules that are known before a file is fetched.
// It returns the name of the first violated rule, or "" when the blob passes.
func (r FileRules) CheckBlob(p string, size int64) string {
	switch {
	case !r.MatchesExtension(p):
		return RuleExtension
	case r.IsExcluded(p):
		return RulePath
	case size <= 0:
		return RuleSize
	case r.MaxSize > 0 && size > r.MaxSize:
		return RuleSize
	default:
		return ""
	}
}

// CheckRecord applies all rules to fetched content.
func (r FileRules) CheckRecord(p string, size int64, lines int) string {
	switch {
	case r.MaxSize > 0 && size > r.MaxSize:
		return RuleSize
	case lines < r.MinLines:
		return RuleLines
	case r.IsExcluded(p):
		return RulePath
	case !r.MatchesExtension(p):
		return RuleExtension
	default:
		return ""
	}
}
