package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"single line", "x = 1", 1},
		{"trailing newline", "a\nb\n", 2},
		{"no trailing newline", "a\nb", 2},
		{"blank lines", "\n\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountLines(tt.content))
		})
	}
}

func TestContentHash(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		ContentHash(""))
	assert.Equal(t, ContentHash("print(1)"), ContentHash("print(1)"))
	assert.NotEqual(t, ContentHash("print(1)"), ContentHash("print(2)"))
}

func TestNewProcessedRecord(t *testing.T) {
	raw := RawRecord{
		RepoURL:   "https://github.com/o/r",
		Path:      "a.py",
		Size:      8,
		License:   "MIT",
		Content:   "a\nb\nc\n",
		FetchedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	rec := NewProcessedRecord(raw)

	assert.Equal(t, raw, rec.RawRecord)
	assert.Equal(t, 3, rec.LineCount)
	assert.Equal(t, ContentHash(raw.Content), rec.ContentHash)
	assert.NotNil(t, rec.Annotations)
}

func TestProcessedRecord_Annotate(t *testing.T) {
	var rec ProcessedRecord
	rec.Annotate("code_density", 0.5)
	assert.Equal(t, 0.5, rec.Annotations["code_density"])
}

func TestVerdicts(t *testing.T) {
	assert.True(t, Keep().Keep)

	v := Drop(DropDuplicate, "seen")
	assert.False(t, v.Keep)
	assert.Equal(t, DropDuplicate, v.Reason)
}

func TestFindingCategories(t *testing.T) {
	assert.Equal(t, CategoryPII, FindingEmail.Category())
	assert.Equal(t, CategorySecret, FindingPrivateKey.Category())
	assert.Equal(t, CategorySecret, FindingGitHubToken.Category())

	findings := []Finding{{Kind: FindingEmail}}
	assert.True(t, HasCategory(findings, CategoryPII))
	assert.False(t, HasCategory(findings, CategorySecret))
}
