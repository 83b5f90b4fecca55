package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

func rules() domain.FileRules {
	return domain.FileRules{
		Extensions:    []string{".py"},
		ExcludedPaths: []string{"node_modules", "*_test_data.py"},
		MaxSize:       200,
		MinLines:      3,
	}
}

func record(path, content string) *domain.ProcessedRecord {
	rec := domain.NewProcessedRecord(domain.RawRecord{
		RepoURL: "https://github.com/o/r",
		Path:    path,
		Size:    int64(len(content)),
		Content: content,
	})
	return &rec
}

func TestFilter_Process(t *testing.T) {
	f := New(rules())
	threeLines := "a = 1\nb = 2\nc = 3\n"

	tests := []struct {
		name   string
		rec    *domain.ProcessedRecord
		keep   bool
		reason string
	}{
		{"accepted", record("pkg/mod.py", threeLines), true, ""},
		{"exactly max size", record("mod.py", threeLines+strings.Repeat("#", 200-len(threeLines))), true, ""},
		{"too large", record("mod.py", threeLines+strings.Repeat("#", 201-len(threeLines))), false, domain.RuleSize},
		{"too few lines", record("mod.py", "a = 1\nb = 2\n"), false, domain.RuleLines},
		{"excluded directory", record("node_modules/x/mod.py", threeLines), false, domain.RulePath},
		{"excluded glob", record("fixtures/big_test_data.py", threeLines), false, domain.RulePath},
		{"wrong extension", record("mod.rb", threeLines), false, domain.RuleExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := f.Process(context.Background(), tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.keep, v.Keep)
			if !tt.keep {
				assert.Equal(t, domain.DropFiltered, v.Reason)
				assert.Equal(t, tt.reason, v.Detail)
			}
		})
	}
}

func TestFilter_SizeFallsBackToContentLength(t *testing.T) {
	f := New(rules())
	rec := record("mod.py", strings.Repeat("x\n", 150))
	rec.Size = 0

	assert.Equal(t, domain.RuleSize, f.Check(rec))
}

func TestFilter_Name(t *testing.T) {
	assert.Equal(t, "filter", New(rules()).Name())
}
