// Package filter provides the record filter stage.
package filter

import (
	"context"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// Name is the stage name.
const Name = "filter"

// Filter drops records that violate the file rules: oversized content,
// too few lines, an excluded path, or an unaccepted extension.
// It implements the RecordStage interface.
type Filter struct {
	rules domain.FileRules
}

// New creates a filter stage for the given rules.
func New(rules domain.FileRules) *Filter {
	return &Filter{rules: rules}
}

// Name returns the stage name.
func (f *Filter) Name() string {
	return Name
}

// Check returns the first rule rec violates, or "" when it passes.
func (f *Filter) Check(rec *domain.ProcessedRecord) string {
	size := rec.Size
	if size == 0 {
		size = int64(len(rec.Content))
	}
	return f.rules.CheckRecord(rec.Path, size, rec.LineCount)
}

// Process keeps rec if it satisfies every rule.
func (f *Filter) Process(_ context.Context, rec *domain.ProcessedRecord) (domain.Verdict, error) {
	if rule := f.Check(rec); rule != "" {
		return domain.Drop(domain.DropFiltered, rule), nil
	}
	return domain.Keep(), nil
}
