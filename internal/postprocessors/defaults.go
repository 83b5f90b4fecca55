package postprocessors

import (
	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
	"github.com/custodia-labs/codeharvest/internal/postprocessors/dedup"
	"github.com/custodia-labs/codeharvest/internal/postprocessors/filter"
	"github.com/custodia-labs/codeharvest/internal/postprocessors/sanitizer"
	"github.com/custodia-labs/codeharvest/internal/postprocessors/scorer"
)

// DefaultOrder is the fixed stage order of the processing phase.
var DefaultOrder = []string{filter.Name, sanitizer.Name, dedup.Name, scorer.Name}

// RegisterDefaults registers all built-in stages with the registry.
// Call this during application initialisation to enable standard stages.
func RegisterDefaults(r *Registry) {
	r.Register(filter.Name, buildFilter)
	r.Register(sanitizer.Name, buildSanitizer)
	r.Register(dedup.Name, buildDedup)
	r.Register(scorer.Name, buildScorer)
}

// NewDefaultPipeline builds Filter -> Sanitize -> Dedup -> Score from settings.
func NewDefaultPipeline(s domain.Settings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(s, DefaultOrder...)
}

func buildFilter(s domain.Settings) (driven.RecordStage, error) {
	return filter.New(s.FileRules()), nil
}

func buildSanitizer(s domain.Settings) (driven.RecordStage, error) {
	return sanitizer.New(sanitizer.WithMaxFindings(s.MaxFindings)), nil
}

// buildDedup creates a deduplicator with a fresh seen set, so each
// pipeline owns its own dedup state.
func buildDedup(s domain.Settings) (driven.RecordStage, error) {
	scope := s.DedupScope
	if scope == "" {
		scope = domain.DedupScopeFile
	}
	return dedup.New(scope, dedup.NewSeenSet())
}

func buildScorer(_ domain.Settings) (driven.RecordStage, error) {
	return scorer.New(), nil
}
