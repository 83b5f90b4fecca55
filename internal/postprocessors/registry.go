package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// BuilderFunc creates a RecordStage from the run settings.
type BuilderFunc func(s domain.Settings) (driven.RecordStage, error)

// Registry maps stage names to their builders.
// It allows pipelines to be assembled by name.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new stage registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a stage builder to the registry.
// Name should be unique and match the stage's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a stage by name with the given settings.
// Returns error if the stage name is not registered.
func (r *Registry) Build(name string, s domain.Settings) (driven.RecordStage, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown stage: %s", name)
	}
	return builder(s)
}

// BuildPipeline builds the named stages, in order, into a pipeline.
func (r *Registry) BuildPipeline(s domain.Settings, names ...string) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range names {
		stage, err := r.Build(name, s)
		if err != nil {
			return nil, err
		}
		p.Add(stage)
	}
	return p, nil
}

// Has returns true if a stage with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered stage names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
