// Package postprocessors provides the record processing stages and the
// pipeline that chains them.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.RecordPipeline = (*Pipeline)(nil)

// Pipeline chains multiple RecordStages and runs them in order.
// It implements the RecordPipeline interface.
type Pipeline struct {
	stages []driven.RecordStage
}

// NewPipeline creates a new processing pipeline with the given stages.
// Stages are executed in the order provided.
func NewPipeline(stages ...driven.RecordStage) *Pipeline {
	return &Pipeline{
		stages: stages,
	}
}

// Process runs the record through all stages in order, stopping at the
// first stage that drops it.
func (p *Pipeline) Process(ctx context.Context, rec *domain.ProcessedRecord) (domain.Verdict, string, error) {
	if rec == nil {
		return domain.Verdict{}, "", fmt.Errorf("record is nil")
	}
	return driven.RunStages(ctx, p.stages, rec)
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []driven.RecordStage {
	return p.stages
}

// Add appends a stage to the pipeline.
func (p *Pipeline) Add(stage driven.RecordStage) {
	p.stages = append(p.stages, stage)
}

// Len returns the number of stages in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Split divides the stages into an order-independent prefix, which may run
// concurrently across records, and the remainder, which must see records
// in read order. The remainder starts at the first OrderSensitive stage.
func (p *Pipeline) Split() (parallel, ordered []driven.RecordStage) {
	return SplitStages(p.stages)
}

// SplitStages is Split for a bare stage list.
func SplitStages(stages []driven.RecordStage) (parallel, ordered []driven.RecordStage) {
	for i, s := range stages {
		if o, ok := s.(driven.OrderSensitive); ok && o.OrderSensitive() {
			return stages[:i], stages[i:]
		}
	}
	return stages, nil
}
