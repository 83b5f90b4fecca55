package driven

import (
	"context"
	"fmt"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// RecordStage processes one record. Stages are chained in a fixed order;
// each may annotate the record and returns a verdict deciding whether it
// continues down the chain.
type RecordStage interface {
	// Name returns the stage name for logging and configuration.
	Name() string

	// Process inspects and may modify rec.
	Process(ctx context.Context, rec *domain.ProcessedRecord) (domain.Verdict, error)
}

// OrderSensitive is implemented by stages whose result depends on the
// order records arrive in, such as deduplication. Such stages, and every
// stage after them, must see records in read order.
type OrderSensitive interface {
	OrderSensitive() bool
}

// RecordPipeline chains multiple RecordStages.
type RecordPipeline interface {
	// Process runs the record through all stages in order, stopping at the
	// first stage that drops it. stage names the stage that decided.
	Process(ctx context.Context, rec *domain.ProcessedRecord) (v domain.Verdict, stage string, err error)

	// Stages returns the stages in execution order.
	Stages() []RecordStage

	// Split divides the stages at the first OrderSensitive stage. The
	// parallel prefix may run on many records at once; the ordered rest
	// must see records in read order.
	Split() (parallel, ordered []RecordStage)
}

// RunStages runs rec through stages, returning the verdict and the name of
// the stage that produced it. A record that passes every stage is kept and
// the stage name is empty.
func RunStages(ctx context.Context, stages []RecordStage, rec *domain.ProcessedRecord) (domain.Verdict, string, error) {
	for _, stage := range stages {
		v, err := stage.Process(ctx, rec)
		if err != nil {
			return domain.Verdict{}, stage.Name(), fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		if !v.Keep {
			return v, stage.Name(), nil
		}
	}
	return domain.Keep(), "", nil
}
