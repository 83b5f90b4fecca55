package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driving"
	"github.com/custodia-labs/codeharvest/internal/logger"
)

// Ensure Processor implements the interface.
var _ driving.Processor = (*Processor)(nil)

// DefaultProgressEvery is how often, in records, progress is logged.
const DefaultProgressEvery = 1000

// ProcessorConfig tunes a process run.
type ProcessorConfig struct {
	// Workers is the number of records run through the order-independent
	// stages at once. One or less processes strictly sequentially.
	Workers int

	// ProgressEvery logs progress after this many records. Zero means
	// DefaultProgressEvery.
	ProgressEvery int64
}

// Processor streams the intermediate store through the record pipeline
// into the final artifact.
type Processor struct {
	pipeline driven.RecordPipeline
	scored   driven.ProcessedRecordWriter
	cfg      ProcessorConfig
	now      func() time.Time
	log      *zerolog.Logger
}

// NewProcessor creates a processor around pipeline.
func NewProcessor(pipeline driven.RecordPipeline, cfg ProcessorConfig) *Processor {
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	return &Processor{
		pipeline: pipeline,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.Named("processor"),
	}
}

// WithScoredOutput also appends every kept record to w. The caller owns w.
func (p *Processor) WithScoredOutput(w driven.ProcessedRecordWriter) *Processor {
	p.scored = w
	return p
}

// Process consumes in to exhaustion and commits out. Records leave in the
// order they were read regardless of Workers. Stage failures skip the
// record; a read, write or commit failure, or cancellation, aborts out and
// is returned.
func (p *Processor) Process(ctx context.Context, in driven.RawRecordReader, out driven.RecordSink) (*domain.ProcessSummary, error) {
	summary := &domain.ProcessSummary{StartedAt: p.now()}
	parallel, ordered := p.pipeline.Split()

	p.log.Info().
		Int("workers", p.cfg.Workers).
		Int("parallel_stages", len(parallel)).
		Int("ordered_stages", len(ordered)).
		Msg("processing started")

	var err error
	if p.cfg.Workers <= 1 || len(parallel) == 0 {
		err = p.runSequential(ctx, in, out, summary)
	} else {
		err = p.runParallel(ctx, in, out, summary, parallel, ordered)
	}

	stats := in.Stats()
	summary.Read = stats.Records
	summary.Malformed = stats.Malformed
	summary.TruncatedTail = stats.TruncatedTail

	if err != nil {
		summary.FinishedAt = p.now()
		if aerr := out.Abort(); aerr != nil {
			p.log.Warn().Err(aerr).Msg("failed to discard partial artifact")
		}
		p.log.Error().Err(err).Int64("read", summary.Read).Msg("processing aborted")
		return summary, err
	}

	if err := out.Commit(); err != nil {
		summary.FinishedAt = p.now()
		return summary, fmt.Errorf("commit artifact: %w", err)
	}
	summary.FinishedAt = p.now()

	if summary.TruncatedTail {
		p.log.Warn().Msg("intermediate store ended with a partial record; it was ignored")
	}
	p.log.Info().
		Int64("read", summary.Read).
		Int64("filtered", summary.Filtered).
		Int64("duplicates", summary.Duplicates).
		Int64("scored", summary.Scored).
		Int64("written", summary.Written).
		Int64("flagged", summary.Flagged).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("processing finished")
	return summary, nil
}

func (p *Processor) runSequential(ctx context.Context, in driven.RawRecordReader, out driven.RecordSink, summary *domain.ProcessSummary) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := in.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}

		rec := domain.NewProcessedRecord(raw)
		v, stage, serr := p.pipeline.Process(ctx, &rec)
		if err := p.settle(ctx, &rec, v, stage, serr, out, summary); err != nil {
			return err
		}
	}
}

type job struct {
	seq int64
	rec domain.ProcessedRecord
}

type result struct {
	job
	verdict domain.Verdict
	stage   string
	err     error
}

// runParallel fans records out to workers for the parallel stages and
// reassembles them in read order before the ordered stages and the sink.
func (p *Processor) runParallel(
	ctx context.Context,
	in driven.RawRecordReader,
	out driven.RecordSink,
	summary *domain.ProcessSummary,
	parallel, ordered []driven.RecordStage,
) error {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, p.cfg.Workers)
	results := make(chan result, p.cfg.Workers)

	g.Go(func() error {
		defer close(jobs)
		for seq := int64(0); ; seq++ {
			raw, err := in.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read record: %w", err)
			}
			select {
			case jobs <- job{seq: seq, rec: domain.NewProcessedRecord(raw)}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var workers sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for j := range jobs {
				r := result{job: j}
				r.verdict, r.stage, r.err = driven.RunStages(gctx, parallel, &r.rec)
				select {
				case results <- r:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	g.Go(func() error {
		pending := make(map[int64]result)
		var next int64
		for r := range results {
			pending[r.seq] = r
			for {
				cur, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++

				if err := gctx.Err(); err != nil {
					return err
				}
				if cur.err == nil && cur.verdict.Keep {
					cur.verdict, cur.stage, cur.err = driven.RunStages(gctx, ordered, &cur.rec)
				}
				if err := p.settle(gctx, &cur.rec, cur.verdict, cur.stage, cur.err, out, summary); err != nil {
					return err
				}
			}
		}
		return nil
	})

	return g.Wait()
}

// settle accounts for one record's outcome and writes it when kept.
func (p *Processor) settle(
	ctx context.Context,
	rec *domain.ProcessedRecord,
	v domain.Verdict,
	stage string,
	stageErr error,
	out driven.RecordSink,
	summary *domain.ProcessSummary,
) error {
	defer p.progress(summary)

	if stageErr != nil {
		summary.StageErrors++
		p.log.Warn().Err(stageErr).
			Str("repo", rec.RepoURL).
			Str("path", rec.Path).
			Str("stage", stage).
			Msg("record skipped after stage failure")
		return nil
	}
	if !v.Keep {
		if v.Reason == domain.DropDuplicate {
			summary.Duplicates++
		} else {
			summary.Filtered++
		}
		p.log.Debug().
			Str("path", rec.Path).
			Str("stage", stage).
			Str("reason", string(v.Reason)).
			Str("detail", v.Detail).
			Msg("record dropped")
		return nil
	}
	summary.Scored++

	if p.scored != nil {
		if err := p.scored.Append(ctx, *rec); err != nil {
			return fmt.Errorf("write scored record: %w", err)
		}
	}
	if err := out.Write(ctx, *rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	summary.Written++
	if len(rec.Findings) > 0 {
		summary.Flagged++
	}
	return nil
}

func (p *Processor) progress(summary *domain.ProcessSummary) {
	done := summary.Written + summary.Filtered + summary.Duplicates + summary.StageErrors
	if done > 0 && done%p.cfg.ProgressEvery == 0 {
		p.log.Info().Int64("records", done).Int64("written", summary.Written).Msg("processing progress")
	}
}
