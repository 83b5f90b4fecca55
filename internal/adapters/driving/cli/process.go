package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeharvest/internal/adapters/driven/storage/columnar"
	"github.com/custodia-labs/codeharvest/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driving"
	"github.com/custodia-labs/codeharvest/internal/core/services"
	"github.com/custodia-labs/codeharvest/internal/postprocessors"
)

var (
	processInput        string
	processOutput       string
	processScoredOutput string
	processWorkers      int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Turn the intermediate store into the Parquet dataset",
	Long: `Reads every record from the intermediate store, runs it through the
filter, sanitizer, deduplication and scoring stages, and writes the survivors
to the Parquet dataset.

The dataset is written to a temporary file and renamed into place only when
processing completes, so an interrupted run leaves any previous dataset
untouched.`,
	RunE: runProcess,
}

func init() {
	addProcessFlags(processCmd)
	processCmd.Flags().StringVar(&processInput, "input", "", "intermediate store path (overrides raw_output)")
	rootCmd.AddCommand(processCmd)
}

func addProcessFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&processOutput, "output", "", "dataset path (overrides final_output)")
	flags.StringVar(&processScoredOutput, "scored-output", "", "also write kept records as JSON lines (overrides scored_output)")
	flags.IntVar(&processWorkers, "workers", 0, "records processed concurrently (overrides process_workers)")
}

// applyProcessFlags copies explicitly set flags onto s.
func applyProcessFlags(cmd *cobra.Command, s *domain.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("input") {
		s.RawOutput = processInput
	}
	if flags.Changed("output") {
		s.FinalOutput = processOutput
	}
	if flags.Changed("scored-output") {
		s.ScoredOutput = processScoredOutput
	}
	if flags.Changed("workers") {
		s.ProcessWorkers = processWorkers
	}
	return services.ValidateSettings(*s)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if err := applyProcessFlags(cmd, &s); err != nil {
		return err
	}

	history, closeLedger, err := openLedger(s)
	if err != nil {
		return err
	}
	defer closeLedger()

	ctx, cancel := signalContext(cmd.Context(), 0)
	defer cancel()

	summary, err := process(ctx, s, history)
	if summary != nil {
		cmd.Println(renderProcessSummary(summary))
	}
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}
	cmd.Printf("Dataset written to %s\n", s.FinalOutput)
	return nil
}

// process runs one processing pass over s.RawOutput and records it in history.
func process(ctx context.Context, s domain.Settings, history driving.RunHistory) (*domain.ProcessSummary, error) {
	started := time.Now()
	summary, err := processInto(ctx, s)

	var counts []domain.Count
	if summary != nil {
		counts = summary.Counts()
	}
	if _, rerr := history.Record(ctx, domain.PhaseProcess, started, counts, ctx.Err() != nil, err); rerr != nil {
		cliLog.Warn().Err(rerr).Msg("failed to record process run")
	}
	return summary, err
}

func processInto(ctx context.Context, s domain.Settings) (*domain.ProcessSummary, error) {
	pipeline, err := postprocessors.NewDefaultPipeline(s)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	reader, err := jsonl.Open[domain.RawRecord](s.RawOutput)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	sink, err := columnar.NewSink(s.FinalOutput)
	if err != nil {
		return nil, err
	}

	proc := services.NewProcessor(pipeline, services.ProcessorConfig{Workers: s.ProcessWorkers})
	if s.ScoredOutput != "" {
		scored, err := jsonl.NewWriter[domain.ProcessedRecord](s.ScoredOutput, jsonl.Truncate)
		if err != nil {
			if aerr := sink.Abort(); aerr != nil {
				cliLog.Warn().Err(aerr).Msg("failed to discard partial dataset")
			}
			return nil, err
		}
		defer func() {
			if cerr := scored.Close(); cerr != nil {
				cliLog.Warn().Err(cerr).Str("path", s.ScoredOutput).Msg("failed to close scored output")
			}
		}()
		proc.WithScoredOutput(scored)
	}

	return proc.Process(ctx, reader, sink)
}
