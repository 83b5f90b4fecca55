package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeharvest/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driving"
	"github.com/custodia-labs/codeharvest/internal/core/services"
)

var (
	crawlMaxRepos    int
	crawlConcurrency int
	crawlDeadline    time.Duration
	crawlAppend      bool
	crawlOutput      string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Download matching source files into the intermediate store",
	Long: `Searches for repositories matching the configured criteria, lists each
accepted repository's files, and appends the files that pass the file rules
to the line-delimited intermediate store.

Interrupting the crawl (Ctrl-C) or reaching --deadline stops it cleanly; the
records already written are kept. Use --append to continue into the same
store instead of replacing it.`,
	RunE: runCrawl,
}

func init() {
	addCrawlFlags(crawlCmd, "output")
	rootCmd.AddCommand(crawlCmd)
}

// addCrawlFlags registers the crawl flags on cmd; storeFlag names the flag
// for the intermediate store path.
func addCrawlFlags(cmd *cobra.Command, storeFlag string) {
	flags := cmd.Flags()
	flags.IntVar(&crawlMaxRepos, "max-repos", 0, "number of repositories to accept (overrides max_repos)")
	flags.IntVar(&crawlConcurrency, "concurrency", 0, "concurrent fetches (overrides concurrency)")
	flags.DurationVar(&crawlDeadline, "deadline", 0, "stop the crawl after this long")
	flags.BoolVar(&crawlAppend, "append", false, "append to the intermediate store instead of replacing it")
	flags.StringVar(&crawlOutput, storeFlag, "", "intermediate store path (overrides raw_output)")
}

// applyCrawlFlags copies explicitly set flags onto s.
func applyCrawlFlags(cmd *cobra.Command, s *domain.Settings, storeFlag string) error {
	flags := cmd.Flags()
	if flags.Changed("max-repos") {
		s.MaxRepos = crawlMaxRepos
	}
	if flags.Changed("concurrency") {
		s.Concurrency = crawlConcurrency
	}
	if flags.Changed(storeFlag) {
		s.RawOutput = crawlOutput
	}
	return services.ValidateSettings(*s)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if err := applyCrawlFlags(cmd, &s, "output"); err != nil {
		return err
	}

	history, closeLedger, err := openLedger(s)
	if err != nil {
		return err
	}
	defer closeLedger()

	ctx, cancel := signalContext(cmd.Context(), crawlDeadline)
	defer cancel()

	summary, err := crawl(ctx, s, crawlAppend, history)
	if summary != nil {
		cmd.Println(renderCrawlSummary(summary))
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	cmd.Printf("Raw records written to %s\n", s.RawOutput)
	return nil
}

// crawl runs one crawl into s.RawOutput and records it in history.
func crawl(ctx context.Context, s domain.Settings, appendMode bool, history driving.RunHistory) (*domain.CrawlSummary, error) {
	started := time.Now()
	summary, err := crawlInto(ctx, s, appendMode)

	var counts []domain.Count
	interrupted := false
	if summary != nil {
		counts = summary.Counts()
		interrupted = summary.Interrupted
	}
	if _, rerr := history.Record(ctx, domain.PhaseCrawl, started, counts, interrupted, err); rerr != nil {
		cliLog.Warn().Err(rerr).Msg("failed to record crawl run")
	}
	return summary, err
}

func crawlInto(ctx context.Context, s domain.Settings, appendMode bool) (*domain.CrawlSummary, error) {
	mode := jsonl.Truncate
	if appendMode {
		mode = jsonl.Append
	}
	w, err := jsonl.NewWriter[domain.RawRecord](s.RawOutput, mode)
	if err != nil {
		return nil, err
	}

	crawler := services.NewCrawler(newFetchClient(s), w, services.CrawlerConfigFromSettings(s))
	summary, err := crawler.Crawl(ctx, s.Criteria())
	if cerr := w.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", s.RawOutput, cerr)
	}
	return summary, err
}
