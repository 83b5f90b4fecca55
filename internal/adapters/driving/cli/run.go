package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl and then process in one go",
	Long: `Runs a crawl into the intermediate store followed by a processing pass
over it. Processing is skipped if the crawl fails or is interrupted.

--deadline bounds the crawl only; processing always runs to completion
unless interrupted.`,
	RunE: runAll,
}

func init() {
	addCrawlFlags(runCmd, "raw-output")
	addProcessFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runAll(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if err := applyCrawlFlags(cmd, &s, "raw-output"); err != nil {
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

	crawlCtx, cancelCrawl := ctx, context.CancelFunc(func() {})
	if crawlDeadline > 0 {
		crawlCtx, cancelCrawl = context.WithTimeout(ctx, crawlDeadline)
	}
	crawled, err := crawl(crawlCtx, s, crawlAppend, history)
	cancelCrawl()
	if crawled != nil {
		cmd.Println(renderCrawlSummary(crawled))
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	if crawled.Interrupted {
		cmd.Println("Skipping processing after an interrupted crawl.")
		return nil
	}

	processed, err := process(ctx, s, history)
	if processed != nil {
		cmd.Println(renderProcessSummary(processed))
	}
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}
	cmd.Printf("Dataset written to %s\n", s.FinalOutput)
	return nil
}
