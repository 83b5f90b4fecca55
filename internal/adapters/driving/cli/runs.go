package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent crawl and process runs",
	Long:  `Shows the run ledger, newest first, with each run's status and output count.`,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show (0 for all)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if s.LedgerPath == "" {
		cmd.Println("No ledger configured; set ledger_path to keep run history.")
		return nil
	}

	history, closeLedger, err := openLedger(s)
	if err != nil {
		return err
	}
	defer closeLedger()

	runs, err := history.Recent(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}
	cmd.Println(renderRuns(runs))
	return nil
}
