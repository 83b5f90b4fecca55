package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeharvest/internal/adapters/driven/storage/columnar"
	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

var inspectLimit int

var inspectCmd = &cobra.Command{
	Use:   "inspect [dataset]",
	Short: "Summarise a Parquet dataset",
	Long: `Reads a dataset written by process and prints its record count, flagged
records, mean quality score and a sample of its rows. Without an argument the
configured final_output is inspected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVarP(&inspectLimit, "limit", "n", 10, "number of rows to show")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		path = s.FinalOutput
	}

	records, err := columnar.ReadRecords(path)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	stats := datasetStats(records)
	cmd.Println(titleStyle.Render(path))
	cmd.Printf("Records: %d\n", stats.records)
	cmd.Printf("Repositories: %d\n", stats.repos)
	cmd.Printf("Flagged: %d\n", stats.flagged)
	cmd.Printf("Mean quality score: %.3f\n", stats.meanScore)
	if len(records) == 0 || inspectLimit <= 0 {
		return nil
	}

	n := min(inspectLimit, len(records))
	rows := make([][]string, 0, n)
	for _, r := range records[:n] {
		rows = append(rows, []string{
			r.RepoURL,
			r.Path,
			strconv.Itoa(r.LineCount),
			strconv.FormatFloat(r.QualityScore, 'f', 3, 64),
			strconv.Itoa(len(r.Findings)),
		})
	}
	cmd.Println(renderTable([]string{"repository", "path", "lines", "score", "findings"}, rows, 2, 3, 4))
	return nil
}

type dataset struct {
	records   int
	repos     int
	flagged   int
	meanScore float64
}

func datasetStats(records []domain.ProcessedRecord) dataset {
	d := dataset{records: len(records)}
	repos := make(map[string]struct{})
	var total float64
	for _, r := range records {
		repos[r.RepoURL] = struct{}{}
		if len(r.Findings) > 0 {
			d.flagged++
		}
		total += r.QualityScore
	}
	d.repos = len(repos)
	if d.records > 0 {
		d.meanScore = total / float64(d.records)
	}
	return d
}
