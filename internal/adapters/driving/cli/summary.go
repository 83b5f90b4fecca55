package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
)

// renderTable draws rows under headers. Columns listed in numeric are
// right-aligned.
func renderTable(headers []string, rows [][]string, numeric ...int) string {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numberStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func renderCounts(title string, counts []domain.Count, elapsed time.Duration) string {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Name, strconv.FormatInt(c.Value, 10)})
	}
	heading := titleStyle.Render(title)
	if elapsed > 0 {
		heading += fmt.Sprintf(" (%s)", elapsed.Round(time.Millisecond))
	}
	return heading + "\n" + renderTable([]string{"counter", "value"}, rows, 1)
}

func renderCrawlSummary(s *domain.CrawlSummary) string {
	out := renderCounts("Crawl summary", s.Counts(), s.FinishedAt.Sub(s.StartedAt))
	if s.Interrupted {
		out += "\n" + warnStyle.Render("Crawl interrupted; rerun with --append to add to the existing store.")
	}
	return out
}

func renderProcessSummary(s *domain.ProcessSummary) string {
	out := renderCounts("Process summary", s.Counts(), s.FinishedAt.Sub(s.StartedAt))
	if s.TruncatedTail {
		out += "\n" + warnStyle.Render("The intermediate store ends with a partial record; it was skipped.")
	}
	return out
}

func renderRuns(runs []domain.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		written := r.Counts["records_written"]
		if r.Phase == domain.PhaseProcess {
			written = r.Counts["written"]
		}
		rows = append(rows, []string{
			shortID(r.ID),
			string(r.Phase),
			string(r.Status),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Millisecond).String(),
			strconv.FormatInt(written, 10),
			r.Error,
		})
	}
	return renderTable([]string{"id", "phase", "status", "started", "duration", "written", "error"}, rows, 5)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
