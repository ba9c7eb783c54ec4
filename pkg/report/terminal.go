package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Success-rate coloring thresholds for the terminal summary.
const (
	successGoodPct = 90
	successWarnPct = 75
)

// PrintSummary writes the per-project totals table to w, with the CI
// success rate colored by health, followed by gather metadata lines.
func PrintSummary(w io.Writer, rows []SummaryRow, notFound []string, generated time.Time) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)

	header := make(table.Row, len(summaryHeaders))
	for i, h := range summaryHeaders {
		header[i] = h
	}

	tbl.AppendHeader(header)

	for _, row := range rows {
		cells := summaryCells(row)

		tableRow := make(table.Row, len(cells))
		for i, cell := range cells {
			tableRow[i] = cell
		}

		tableRow[6] = colorizePct(row.SuccessPct, row.CIRuns)

		tbl.AppendRow(tableRow)
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d projects", len(rows))})
	tbl.Render()

	fmt.Fprintf(w, "Generated %s\n", humanize.Time(generated))

	if len(notFound) > 0 {
		color.New(color.FgYellow).Fprintf(w, "Projects not found: %d\n", len(notFound))
	}
}

func colorizePct(pct float64, runs int) string {
	formatted := fmt.Sprintf("%.1f", pct)

	if runs == 0 {
		return formatted
	}

	switch {
	case pct >= successGoodPct:
		return color.GreenString(formatted)
	case pct >= successWarnPct:
		return color.YellowString(formatted)
	default:
		return color.RedString(formatted)
	}
}
