package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/HewlettPackard/zing-stats/pkg/report/plotpage"
	"github.com/HewlettPackard/zing-stats/pkg/stats"
)

const subtitleLayout = "15:04:05 02-Jan-2006"

func (p *Projector) writeHTML(
	dir string,
	team Team,
	teams []Team,
	frame *stats.Frame,
	summary []SummaryRow,
	input *Input,
) (string, error) {
	theme := plotpage.ThemeLight

	page := plotpage.NewPage(
		fmt.Sprintf("%s for last %s", p.opts.Title, RangeLabel(p.opts.RangeHours)),
		fmt.Sprintf("Reporting on changes between %s and %s",
			input.Cutoff.Format(subtitleLayout), input.Now.Format(subtitleLayout)),
	).WithTheme(theme)

	page.Generated = input.Now.Format(subtitleLayout)
	page.IssueLink = p.opts.IssueLink
	page.ContactEmail = p.opts.ContactEmail
	page.Version = p.opts.Version
	page.NotFound = input.NotFound

	for _, t := range teams {
		page.Nav = append(page.Nav, plotpage.NavLink{
			Label:  t.Name,
			Href:   t.FileBase + ".html",
			Active: t.Name == team.Name,
		})
	}

	page.Summary = summaryTable(summary)
	page.Add(p.buildSections(frame, theme)...)

	path := filepath.Join(dir, team.FileBase+".html")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report %s: %w", path, err)
	}

	err = page.Render(f)
	if err != nil {
		f.Close()

		return "", fmt.Errorf("render report %s: %w", path, err)
	}

	err = f.Close()
	if err != nil {
		return "", fmt.Errorf("close report %s: %w", path, err)
	}

	return path, nil
}

func summaryTable(rows []SummaryRow) *plotpage.SummaryTable {
	table := &plotpage.SummaryTable{Headers: summaryHeaders}

	for _, row := range rows {
		table.Rows = append(table.Rows, summaryCells(row))
	}

	return table
}
