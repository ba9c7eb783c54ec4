package report

import (
	"fmt"
	"slices"

	"github.com/HewlettPackard/zing-stats/pkg/stats"
)

// SummaryRow is one project's totals over the whole report range.
type SummaryRow struct {
	Project string `json:"project" yaml:"project"`
	System  string `json:"system" yaml:"system"`

	Created int `json:"created" yaml:"created"`
	Merged  int `json:"merged" yaml:"merged"`
	Updated int `json:"updated" yaml:"updated"`

	CIRuns     int     `json:"ci_runs" yaml:"ci_runs"`
	SuccessPct float64 `json:"success_pct" yaml:"success_pct"`

	CITotalMin   float64 `json:"ci_total_min" yaml:"ci_total_min"`
	CILongestMin float64 `json:"ci_longest_min" yaml:"ci_longest_min"`

	PromotionSuccess int `json:"promotion_success" yaml:"promotion_success"`
	PromotionFailure int `json:"promotion_failure" yaml:"promotion_failure"`

	Recheck  int `json:"recheck" yaml:"recheck"`
	Reverify int `json:"reverify" yaml:"reverify"`

	// NotFound flags projects whose PR listing answered 404.
	NotFound bool `json:"not_found,omitempty" yaml:"not_found,omitempty"`
}

// BuildSummary produces one row per named project, in the given order.
// Projects absent from the aggregated data still get a row (zeros), so a
// misconfigured or 404'd project stays visible.
func BuildSummary(
	byProject map[string]stats.Series,
	projectNames []string,
	systems map[string]string,
	notFound []string,
) []SummaryRow {
	rows := make([]SummaryRow, 0, len(projectNames))

	for _, name := range projectNames {
		row := SummaryRow{
			Project:  name,
			System:   systems[name],
			NotFound: slices.Contains(notFound, name),
		}

		if series, found := byProject[name]; found {
			total := stats.Totals(series)

			row.Created = total.Created
			row.Merged = total.Merged
			row.Updated = total.Updated
			row.CIRuns = total.CISuccess + total.CIFailure
			row.CITotalMin = float64(total.CITotalTimeSec) / 60
			row.CILongestMin = float64(total.CILongestTimeSec) / 60
			row.PromotionSuccess = total.PromotionSuccess
			row.PromotionFailure = total.PromotionFailure
			row.Recheck = total.Recheck
			row.Reverify = total.Reverify

			if row.CIRuns > 0 {
				row.SuccessPct = float64(total.CISuccess) / float64(row.CIRuns) * 100
			}
		}

		rows = append(rows, row)
	}

	return rows
}

var summaryHeaders = []string{
	"Project", "System", "Created", "Merged", "Updated",
	"CI runs", "Success %", "CI total (min)", "CI longest (min)",
	"Promo ok", "Promo fail", "Recheck", "Reverify",
}

// summaryCells formats one row for table rendering.
func summaryCells(row SummaryRow) []string {
	project := row.Project
	if row.NotFound {
		project += " (not found)"
	}

	return []string{
		project,
		row.System,
		fmt.Sprintf("%d", row.Created),
		fmt.Sprintf("%d", row.Merged),
		fmt.Sprintf("%d", row.Updated),
		fmt.Sprintf("%d", row.CIRuns),
		fmt.Sprintf("%.1f", row.SuccessPct),
		fmt.Sprintf("%.1f", row.CITotalMin),
		fmt.Sprintf("%.1f", row.CILongestMin),
		fmt.Sprintf("%d", row.PromotionSuccess),
		fmt.Sprintf("%d", row.PromotionFailure),
		fmt.Sprintf("%d", row.Recheck),
		fmt.Sprintf("%d", row.Reverify),
	}
}
