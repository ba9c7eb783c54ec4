package report

import (
	"time"

	"github.com/HewlettPackard/zing-stats/pkg/report/plotpage"
	"github.com/HewlettPackard/zing-stats/pkg/stats"
)

const (
	hourlyLabelLayout = "2006-01-02 15:04"
	dailyLabelLayout  = "2006-01-02"

	stackedAreaOpacity = 0.5
)

// buildSections renders the four standard charts for one team's frame.
func (p *Projector) buildSections(frame *stats.Frame, theme plotpage.Theme) []plotpage.Section {
	cOpts := plotpage.NewChartOpts(theme)
	palette := plotpage.GetChartPalette(theme)
	labels := bucketLabels(frame)

	var (
		created, merged, updated     []plotpage.SeriesData
		ciTotalMin, ciLongestMin     []plotpage.SeriesData
		pctSuccessStack, pctFailStack []plotpage.SeriesData
	)

	for _, bucket := range frame.Buckets {
		created = append(created, bucket.Row.Created)
		merged = append(merged, bucket.Row.Merged)
		updated = append(updated, bucket.Row.Updated)
		ciTotalMin = append(ciTotalMin, bucket.CITotalTimeMin)
		ciLongestMin = append(ciLongestMin, bucket.CILongestTimeMin)
		pctSuccessStack = append(pctSuccessStack, bucket.PctSuccess)
		pctFailStack = append(pctFailStack, bucket.PctFailure)
	}

	changesChart := plotpage.BuildLineChart(cOpts, labels, []plotpage.LineSeries{
		{Name: "Created", Data: created, Color: palette.Created},
		{Name: "Merged", Data: merged, Color: palette.Merged},
		{Name: "Updated", Data: updated, Color: palette.Updated},
	}, "Changes")

	// Capacity scales from daily hours to the bucket window.
	capacityMin := float64(p.opts.SystemCapacityDailyCIHours) * 60 *
		frame.Window.Hours() / 24

	capacityChart := plotpage.BuildBarChart(cOpts, labels, []plotpage.BarSeries{
		{Name: "Total CI time", Data: ciTotalMin, Color: palette.CITime},
	}, "CI time (min)", plotpage.MarkLine{
		Label: "CI capacity",
		Value: capacityMin,
		Color: palette.Capacity,
	})

	longestChart := plotpage.BuildLineChart(cOpts, labels, []plotpage.LineSeries{
		{Name: "Longest CI job", Data: ciLongestMin, Color: palette.LongestJob},
	}, "Duration (min)", plotpage.MarkLine{
		Label: "Recommended maximum",
		Value: float64(p.opts.CIJobRecommendedMaxMinutes),
		Color: palette.RecommendedMax,
	})

	statusChart := plotpage.BuildLineChart(cOpts, labels, []plotpage.LineSeries{
		{Name: "Success", Data: pctSuccessStack, Color: palette.Success, Stack: "pct", AreaOpacity: stackedAreaOpacity},
		{Name: "Failure", Data: pctFailStack, Color: palette.Failure, Stack: "pct", AreaOpacity: stackedAreaOpacity},
	}, "% of runs")

	return []plotpage.Section{
		{Title: "Changes / pull requests", Chart: changesChart},
		{Title: "CI system capacity", Chart: capacityChart},
		{Title: "CI longest job duration", Chart: longestChart},
		{Title: "CI success / failure rates", Chart: statusChart},
	}
}

func bucketLabels(frame *stats.Frame) []string {
	layout := dailyLabelLayout
	if frame.Window < 24*time.Hour {
		layout = hourlyLabelLayout
	}

	labels := make([]string, 0, len(frame.Buckets))

	for _, bucket := range frame.Buckets {
		labels = append(labels, bucket.Start.Format(layout))
	}

	return labels
}
