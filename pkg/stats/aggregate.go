// Package stats turns gathered changes into per-project time-bucketed
// metric rows: change activity counts, CI run outcomes and durations,
// promotion outcomes, and merge lifespans.
package stats

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/HewlettPackard/zing-stats/pkg/changes"
	"github.com/HewlettPackard/zing-stats/pkg/ciparse"
	"github.com/HewlettPackard/zing-stats/pkg/observability"
)

// CI status tokens accepted after normalization. Anything else is an
// open-world token: warned about and skipped, never counted.
var (
	successStatuses = []string{"succeeded", "successful", "ok"}
	failureStatuses = []string{"failed"}
)

// Row is the metric accumulator for one event timestamp. Counts are
// incremented; Revisions and LifespanSec are assigned once per merged change.
type Row struct {
	Created int `json:"created" yaml:"created"`
	Updated int `json:"updated" yaml:"updated"`
	Merged  int `json:"merged" yaml:"merged"`

	Revisions   int     `json:"revisions" yaml:"revisions"`
	LifespanSec float64 `json:"lifespan_sec" yaml:"lifespan_sec"`

	Recheck  int `json:"recheck" yaml:"recheck"`
	Reverify int `json:"reverify" yaml:"reverify"`

	CISuccess        int `json:"ci_success" yaml:"ci_success"`
	CIFailure        int `json:"ci_failure" yaml:"ci_failure"`
	CITotalTimeSec   int `json:"ci_total_time_sec" yaml:"ci_total_time_sec"`
	CILongestTimeSec int `json:"ci_longest_time_sec" yaml:"ci_longest_time_sec"`

	PromotionSuccess int `json:"promotion_success" yaml:"promotion_success"`
	PromotionFailure int `json:"promotion_failure" yaml:"promotion_failure"`
}

// Series maps event timestamps to their accumulated metric rows.
// Keys are the originating events' own timestamps; rounding into chart
// buckets happens in the separate resampling step.
type Series map[time.Time]*Row

func (s Series) row(ts time.Time) *Row {
	r, found := s[ts]
	if !found {
		r = &Row{}
		s[ts] = r
	}

	return r
}

// Aggregator folds a gathered change set into per-project series.
type Aggregator struct {
	logger  *slog.Logger
	metrics *observability.GatherMetrics
}

// NewAggregator creates an aggregator. logger may be nil; metrics may be nil
// to disable instrumentation.
func NewAggregator(logger *slog.Logger, metrics *observability.GatherMetrics) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Aggregator{logger: logger, metrics: metrics}
}

// Aggregate builds one Series per project from the set. The set's source
// kind selects the CI-run grammar. A malformed job line in any comment is
// fatal and aborts the aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, set *changes.Set, cutoff time.Time) (map[string]Series, error) {
	grammar := ciparse.GrammarBuildReport
	if set.Kind == changes.SourceGerrit {
		grammar = ciparse.GrammarAcknowledgement
	}

	result := make(map[string]Series)

	for project, projectChanges := range set.ByProject() {
		series := make(Series)

		for _, change := range projectChanges {
			a.recordActivity(series, change, cutoff)

			err := a.recordCIRuns(ctx, series, set, change, grammar, cutoff)
			if err != nil {
				return nil, err
			}
		}

		result[project] = series
	}

	return result, nil
}

// recordActivity accumulates the change lifecycle metrics: created, updated,
// and, for merged changes, merged count, revision count, lifespan, and
// recheck/reverify requests.
func (a *Aggregator) recordActivity(series Series, change *changes.Change, cutoff time.Time) {
	if !change.CreatedAt.Before(cutoff) {
		series.row(change.CreatedAt).Created++
	}

	if !change.UpdatedAt.Before(cutoff) {
		series.row(change.UpdatedAt).Updated++
	}

	if !change.Merged() || change.MergedAt.Before(cutoff) {
		return
	}

	mergedRow := series.row(*change.MergedAt)
	mergedRow.Merged++
	mergedRow.Revisions = change.RevisionCount()
	mergedRow.LifespanSec = change.MergedAt.Sub(change.CreatedAt).Seconds()

	for _, rev := range change.Revisions {
		for _, msg := range rev.Messages {
			body := strings.ToLower(msg.Body)

			switch {
			case strings.Contains(body, "recheck"):
				mergedRow.Recheck++
			case strings.Contains(body, "reverify"):
				mergedRow.Reverify++
			}
		}
	}
}

// recordCIRuns parses every message for promotion outcomes and CI runs.
// Run outcomes key at the change's update time; job durations key at the
// merge time of merged changes.
func (a *Aggregator) recordCIRuns(
	ctx context.Context,
	series Series,
	set *changes.Set,
	change *changes.Change,
	grammar ciparse.Grammar,
	cutoff time.Time,
) error {
	for _, rev := range change.Revisions {
		for _, msg := range rev.Messages {
			if ciparse.ParsePromotionSuccess(msg.Body) && msg.PostedAt.After(cutoff) {
				a.logger.Debug("promotion succeeded",
					"project", change.Project, "change", change.Number, "at", msg.PostedAt)
				series.row(msg.PostedAt).PromotionSuccess++
			}

			if ciparse.ParsePromotionFailure(msg.Body) && msg.PostedAt.After(cutoff) {
				a.logger.Debug("promotion failed",
					"project", change.Project, "change", change.Number, "at", msg.PostedAt)
				series.row(msg.PostedAt).PromotionFailure++
			}

			run, err := ciparse.ParseRun(msg.Body, grammar)
			if err != nil {
				a.metrics.RecordParseFailure(ctx, string(set.Kind))

				return fmt.Errorf("change %s message %s: %w", change.LongID, msg.ID, err)
			}

			if run == nil {
				continue
			}

			if msg.PostedAt.Before(cutoff) {
				a.logger.Debug("discarding CI run older than cutoff",
					"change", change.LongID, "revision", rev.Number, "posted", msg.PostedAt)

				continue
			}

			a.recordRun(series, change, run)
		}
	}

	return nil
}

func (a *Aggregator) recordRun(series Series, change *changes.Change, run *ciparse.Run) {
	switch classifyStatus(run.Status) {
	case statusSuccess:
		series.row(change.UpdatedAt).CISuccess++
	case statusFailure:
		series.row(change.UpdatedAt).CIFailure++
	default:
		a.logger.Warn("unexpected CI status, skipping run",
			"status", run.Status, "run", run.Number, "change", change.LongID)

		return
	}

	if !change.Merged() {
		return
	}

	mergedRow := series.row(*change.MergedAt)

	for _, job := range run.Jobs {
		mergedRow.CITotalTimeSec += job.DurationSec

		// The maximum can collapse across changes merging at the identical
		// timestamp; accepted as an approximation.
		if job.DurationSec > mergedRow.CILongestTimeSec {
			mergedRow.CILongestTimeSec = job.DurationSec
		}
	}
}

type statusClass int

const (
	statusUnknown statusClass = iota
	statusSuccess
	statusFailure
)

// classifyStatus lowercases the token, strips every character outside
// [a-z0-9_], and checks the accepted status sets.
func classifyStatus(status string) statusClass {
	normalized := normalizeStatus(status)

	for _, s := range successStatuses {
		if normalized == s {
			return statusSuccess
		}
	}

	for _, s := range failureStatuses {
		if normalized == s {
			return statusFailure
		}
	}

	return statusUnknown
}

func normalizeStatus(status string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(status) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}

	return b.String()
}
