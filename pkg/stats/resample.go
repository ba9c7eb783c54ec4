package stats

import (
	"sort"
	"time"
)

// Resample windows.
const (
	WindowHour = time.Hour
	WindowDay  = 24 * time.Hour
)

// WindowFor selects the chart bucket width for a report range: hourly
// buckets up to a day, daily buckets beyond.
func WindowFor(rangeHours int) time.Duration {
	if rangeHours <= 24 {
		return WindowHour
	}

	return WindowDay
}

// Bucket is one resampled chart row: the combined metric row for one window
// plus the derived ratio and unit-converted columns.
type Bucket struct {
	Start time.Time `json:"start" yaml:"start"`

	Row Row `json:"row" yaml:"row"`

	// RevisionsMean averages the revisions column over every event row in
	// the window; Row.Revisions carries the plain sum.
	RevisionsMean float64 `json:"revisions_mean" yaml:"revisions_mean"`

	PctSuccess       float64 `json:"pct_success" yaml:"pct_success"`
	PctFailure       float64 `json:"pct_failure" yaml:"pct_failure"`
	CITotalTimeMin   float64 `json:"ci_total_time_min" yaml:"ci_total_time_min"`
	CILongestTimeMin float64 `json:"ci_longest_time_min" yaml:"ci_longest_time_min"`
	LifespanDays     float64 `json:"lifespan_days" yaml:"lifespan_days"`
}

// Frame is the resampled, chart-ready view of one or more series.
type Frame struct {
	Window  time.Duration `json:"window" yaml:"window"`
	Buckets []Bucket      `json:"buckets" yaml:"buckets"`
}

// Resample combines the event rows of the given series into fixed windows.
//
// Per-column rule: counts and CI totals sum; ci_longest_time_sec and
// lifespan_sec take the window maximum; revisions average over every event
// row landing in the window. Rows keyed at or before the cutoff are
// excluded. Every window from floor(cutoff) through the window holding now
// (or the newest row, whichever is later) is emitted, so quiet periods
// render as zeros.
func Resample(series []Series, window time.Duration, cutoff, now time.Time) *Frame {
	combined := make(map[time.Time]*Bucket)
	rowsPerBucket := make(map[time.Time]int)
	revisionsSum := make(map[time.Time]int)

	last := now.Truncate(window)

	for _, s := range series {
		for ts, row := range s {
			if !ts.After(cutoff) {
				continue
			}

			start := ts.Truncate(window)
			if start.After(last) {
				last = start
			}

			bucket, found := combined[start]
			if !found {
				bucket = &Bucket{Start: start}
				combined[start] = bucket
			}

			mergeRow(&bucket.Row, row)
			bucket.Row.Revisions += row.Revisions

			rowsPerBucket[start]++
			revisionsSum[start] += row.Revisions
		}
	}

	frame := &Frame{Window: window}

	for start := cutoff.Truncate(window); !start.After(last); start = start.Add(window) {
		bucket, found := combined[start]
		if !found {
			bucket = &Bucket{Start: start}
		}

		if n := rowsPerBucket[start]; n > 0 {
			bucket.RevisionsMean = float64(revisionsSum[start]) / float64(n)
		}

		derive(bucket)
		frame.Buckets = append(frame.Buckets, *bucket)
	}

	sort.Slice(frame.Buckets, func(i, j int) bool {
		return frame.Buckets[i].Start.Before(frame.Buckets[j].Start)
	})

	return frame
}

// mergeRow folds src into dst: sums for counters and CI totals, maxima for
// the longest-job and lifespan columns. Revisions are handled by the caller
// since they average rather than sum.
func mergeRow(dst, src *Row) {
	dst.Created += src.Created
	dst.Updated += src.Updated
	dst.Merged += src.Merged
	dst.Recheck += src.Recheck
	dst.Reverify += src.Reverify
	dst.CISuccess += src.CISuccess
	dst.CIFailure += src.CIFailure
	dst.CITotalTimeSec += src.CITotalTimeSec
	dst.PromotionSuccess += src.PromotionSuccess
	dst.PromotionFailure += src.PromotionFailure

	if src.CILongestTimeSec > dst.CILongestTimeSec {
		dst.CILongestTimeSec = src.CILongestTimeSec
	}

	if src.LifespanSec > dst.LifespanSec {
		dst.LifespanSec = src.LifespanSec
	}
}

func derive(bucket *Bucket) {
	runs := bucket.Row.CISuccess + bucket.Row.CIFailure
	if runs > 0 {
		bucket.PctSuccess = float64(bucket.Row.CISuccess) / float64(runs) * 100
		bucket.PctFailure = float64(bucket.Row.CIFailure) / float64(runs) * 100
	}

	bucket.CITotalTimeMin = float64(bucket.Row.CITotalTimeSec) / 60
	bucket.CILongestTimeMin = float64(bucket.Row.CILongestTimeSec) / 60
	bucket.LifespanDays = bucket.Row.LifespanSec / 86400
}

// Totals collapses a series into one summary row: sums for counters and CI
// totals, maxima for longest-job and lifespan.
func Totals(s Series) Row {
	var total Row

	for _, row := range s {
		mergeRow(&total, row)
		total.Revisions += row.Revisions
	}

	return total
}
