package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HewlettPackard/zing-stats/pkg/stats"
)

func TestWindowFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, stats.WindowHour, stats.WindowFor(1))
	assert.Equal(t, stats.WindowHour, stats.WindowFor(24))
	assert.Equal(t, stats.WindowDay, stats.WindowFor(25))
	assert.Equal(t, stats.WindowDay, stats.WindowFor(168))
}

func TestResample_SumsCountsAndMaxesDurations(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 12, 30, 0, 0, time.UTC)
	cutoff := now.Add(-2 * time.Hour)

	window := now.Truncate(stats.WindowHour) // 12:00

	series := stats.Series{
		window.Add(5 * time.Minute): &stats.Row{
			Created: 1, CISuccess: 2, CITotalTimeSec: 60,
			CILongestTimeSec: 60, LifespanSec: 3600, Revisions: 2, Merged: 1,
		},
		window.Add(25 * time.Minute): &stats.Row{
			Created: 2, CIFailure: 2, CITotalTimeSec: 120,
			CILongestTimeSec: 90, LifespanSec: 7200, Revisions: 4, Merged: 1,
		},
	}

	frame := stats.Resample([]stats.Series{series}, stats.WindowHour, cutoff, now)

	require.NotNil(t, frame)
	assert.Equal(t, stats.WindowHour, frame.Window)

	// 10:00 through 12:00 inclusive.
	require.Len(t, frame.Buckets, 3)

	last := frame.Buckets[2]
	assert.True(t, last.Start.Equal(window))
	assert.Equal(t, 3, last.Row.Created)
	assert.Equal(t, 2, last.Row.CISuccess)
	assert.Equal(t, 2, last.Row.CIFailure)
	assert.Equal(t, 180, last.Row.CITotalTimeSec)

	// Maxima, not sums.
	assert.Equal(t, 90, last.Row.CILongestTimeSec)
	assert.InEpsilon(t, 7200.0, last.Row.LifespanSec, 1e-9)

	// Revisions: sum in the row, mean in the derived column.
	assert.Equal(t, 6, last.Row.Revisions)
	assert.InEpsilon(t, 3.0, last.RevisionsMean, 1e-9)

	// Derived ratios and conversions.
	assert.InEpsilon(t, 50.0, last.PctSuccess, 1e-9)
	assert.InEpsilon(t, 50.0, last.PctFailure, 1e-9)
	assert.InEpsilon(t, 3.0, last.CITotalTimeMin, 1e-9)
	assert.InEpsilon(t, 1.5, last.CILongestTimeMin, 1e-9)
	assert.InEpsilon(t, 7200.0/86400, last.LifespanDays, 1e-9)
}

func TestResample_EmptyWindowsRenderAsZeros(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-4 * time.Hour)

	series := stats.Series{
		now.Add(-30 * time.Minute): &stats.Row{Created: 1},
	}

	frame := stats.Resample([]stats.Series{series}, stats.WindowHour, cutoff, now)

	// 08:00..12:00 inclusive.
	require.Len(t, frame.Buckets, 5)

	for i, bucket := range frame.Buckets {
		if i == 3 {
			assert.Equal(t, 1, bucket.Row.Created)

			continue
		}

		assert.Equal(t, 0, bucket.Row.Created, "bucket %d", i)
		assert.Zero(t, bucket.PctSuccess)
	}

	// Buckets come out in ascending start order.
	for i := 1; i < len(frame.Buckets); i++ {
		assert.True(t, frame.Buckets[i-1].Start.Before(frame.Buckets[i].Start))
	}
}

func TestResample_ExcludesRowsAtOrBeforeCutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-2 * time.Hour)

	series := stats.Series{
		cutoff:                     &stats.Row{Created: 1},
		cutoff.Add(-time.Minute):   &stats.Row{Created: 1},
		cutoff.Add(time.Minute):    &stats.Row{Created: 1},
		now.Add(-30 * time.Minute): &stats.Row{Created: 1},
	}

	frame := stats.Resample([]stats.Series{series}, stats.WindowHour, cutoff, now)

	total := 0
	for _, bucket := range frame.Buckets {
		total += bucket.Row.Created
	}

	assert.Equal(t, 2, total)
}

func TestResample_CombinesMultipleSeries(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-time.Hour)
	ts := now.Add(-30 * time.Minute)

	a := stats.Series{ts: &stats.Row{Merged: 1, CILongestTimeSec: 30}}
	b := stats.Series{ts.Add(time.Minute): &stats.Row{Merged: 2, CILongestTimeSec: 45}}

	frame := stats.Resample([]stats.Series{a, b}, stats.WindowHour, cutoff, now)

	var merged, longest int

	for _, bucket := range frame.Buckets {
		merged += bucket.Row.Merged

		if bucket.Row.CILongestTimeSec > longest {
			longest = bucket.Row.CILongestTimeSec
		}
	}

	assert.Equal(t, 3, merged)
	assert.Equal(t, 45, longest)
}

func TestTotals(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	series := stats.Series{
		ts:                &stats.Row{Created: 1, CISuccess: 1, CITotalTimeSec: 30, CILongestTimeSec: 30, Revisions: 2},
		ts.Add(time.Hour): &stats.Row{Created: 2, CIFailure: 1, CITotalTimeSec: 45, CILongestTimeSec: 20, Revisions: 3},
	}

	total := stats.Totals(series)

	assert.Equal(t, 3, total.Created)
	assert.Equal(t, 1, total.CISuccess)
	assert.Equal(t, 1, total.CIFailure)
	assert.Equal(t, 75, total.CITotalTimeSec)
	assert.Equal(t, 30, total.CILongestTimeSec)
	assert.Equal(t, 5, total.Revisions)
}
