package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/HewlettPackard/zing-stats/pkg/observability"
)

func setupGatherMetrics(t *testing.T) (*observability.GatherMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	gm, err := observability.NewGatherMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return gm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := make(map[string]metricdata.Metrics)

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			byName[m.Name] = m
		}
	}

	return byName
}

func counterValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	return sum.DataPoints[0].Value
}

func TestGatherMetrics_RecordsCounters(t *testing.T) {
	t.Parallel()

	gm, reader := setupGatherMetrics(t)
	ctx := context.Background()

	gm.RecordPage(ctx, "gerrit")
	gm.RecordPage(ctx, "gerrit")
	gm.RecordChanges(ctx, "gerrit", 42)
	gm.RecordParseFailure(ctx, "gerrit")

	byName := collectMetrics(t, reader)

	assert.Equal(t, int64(2), counterValue(t, byName["zingstats.pages.fetched"]))
	assert.Equal(t, int64(42), counterValue(t, byName["zingstats.changes.gathered"]))
	assert.Equal(t, int64(1), counterValue(t, byName["zingstats.parse.failures"]))
}

func TestGatherMetrics_RecordsRequestDuration(t *testing.T) {
	t.Parallel()

	gm, reader := setupGatherMetrics(t)

	gm.RecordRequest(context.Background(), "github", 250*time.Millisecond)

	byName := collectMetrics(t, reader)

	hist, ok := byName["zingstats.http.request.duration.seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)

	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.25, hist.DataPoints[0].Sum, 1e-9)
}

func TestGatherMetrics_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var gm *observability.GatherMetrics

	ctx := context.Background()

	gm.RecordPage(ctx, "gerrit")
	gm.RecordChanges(ctx, "gerrit", 1)
	gm.RecordRequest(ctx, "gerrit", time.Second)
	gm.RecordParseFailure(ctx, "gerrit")
}
