package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricPagesFetched    = "zingstats.pages.fetched"
	metricChangesGathered = "zingstats.changes.gathered"
	metricRequestDuration = "zingstats.http.request.duration.seconds"
	metricParseFailures   = "zingstats.parse.failures"

	attrSource = "source"
)

// requestBucketBoundaries covers 10ms to 60s: a single page fetch plus the
// per-PR auxiliary sub-fetches all complete within this range.
var requestBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// GatherMetrics holds the OTel instruments recorded during ingestion and parsing.
// A nil *GatherMetrics is valid and records nothing.
type GatherMetrics struct {
	pagesFetched    metric.Int64Counter
	changesGathered metric.Int64Counter
	requestDuration metric.Float64Histogram
	parseFailures   metric.Int64Counter
}

// NewGatherMetrics creates the ingestion instruments from the given meter.
func NewGatherMetrics(mt metric.Meter) (*GatherMetrics, error) {
	builder := newMetricBuilder(mt)

	gm := &GatherMetrics{
		pagesFetched:    builder.counter(metricPagesFetched, "Result pages fetched from a backend", "{page}"),
		changesGathered: builder.counter(metricChangesGathered, "Changes/PRs stored during a gather", "{change}"),
		requestDuration: builder.histogram(metricRequestDuration, "HTTP request duration in seconds", "s", requestBucketBoundaries...),
		parseFailures:   builder.counter(metricParseFailures, "Comment parse failures", "{failure}"),
	}

	if builder.err != nil {
		return nil, builder.err
	}

	return gm, nil
}

// RecordPage counts one fetched result page for the given source.
func (gm *GatherMetrics) RecordPage(ctx context.Context, source string) {
	if gm == nil {
		return
	}

	gm.pagesFetched.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))
}

// RecordChanges counts stored changes for the given source.
func (gm *GatherMetrics) RecordChanges(ctx context.Context, source string, count int) {
	if gm == nil {
		return
	}

	gm.changesGathered.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrSource, source)))
}

// RecordRequest records the elapsed wall time of one HTTP request.
func (gm *GatherMetrics) RecordRequest(ctx context.Context, source string, elapsed time.Duration) {
	if gm == nil {
		return
	}

	gm.requestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String(attrSource, source)))
}

// RecordParseFailure counts one fatal comment-parse failure.
func (gm *GatherMetrics) RecordParseFailure(ctx context.Context, source string) {
	if gm == nil {
		return
	}

	gm.parseFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))
}
