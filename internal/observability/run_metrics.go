package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal         = "repolens.runs.total"
	metricRunDuration       = "repolens.run.duration.seconds"
	metricTaskDuration      = "repolens.task.duration.seconds"
	metricEnrichmentLookups = "repolens.enrichment.lookups.total"
	metricInflightRuns      = "repolens.inflight.runs"

	attrAnalyzer = "analyzer"
	attrStatus   = "status"
	attrSource   = "source"
)

// durationBucketBoundaries covers 10ms to 600s: single-file heuristic scans
// finish in milliseconds while large snapshots with live enrichment can take
// minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// RunMetrics holds the OTel instruments for analysis runs.
type RunMetrics struct {
	runsTotal         metric.Int64Counter
	runDuration       metric.Float64Histogram
	taskDuration      metric.Float64Histogram
	enrichmentLookups metric.Int64Counter
	inflightRuns      metric.Int64UpDownCounter
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		runsTotal:         b.counter(metricRunsTotal, "Total number of analysis runs", "{run}"),
		runDuration:       b.histogram(metricRunDuration, "Analysis run duration in seconds", "s", durationBucketBoundaries...),
		taskDuration:      b.histogram(metricTaskDuration, "Per-analyzer task duration in seconds", "s", durationBucketBoundaries...),
		enrichmentLookups: b.counter(metricEnrichmentLookups, "Enrichment lookups by source tier", "{lookup}"),
		inflightRuns:      b.upDownCounter(metricInflightRuns, "Number of in-flight analysis runs", "{run}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRun records one completed run with its overall status and duration.
func (rm *RunMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	rm.runsTotal.Add(ctx, 1, attrs)
	rm.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordTask records one analyzer task completion.
func (rm *RunMetrics) RecordTask(ctx context.Context, analyzer, state string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrAnalyzer, analyzer),
		attribute.String(attrStatus, state),
	)

	rm.taskDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordEnrichment counts one enrichment lookup by its source tier.
func (rm *RunMetrics) RecordEnrichment(ctx context.Context, source string) {
	rm.enrichmentLookups.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *RunMetrics) TrackInflight(ctx context.Context) func() {
	rm.inflightRuns.Add(ctx, 1)

	return func() {
		rm.inflightRuns.Add(ctx, -1)
	}
}
