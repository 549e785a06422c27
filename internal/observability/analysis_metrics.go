package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tfunk1030/setupcompare/pkg/analysis"
)

const (
	metricAnalysesTotal      = "setupcompare.analyses.total"
	metricAnalysisDuration   = "setupcompare.analysis.duration.seconds"
	metricDeltasTotal        = "setupcompare.deltas.total"
	metricInterpretedTotal   = "setupcompare.deltas.interpreted.total"
	metricMissingTotal       = "setupcompare.deltas.missing.total"
	metricParametersCompared = "setupcompare.parameters.compared"

	attrSeverity  = "severity"
	attrProfiled  = "profiled"
	attrTelemetry = "telemetry"
)

// AnalysisMetrics records per-analysis statistics. It implements
// analysis.Observer.
type AnalysisMetrics struct {
	analysesTotal    metric.Int64Counter
	duration         metric.Float64Histogram
	deltasTotal      metric.Int64Counter
	interpretedTotal metric.Int64Counter
	missingTotal     metric.Int64Counter
	parameters       metric.Float64Histogram
}

var _ analysis.Observer = (*AnalysisMetrics)(nil)

// parameterBucketBoundaries spans small partial exports to full car setups.
var parameterBucketBoundaries = []float64{10, 25, 50, 100, 200, 400, 800}

// NewAnalysisMetrics creates analysis metric instruments from the given meter.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	b := newMetricBuilder(mt)

	am := &AnalysisMetrics{
		analysesTotal:    b.counter(metricAnalysesTotal, "Total comparisons run", "{analysis}"),
		duration:         b.histogram(metricAnalysisDuration, "Comparison duration in seconds", "s", durationBucketBoundaries...),
		deltasTotal:      b.counter(metricDeltasTotal, "Deltas produced by severity", "{delta}"),
		interpretedTotal: b.counter(metricInterpretedTotal, "Deltas that received an interpretation", "{delta}"),
		missingTotal:     b.counter(metricMissingTotal, "Parameters present on one side only", "{delta}"),
		parameters:       b.histogram(metricParametersCompared, "Distinct parameters per comparison", "{parameter}", parameterBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return am, nil
}

// ObserveAnalysis records stats for one completed comparison.
// Safe to call on a nil receiver.
func (am *AnalysisMetrics) ObserveAnalysis(ctx context.Context, stats analysis.Stats) {
	if am == nil {
		return
	}

	am.analysesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool(attrProfiled, stats.Profiled),
		attribute.Bool(attrTelemetry, stats.Telemetry),
	))
	am.duration.Record(ctx, stats.Duration.Seconds())
	am.parameters.Record(ctx, float64(stats.Parameters))

	for level, n := range stats.Levels {
		am.deltasTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrSeverity, string(level))))
	}

	am.interpretedTotal.Add(ctx, int64(stats.Interpreted))
	am.missingTotal.Add(ctx, int64(stats.Missing))
}
