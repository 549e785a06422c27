// Package analysis is the single entry point of the setup comparison
// pipeline: compare, interpret, summarize.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tfunk1030/setupcompare/pkg/compare"
	"github.com/tfunk1030/setupcompare/pkg/rules"
	"github.com/tfunk1030/setupcompare/pkg/setup"
	"github.com/tfunk1030/setupcompare/pkg/severity"
	"github.com/tfunk1030/setupcompare/pkg/summary"
)

const tracerName = "setupcompare.analysis"

// Span names, one per pipeline stage.
const (
	spanAnalyze   = "setupcompare.analysis.analyze"
	spanCompare   = "setupcompare.analysis.compare"
	spanInterpret = "setupcompare.analysis.interpret"
	spanSummarize = "setupcompare.analysis.summarize"
)

// Options are per-call inputs. Every field is optional.
type Options struct {
	Profile    *setup.Profile          `json:"profile,omitempty"    yaml:"profile,omitempty"`
	Thresholds *severity.Thresholds    `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Telemetry  *setup.TelemetrySummary `json:"telemetry,omitempty"  yaml:"telemetry,omitempty"`
}

// Result is the full outcome of one analysis.
type Result struct {
	Deltas    []setup.Delta         `json:"deltas"    yaml:"deltas"`
	Summary   setup.AnalysisSummary `json:"summary"   yaml:"summary"`
	Baseline  setup.File            `json:"baseline"  yaml:"baseline"`
	Candidate setup.File            `json:"candidate" yaml:"candidate"`
}

// Stats describe one completed analysis for metrics.
type Stats struct {
	Parameters  int
	Deltas      int
	Interpreted int
	Missing     int
	Levels      map[setup.SeverityLevel]int
	Profiled    bool
	Telemetry   bool
	Duration    time.Duration
}

// Observer receives stats after every analysis. Implementations must be safe
// for concurrent use.
type Observer interface {
	ObserveAnalysis(ctx context.Context, stats Stats)
}

// Analyzer runs the pipeline. It holds only immutable configuration and is
// safe for concurrent use.
type Analyzer struct {
	engine     *rules.Engine
	thresholds severity.Thresholds
	tracer     trace.Tracer
	observer   Observer
	logger     *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRules sets the rule engine. The default is the built-in rule table.
func WithRules(engine *rules.Engine) Option {
	return func(a *Analyzer) {
		if engine != nil {
			a.engine = engine
		}
	}
}

// WithThresholds sets the thresholds used when a call does not supply its own.
func WithThresholds(t severity.Thresholds) Option {
	return func(a *Analyzer) {
		a.thresholds = t
	}
}

// WithTracer sets the tracer. The default is the global tracer provider's.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analyzer) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithObserver registers an observer for completed analyses.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) {
		a.observer = o
	}
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds: severity.Default(),
		tracer:     otel.Tracer(tracerName),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.engine == nil {
		a.engine = rules.Default()
	}

	return a
}

// Thresholds returns the analyzer's default thresholds.
func (a *Analyzer) Thresholds() severity.Thresholds {
	return a.thresholds
}

// Rules returns the analyzer's rule engine.
func (a *Analyzer) Rules() *rules.Engine {
	return a.engine
}

// Analyze runs compare, interpret and summarize exactly once.
func (a *Analyzer) Analyze(baseline, candidate setup.File, opts Options) Result {
	return a.AnalyzeContext(context.Background(), baseline, candidate, opts)
}

// AnalyzeContext is Analyze with tracing and metrics tied to ctx.
func (a *Analyzer) AnalyzeContext(ctx context.Context, baseline, candidate setup.File, opts Options) Result {
	start := time.Now()

	ctx, span := a.tracer.Start(ctx, spanAnalyze)
	defer span.End()

	thresholds := a.thresholds
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}

	_, compareSpan := a.tracer.Start(ctx, spanCompare)
	deltas := compare.Compare(baseline, candidate, thresholds)
	compareSpan.SetAttributes(attribute.Int("analysis.deltas", len(deltas)))
	compareSpan.End()

	_, interpretSpan := a.tracer.Start(ctx, spanInterpret)
	interpreted := a.engine.Apply(deltas, opts.Profile, opts.Telemetry)
	interpretSpan.End()

	_, summarizeSpan := a.tracer.Start(ctx, spanSummarize)
	sum := summary.Summarize(interpreted)
	summarizeSpan.End()

	stats := collectStats(baseline, candidate, interpreted, opts)
	stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("analysis.parameters", stats.Parameters),
		attribute.Int("analysis.interpreted", stats.Interpreted),
		attribute.Int("analysis.missing", stats.Missing),
		attribute.Int("analysis.major", stats.Levels[setup.SeverityMajor]),
	)

	if a.observer != nil {
		a.observer.ObserveAnalysis(ctx, stats)
	}

	a.logger.DebugContext(ctx, "analysis complete",
		"deltas", stats.Deltas,
		"interpreted", stats.Interpreted,
		"missing", stats.Missing,
		"effect", sum.OverallEffect,
		"duration", stats.Duration,
	)

	return Result{
		Deltas:    interpreted,
		Summary:   sum,
		Baseline:  baseline,
		Candidate: candidate,
	}
}

func collectStats(baseline, candidate setup.File, deltas []setup.Delta, opts Options) Stats {
	stats := Stats{
		Parameters: len(baseline.Parameters) + len(candidate.Parameters),
		Deltas:     len(deltas),
		Levels:     make(map[setup.SeverityLevel]int, 3),
		Profiled:   opts.Profile != nil && !opts.Profile.IsZero(),
		Telemetry:  opts.Telemetry != nil && len(opts.Telemetry.Laps) > 0,
	}

	for _, d := range deltas {
		if d.Interpretation != nil {
			stats.Interpreted++
		}

		if d.MissingSide != "" {
			stats.Missing++
		}

		if level := d.Level(); level != "" {
			stats.Levels[level]++
		}
	}

	return stats
}
