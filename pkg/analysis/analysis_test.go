package analysis_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tfunk1030/setupcompare/pkg/analysis"
	"github.com/tfunk1030/setupcompare/pkg/rules"
	"github.com/tfunk1030/setupcompare/pkg/setup"
	"github.com/tfunk1030/setupcompare/pkg/severity"
	"github.com/tfunk1030/setupcompare/pkg/summary"
)

func file(name string, params ...setup.Parameter) setup.File {
	return setup.File{Name: name, Parameters: params}
}

func num(key string, category setup.Category, v float64, unit string) setup.Parameter {
	return setup.Parameter{Key: key, Label: key, Category: category, Value: setup.Number(v), Unit: unit}
}

func TestAnalyze_SelfComparisonIsMinor(t *testing.T) {
	t.Parallel()

	base := file("base",
		num("ride_height.front", setup.CategoryRideHeight, 50, "mm"),
		num("ride_height.rear", setup.CategoryRideHeight, 55, "mm"),
		setup.Parameter{Key: "mode", Category: setup.CategoryOther, Value: setup.Text("dry")},
	)

	res := analysis.New().Analyze(base, base, analysis.Options{})

	for _, d := range res.Deltas {
		f, ok := d.Delta.Float()
		require.True(t, ok)
		assert.Zero(t, f)
		assert.Nil(t, d.Interpretation)
	}

	assert.Contains(t, strings.ToLower(res.Summary.OverallEffect), "minor")
	assert.Equal(t, summary.BalanceNone, res.Summary.Balance)
	assert.Equal(t, []string{summary.RecommendStandard}, res.Summary.Recommendations)
}

func TestAnalyze_RuleGating(t *testing.T) {
	t.Parallel()

	res := analysis.New().Analyze(
		file("b", num("ride_height.front", setup.CategoryRideHeight, 50, "mm")),
		file("c", num("ride_height.front", setup.CategoryRideHeight, 50.9, "mm")),
		analysis.Options{},
	)

	require.Len(t, res.Deltas, 1)
	assert.Nil(t, res.Deltas[0].Interpretation)
	assert.Empty(t, res.Deltas[0].Insight)
}

func TestAnalyze_OpposedSpringChangesInteract(t *testing.T) {
	t.Parallel()

	base := file("b",
		num("suspension.front.spring", setup.CategorySuspension, 100, "N/mm"),
		num("suspension.rear.spring", setup.CategorySuspension, 100, "N/mm"),
	)
	cand := file("c",
		num("suspension.front.spring", setup.CategorySuspension, 110, "N/mm"),
		num("suspension.rear.spring", setup.CategorySuspension, 90, "N/mm"),
	)

	res := analysis.New().Analyze(base, cand, analysis.Options{})

	assert.Contains(t, res.Summary.Interactions, summary.InteractionFrontUp)
	assert.Contains(t, res.Summary.CombinedFull, "Front increase offset by rear decrease")
}

func TestAnalyze_FullPipeline(t *testing.T) {
	t.Parallel()

	base := file("baseline",
		num("ride_height.front", setup.CategoryRideHeight, 50, "mm"),
		num("ride_height.rear", setup.CategoryRideHeight, 55, "mm"),
		num("tyre.front.left.pressure", setup.CategoryTyre, 24, "psi"),
	)
	cand := file("candidate",
		num("ride_height.front", setup.CategoryRideHeight, 52, "mm"),
		num("ride_height.rear", setup.CategoryRideHeight, 50, "mm"),
		num("tyre.front.left.pressure", setup.CategoryTyre, 23, "psi"),
		num("differential.power_ramp", setup.CategoryDifferential, 40, "%"),
	)

	profile := &setup.Profile{CarModel: "GT3", TrackCategory: "road"}
	res := analysis.New().Analyze(base, cand, analysis.Options{Profile: profile})

	require.Len(t, res.Deltas, 4)
	assert.Equal(t, base, res.Baseline)
	assert.Equal(t, cand, res.Candidate)

	byKey := make(map[string]setup.Delta, len(res.Deltas))
	for _, d := range res.Deltas {
		byKey[d.Key] = d
	}

	rear := byKey["ride_height.rear"]
	require.NotNil(t, rear.Interpretation)
	assert.Contains(t, rear.Interpretation.Short, "GT3 rake is sensitive on road courses")

	power := byKey["differential.power_ramp"]
	assert.Equal(t, setup.SideBaseline, power.MissingSide)
	require.NotNil(t, power.Interpretation)
	assert.Contains(t, power.Interpretation.Short, "More power ramp")

	assert.Equal(t, "Major balance shifts detected across 1 parameter(s)", res.Summary.OverallEffect)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"combinedShort"`)
	assert.Contains(t, string(data), `"previousValue":"—"`)
}

func TestAnalyze_ThresholdPrecedence(t *testing.T) {
	t.Parallel()

	base := file("b", num("ride_height.front", setup.CategoryRideHeight, 50, "mm"))
	cand := file("c", num("ride_height.front", setup.CategoryRideHeight, 52, "mm"))

	analyzer := analysis.New(analysis.WithThresholds(severity.Thresholds{Minor: 5, Moderate: 10, Major: 20}))
	assert.Equal(t, setup.SeverityMinor, analyzer.Analyze(base, cand, analysis.Options{}).Deltas[0].Level())

	custom := severity.Thresholds{Minor: 0.1, Moderate: 0.2, Major: 0.3}
	assert.Equal(t, setup.SeverityMajor, analyzer.Analyze(base, cand, analysis.Options{Thresholds: &custom}).Deltas[0].Level())
}

func TestAnalyze_InjectedRules(t *testing.T) {
	t.Parallel()

	engine := rules.NewEngine(rules.Table{Rules: []rules.Rule{{
		KeyIncludes: []string{"fuel"},
		Short:       "fuel {direction}",
		Full:        "fuel changed by {deltaWithUnit}",
	}}})

	res := analysis.New(analysis.WithRules(engine)).Analyze(
		file("b", num("fuel.start", setup.CategoryFuel, 40, "L"), num("ride_height.front", setup.CategoryRideHeight, 50, "mm")),
		file("c", num("fuel.start", setup.CategoryFuel, 30, "L"), num("ride_height.front", setup.CategoryRideHeight, 55, "mm")),
		analysis.Options{},
	)

	for _, d := range res.Deltas {
		switch d.Key {
		case "fuel.start":
			require.NotNil(t, d.Interpretation)
			assert.Equal(t, "fuel decrease", d.Interpretation.Short)
			assert.Equal(t, "fuel changed by -10 L", d.Interpretation.Full)
		default:
			assert.Nil(t, d.Interpretation)
		}
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	stats []analysis.Stats
}

func (r *recordingObserver) ObserveAnalysis(_ context.Context, stats analysis.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats = append(r.stats, stats)
}

func TestAnalyzeContext_SpansAndObserver(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	observer := &recordingObserver{}

	analyzer := analysis.New(analysis.WithTracer(tp.Tracer("test")), analysis.WithObserver(observer))

	base := file("b", num("ride_height.rear", setup.CategoryRideHeight, 55, "mm"))
	cand := file("c", num("ride_height.rear", setup.CategoryRideHeight, 50, "mm"), num("fuel.start", setup.CategoryFuel, 40, "L"))

	analyzer.AnalyzeContext(context.Background(), base, cand, analysis.Options{Profile: &setup.Profile{CarModel: "gt3"}})

	names := make([]string, 0, 4)
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}

	assert.ElementsMatch(t, []string{
		"setupcompare.analysis.compare",
		"setupcompare.analysis.interpret",
		"setupcompare.analysis.summarize",
		"setupcompare.analysis.analyze",
	}, names)

	require.Len(t, observer.stats, 1)
	stats := observer.stats[0]
	assert.Equal(t, 3, stats.Parameters)
	assert.Equal(t, 2, stats.Deltas)
	assert.Equal(t, 2, stats.Interpreted)
	assert.Equal(t, 1, stats.Missing)
	assert.Equal(t, 1, stats.Levels[setup.SeverityMajor])
	assert.Equal(t, 1, stats.Levels[setup.SeverityModerate])
	assert.True(t, stats.Profiled)
	assert.False(t, stats.Telemetry)
}

func TestAnalyze_ConcurrentUse(t *testing.T) {
	t.Parallel()

	analyzer := analysis.New()
	base := file("b", num("ride_height.front", setup.CategoryRideHeight, 50, "mm"))
	cand := file("c", num("ride_height.front", setup.CategoryRideHeight, 52, "mm"))

	want := analyzer.Analyze(base, cand, analysis.Options{})

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			got := analyzer.Analyze(base, cand, analysis.Options{})
			assert.Equal(t, want, got)
		}()
	}

	wg.Wait()
}
