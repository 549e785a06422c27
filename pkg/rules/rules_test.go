package rules_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfunk1030/setupcompare/pkg/compare"
	"github.com/tfunk1030/setupcompare/pkg/rules"
	"github.com/tfunk1030/setupcompare/pkg/setup"
	"github.com/tfunk1030/setupcompare/pkg/severity"
)

func numericDelta(key string, prev, next float64, unit string) setup.Delta {
	delta := compare.Difference(setup.Number(prev), setup.Number(next))
	meta := severity.Classify(delta, severity.Default())

	return setup.Delta{
		Key:           key,
		Label:         key,
		Category:      setup.CategoryOther,
		Value:         setup.Number(next),
		PreviousValue: setup.Number(prev),
		NewValue:      setup.Number(next),
		Delta:         delta,
		Significance:  severity.Significance(meta.Level),
		Severity:      &meta,
		Unit:          unit,
	}
}

func TestDefaultTable_IsValid(t *testing.T) {
	t.Parallel()

	table, err := rules.DefaultTable()
	require.NoError(t, err)
	assert.Equal(t, 1, table.Version)
	assert.Len(t, table.Rules, 25)
	assert.NotEmpty(t, table.Profiles)

	require.NoError(t, rules.Validate(rules.DefaultTableYAML()))

	assert.NotPanics(t, func() { rules.Default() })
}

func TestApply_RideHeightFront(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prev      float64
		next      float64
		wantShort string
		wantFull  string
	}{
		{
			name:      "raised",
			prev:      50,
			next:      52,
			wantShort: "Raised front ride height by 2 mm: front aero balance lighter",
			wantFull:  "Increasing front ride height by 2 mm decreases front downforce and can promote understeer on turn-in.",
		},
		{
			name:      "lowered",
			prev:      50,
			next:      47.5,
			wantShort: "Lowered front ride height by 2.5 mm: front aero balance stronger",
			wantFull:  "Reducing front ride height by 2.5 mm decreases front downforce and sharpens turn-in but risks bottoming.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := rules.Default().Apply([]setup.Delta{numericDelta("ride_height.front", tt.prev, tt.next, "mm")}, nil, nil)
			require.Len(t, out, 1)
			require.NotNil(t, out[0].Interpretation)
			assert.Equal(t, tt.wantShort, out[0].Interpretation.Short)
			assert.Equal(t, tt.wantFull, out[0].Interpretation.Full)
			assert.Equal(t, tt.wantShort, out[0].Insight)
			assert.Contains(t, out[0].Insight, "ride height")
		})
	}
}

func TestApply_DifferentialPowerRamp(t *testing.T) {
	t.Parallel()

	out := rules.Default().Apply([]setup.Delta{numericDelta("differential.power_ramp", 40, 42, "%")}, nil, nil)
	require.NotNil(t, out[0].Interpretation)
	assert.Equal(t, "More power ramp: traction on exit", out[0].Interpretation.Short)
	assert.Contains(t, out[0].Interpretation.Short, "power ramp")
}

func TestApply_ThresholdGatesInterpretation(t *testing.T) {
	t.Parallel()

	in := []setup.Delta{
		numericDelta("ride_height.front", 50, 50.5, "mm"),
		numericDelta("alignment.front.toe", 0.1, 0.105, "deg"),
	}

	out := rules.Default().Apply(in, nil, nil)
	for _, d := range out {
		assert.Nil(t, d.Interpretation, d.Key)
		assert.Empty(t, d.Insight, d.Key)
	}
}

func TestApply_NonNumericAndUnmatchedPassThrough(t *testing.T) {
	t.Parallel()

	text := setup.Delta{Key: "ride_height.front", Delta: setup.Text("high"), PreviousValue: setup.Text("low"), NewValue: setup.Text("high")}
	unmatched := numericDelta("electronics.tc", 1, 9, "")

	out := rules.Default().Apply([]setup.Delta{text, unmatched}, nil, nil)
	require.Len(t, out, 2)

	if diff := cmp.Diff([]setup.Delta{text, unmatched}, out, cmp.AllowUnexported(setup.Value{})); diff != "" {
		t.Errorf("unexpected change (-want +got):\n%s", diff)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []setup.Delta{
		numericDelta("ride_height.front", 50, 52, "mm"),
		numericDelta("fuel.start", 40, 50, "L"),
	}
	snapshot := []setup.Delta{in[0], in[1]}

	out := rules.Default().Apply(in, &setup.Profile{CarModel: "GT3"}, nil)
	require.NotNil(t, out[0].Interpretation)

	if diff := cmp.Diff(snapshot, in, cmp.AllowUnexported(setup.Value{})); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}

	assert.Nil(t, in[0].Interpretation)
}

func TestApply_ProfileResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		profile   *setup.Profile
		delta     setup.Delta
		wantHint  string
		wantShort string
	}{
		{
			name:     "car and track match exactly",
			profile:  &setup.Profile{CarModel: "GT3", TrackCategory: "Road"},
			delta:    numericDelta("ride_height.rear", 55, 50, "mm"),
			wantHint: "GT3 rake is sensitive on road courses",
		},
		{
			name:      "exact match hides car-only groups",
			profile:   &setup.Profile{CarModel: "gt3", TrackCategory: "road"},
			delta:     numericDelta("aero.rear.wing", 5, 6, ""),
			wantShort: "Added rear wing: more rear stability",
		},
		{
			name:     "car-only before track-only",
			profile:  &setup.Profile{CarModel: "gt3", TrackCategory: "oval"},
			delta:    numericDelta("aero.rear.wing", 5, 6, ""),
			wantHint: "GT3 wing steps are coarse",
		},
		{
			name:     "track-only",
			profile:  &setup.Profile{TrackCategory: "oval"},
			delta:    numericDelta("tyre.front.left.pressure", 24, 25, "psi"),
			wantHint: "oval stagger matters more than absolute pressure",
		},
		{
			name:     "unknown car falls back to generic",
			profile:  &setup.Profile{CarModel: "formula vee"},
			delta:    numericDelta("fuel.start", 40, 50, "L"),
			wantHint: "recheck ride heights at low fuel",
		},
		{
			name:     "no profile uses generic",
			delta:    numericDelta("tyre.rear.left.pressure", 24, 25, "psi"),
			wantHint: "compare hot pressures, not cold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := rules.Default().Apply([]setup.Delta{tt.delta}, tt.profile, nil)
			require.NotNil(t, out[0].Interpretation)

			if tt.wantHint != "" {
				assert.Contains(t, out[0].Interpretation.Short, " — "+tt.wantHint)
			}

			if tt.wantShort != "" {
				assert.Equal(t, tt.wantShort, out[0].Interpretation.Short)
			}
		})
	}
}

func lap(frontInner, frontOuter, rearInner, rearOuter float64) setup.LapSample {
	front := setup.CornerTemps{Inner: frontInner, Middle: (frontInner + frontOuter) / 2, Outer: frontOuter}
	rear := setup.CornerTemps{Inner: rearInner, Middle: (rearInner + rearOuter) / 2, Outer: rearOuter}

	return setup.LapSample{
		Lap:       1,
		LapTimeMs: 90000,
		TyreTemps: setup.TyreTemps{FrontLeft: front, FrontRight: front, RearLeft: rear, RearRight: rear},
	}
}

func TestApply_TelemetryTails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		delta setup.Delta
		laps  []setup.LapSample
		want  string
	}{
		{
			name:  "rear camber with hot outer shoulders",
			delta: numericDelta("alignment.rear.left.camber", -3, -3.5, "deg"),
			laps:  []setup.LapSample{lap(85, 85, 88, 93), lap(85, 85, 89, 94)},
			want:  rules.TailRearCamber,
		},
		{
			name:  "front toe with hot inners",
			delta: numericDelta("alignment.front.toe", 0.1, 0.15, "deg"),
			laps:  []setup.LapSample{lap(92, 88, 85, 85)},
			want:  rules.TailFrontToe,
		},
		{
			name:  "lower pressures with hot front outers",
			delta: numericDelta("tyre.front.left.pressure", 25, 24, "psi"),
			laps:  []setup.LapSample{lap(100, 104, 90, 90)},
			want:  rules.TailTyrePressures,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			telemetry := &setup.TelemetrySummary{ID: "t1", Laps: tt.laps}
			out := rules.Default().Apply([]setup.Delta{tt.delta}, nil, telemetry)
			require.NotNil(t, out[0].Interpretation)
			assert.Contains(t, out[0].Interpretation.Full, tt.want)
			assert.NotContains(t, out[0].Interpretation.Short, tt.want)

			// Advisory only.
			assert.Equal(t, tt.delta.Severity, out[0].Severity)
			assert.Equal(t, tt.delta.Significance, out[0].Significance)

			plain := rules.Default().Apply([]setup.Delta{tt.delta}, nil, nil)
			assert.NotContains(t, plain[0].Interpretation.Full, tt.want)
		})
	}
}

func TestApply_TelemetryTailPrecedesHint(t *testing.T) {
	t.Parallel()

	telemetry := &setup.TelemetrySummary{Laps: []setup.LapSample{lap(100, 104, 90, 90)}}
	out := rules.Default().Apply([]setup.Delta{numericDelta("tyre.front.left.pressure", 25, 24, "psi")}, nil, telemetry)

	want := "Lower front pressures by 1 psi increase contact patch for grip but may overheat the shoulders. " +
		rules.TailTyrePressures +
		" Judge pressure changes on hot pressures after a consistent run, not on cold set values."
	assert.Equal(t, want, out[0].Interpretation.Full)
}

func TestApply_EmptyTelemetryAddsNothing(t *testing.T) {
	t.Parallel()

	d := numericDelta("alignment.front.toe", 0.1, 0.15, "deg")
	out := rules.Default().Apply([]setup.Delta{d}, nil, &setup.TelemetrySummary{})
	assert.Equal(t, "Increasing front toe-out by 0.05° sharpens initial rotation but adds scrub and heat.", out[0].Interpretation.Full)
}

func TestRender(t *testing.T) {
	t.Parallel()

	vars := map[string]string{"delta": "2", "unit": "mm"}

	assert.Equal(t, "by 2 mm", rules.Render("by {delta} {unit}", vars))
	assert.Equal(t, "by 2 mm", rules.Render("by { delta } {unit}", vars))
	assert.Equal(t, "a  b", rules.Render("a {missing} b", vars))
	assert.Equal(t, "{}", rules.Render("{}", vars))
	assert.Equal(t, "no placeholders", rules.Render("no placeholders", nil))
}

func TestApply_CustomTableUnknownPlaceholder(t *testing.T) {
	t.Parallel()

	engine := rules.NewEngine(rules.Table{Rules: []rules.Rule{{
		KeyIncludes: []string{"brakes"},
		Short:       "{direction} {nope}by {deltaWithUnit}",
		Full:        "balance {balance}, {dir}",
		Words:       map[string][]string{"dir": {"up", "down"}, "direction": {"shadow", "shadow"}},
	}}})

	out := engine.Apply([]setup.Delta{numericDelta("brakes.bias", 56, 55, "%")}, nil, nil)
	require.NotNil(t, out[0].Interpretation)
	assert.Equal(t, "decrease by -1 %", out[0].Interpretation.Short)
	assert.Equal(t, "balance forward, down", out[0].Interpretation.Full)
}

func TestNewEngine_CopiesTable(t *testing.T) {
	t.Parallel()

	table := rules.Table{Rules: []rules.Rule{{KeyIncludes: []string{"fuel"}, Short: "fuel", Full: "fuel"}}}
	engine := rules.NewEngine(table)

	table.Rules[0].KeyIncludes[0] = "brakes"
	table.Rules[0].Short = "changed"

	out := engine.Apply([]setup.Delta{numericDelta("fuel.start", 1, 2, "L")}, nil, nil)
	require.NotNil(t, out[0].Interpretation)
	assert.Equal(t, "fuel", out[0].Interpretation.Short)
	assert.Equal(t, "fuel", engine.Table().Rules[0].KeyIncludes[0])
}

func TestParseTable_Errors(t *testing.T) {
	t.Parallel()

	_, err := rules.ParseTable([]byte(""))
	require.ErrorIs(t, err, rules.ErrEmptyTable)

	_, err = rules.ParseTable([]byte("rules:\n  - keyIncludes: [fuel]\n    short: only short\n"))
	require.ErrorIs(t, err, rules.ErrInvalidTable)

	var verr *rules.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.Issues)

	_, err = rules.ParseTable([]byte("rules: []\nunknown: true\n"))
	require.ErrorIs(t, err, rules.ErrInvalidTable)

	_, err = rules.ParseTable([]byte("rules: [\n"))
	require.ErrorIs(t, err, rules.ErrInvalidTable)
}

func TestLoadTable_JSONAndYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "table.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
  "version": 2,
  "rules": [{"id": "fuel", "keyIncludes": ["fuel"], "threshold": 1, "short": "fuel {direction}", "full": "fuel by {absDelta}"}],
  "profiles": [{"overrides": [{"keyIncludes": ["fuel"], "shortHint": "hint"}]}]
}`), 0o600))

	table, err := rules.LoadTable(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Version)
	require.Len(t, table.Rules, 1)
	assert.InDelta(t, 1.0, table.Rules[0].Threshold, 0)

	out := rules.NewEngine(table).Apply([]setup.Delta{numericDelta("fuel.start", 40, 38, "L")}, nil, nil)
	assert.Equal(t, "fuel decrease — hint", out[0].Interpretation.Short)
	assert.Equal(t, "fuel by 2", out[0].Interpretation.Full)

	yamlPath := filepath.Join(dir, "table.yaml")
	require.NoError(t, os.WriteFile(yamlPath, rules.DefaultTableYAML(), 0o600))

	fromFile, err := rules.LoadTable(yamlPath)
	require.NoError(t, err)

	def, err := rules.DefaultTable()
	require.NoError(t, err)

	if diff := cmp.Diff(def, fromFile); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}

	_, err = rules.LoadTable(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
