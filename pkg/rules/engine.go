package rules

import (
	"math"
	"strings"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// Engine applies a rule table to delta lists. It holds only immutable state
// and is safe for concurrent use.
type Engine struct {
	table Table
}

// NewEngine returns an engine over a private copy of table.
func NewEngine(table Table) *Engine {
	return &Engine{table: table.Clone()}
}

// Default returns an engine over the built-in table. It panics if the
// embedded table is invalid, which a test guards against.
func Default() *Engine {
	table, err := DefaultTable()
	if err != nil {
		panic(err)
	}

	return &Engine{table: table}
}

// Table returns a copy of the engine's rule table.
func (e *Engine) Table() Table {
	return e.table.Clone()
}

// Len returns the number of rules in the engine's table.
func (e *Engine) Len() int {
	return len(e.table.Rules)
}

// Apply interprets every delta that matches a rule and clears its threshold.
// The returned slice is new; deltas is not modified. Deltas that match no rule
// are copied through unchanged.
func (e *Engine) Apply(deltas []setup.Delta, profile *setup.Profile, telemetry *setup.TelemetrySummary) []setup.Delta {
	groups := e.resolveGroups(profile)

	var edges *setup.TyreEdges

	if telemetry != nil {
		if te, ok := setup.Edges(telemetry.Laps); ok {
			edges = &te
		}
	}

	out := make([]setup.Delta, len(deltas))

	for i, d := range deltas {
		out[i] = e.interpret(d, groups, edges)
	}

	return out
}

func (e *Engine) interpret(d setup.Delta, groups []ProfileGroup, edges *setup.TyreEdges) setup.Delta {
	value, ok := d.Delta.Float()
	if !ok {
		return d
	}

	rule, found := e.match(d.Key)
	if !found || math.Abs(value) < rule.Threshold {
		return d
	}

	vars := renderContext(rule, d, value)
	short := Render(rule.Short, vars)
	full := Render(rule.Full, vars)

	if tail := telemetryTail(d, value, edges); tail != "" {
		full += " " + tail
	}

	if o, hit := findOverride(d.Key, groups); hit {
		if o.ShortHint != "" {
			short += " — " + o.ShortHint
		}

		if o.FullHint != "" {
			full += " " + o.FullHint
		}
	}

	d.Insight = short
	d.Interpretation = &setup.Interpretation{Short: short, Full: full}

	return d
}

func (e *Engine) match(key string) (Rule, bool) {
	for _, r := range e.table.Rules {
		if r.Matches(key) {
			return r, true
		}
	}

	return Rule{}, false
}

// resolveGroups picks the profile groups whose overrides apply. Groups tagged
// with both car and track win outright. Otherwise car-only matches followed by
// track-only matches are used, and generic groups are the fallback.
func (e *Engine) resolveGroups(profile *setup.Profile) []ProfileGroup {
	if len(e.table.Profiles) == 0 {
		return nil
	}

	var car, track string
	if profile != nil {
		car, track = profile.CarModel, profile.TrackCategory
	}

	var exact, carOnly, trackOnly, generic []ProfileGroup

	for _, g := range e.table.Profiles {
		switch {
		case g.CarModel != "" && g.TrackCategory != "":
			if sameFold(g.CarModel, car) && sameFold(g.TrackCategory, track) {
				exact = append(exact, g)
			}
		case g.CarModel != "":
			if sameFold(g.CarModel, car) {
				carOnly = append(carOnly, g)
			}
		case g.TrackCategory != "":
			if sameFold(g.TrackCategory, track) {
				trackOnly = append(trackOnly, g)
			}
		default:
			generic = append(generic, g)
		}
	}

	if len(exact) > 0 {
		return exact
	}

	if partial := append(carOnly, trackOnly...); len(partial) > 0 {
		return partial
	}

	return generic
}

func findOverride(key string, groups []ProfileGroup) (Override, bool) {
	for _, g := range groups {
		for _, o := range g.Overrides {
			if o.Matches(key) {
				return o, true
			}
		}
	}

	return Override{}, false
}

func sameFold(tag, value string) bool {
	return value != "" && strings.EqualFold(strings.TrimSpace(tag), strings.TrimSpace(value))
}
