// Package compare diffs two setup files parameter by parameter.
package compare

import (
	"math"
	"slices"

	"github.com/tfunk1030/setupcompare/pkg/setup"
	"github.com/tfunk1030/setupcompare/pkg/severity"
)

// Reasons attached to parameters found on only one side.
const (
	ReasonOnlyInCandidate = "only present in candidate setup"
	ReasonOnlyInBaseline  = "only present in baseline setup"
)

// deltaPrecision is the number of decimal places numeric deltas are rounded to.
const deltaPrecision = 1000

// Compare returns one delta per key in the union of both setups, sorted by
// category. Keys keep discovery order within a category: baseline keys
// first, then keys that only the candidate has.
func Compare(baseline, candidate setup.File, t severity.Thresholds) []setup.Delta {
	base := index(baseline)
	cand := index(candidate)
	keys := unionKeys(baseline, candidate)

	deltas := make([]setup.Delta, 0, len(keys))

	for _, key := range keys {
		bp, inBase := base[key]
		cp, inCand := cand[key]

		switch {
		case inBase && inCand:
			deltas = append(deltas, both(bp, cp, t))
		case inCand:
			deltas = append(deltas, oneSided(cp, setup.SideBaseline, t))
		default:
			deltas = append(deltas, oneSided(bp, setup.SideCandidate, t))
		}
	}

	slices.SortStableFunc(deltas, func(a, b setup.Delta) int {
		switch {
		case a.Category < b.Category:
			return -1
		case a.Category > b.Category:
			return 1
		default:
			return 0
		}
	})

	return deltas
}

// index maps keys to their first parameter in f.
func index(f setup.File) map[string]setup.Parameter {
	m := make(map[string]setup.Parameter, len(f.Parameters))

	for _, p := range f.Parameters {
		if _, seen := m[p.Key]; !seen {
			m[p.Key] = p
		}
	}

	return m
}

func unionKeys(baseline, candidate setup.File) []string {
	seen := make(map[string]struct{}, len(baseline.Parameters)+len(candidate.Parameters))
	keys := make([]string, 0, len(baseline.Parameters)+len(candidate.Parameters))

	for _, f := range []setup.File{baseline, candidate} {
		for _, p := range f.Parameters {
			if _, ok := seen[p.Key]; ok {
				continue
			}

			seen[p.Key] = struct{}{}
			keys = append(keys, p.Key)
		}
	}

	return keys
}

func oneSided(p setup.Parameter, missing setup.Side, t severity.Thresholds) setup.Delta {
	reason := ReasonOnlyInBaseline
	prev, next := p.Value, setup.AbsentValue()

	if missing == setup.SideBaseline {
		reason = ReasonOnlyInCandidate
		prev, next = setup.AbsentValue(), p.Value
	}

	meta := severity.Forced(t, reason)

	return setup.Delta{
		Key:           p.Key,
		Label:         p.Label,
		Category:      p.Category,
		Value:         p.Value,
		PreviousValue: prev,
		NewValue:      next,
		Delta:         p.Value,
		Significance:  severity.Significance(meta.Level),
		Severity:      &meta,
		Unit:          p.Unit,
		MissingSide:   missing,
	}
}

func both(prev, next setup.Parameter, t severity.Thresholds) setup.Delta {
	delta := Difference(prev.Value, next.Value)
	meta := severity.Classify(delta, t)

	return setup.Delta{
		Key:           next.Key,
		Label:         firstNonEmpty(next.Label, prev.Label),
		Category:      setup.Category(firstNonEmpty(string(next.Category), string(prev.Category))),
		Value:         next.Value,
		PreviousValue: prev.Value,
		NewValue:      next.Value,
		Delta:         delta,
		Significance:  severity.Significance(meta.Level),
		Severity:      &meta,
		Unit:          firstNonEmpty(next.Unit, prev.Unit),
	}
}

// Difference computes next minus prev rounded to three decimals when both
// are numbers, 0 when the values are equal, and the text of next otherwise.
// A difference beyond the float64 range saturates at ±math.MaxFloat64.
func Difference(prev, next setup.Value) setup.Value {
	p, pok := prev.Float()
	n, nok := next.Float()

	if pok && nok {
		d := n - p
		if math.IsInf(d, 0) && !math.IsInf(n, 0) && !math.IsInf(p, 0) {
			d = math.Copysign(math.MaxFloat64, d)
		}

		return setup.Number(round3(d))
	}

	if prev.Equal(next) {
		return setup.Number(0)
	}

	return setup.Text(next.String())
}

// roundLimit is the magnitude from which float64 has no fractional
// precision left, so rounding to three places changes nothing and scaling
// could overflow to infinity.
const roundLimit = 1 << 52

func round3(f float64) float64 {
	if math.Abs(f) >= roundLimit || math.IsNaN(f) {
		return f
	}

	r := math.Round(f*deltaPrecision) / deltaPrecision
	if r == 0 {
		return 0
	}

	return r
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
