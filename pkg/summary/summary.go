// Package summary aggregates an interpreted delta list into one overall
// assessment of a setup change.
package summary

import (
	"fmt"
	"math"
	"strings"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// Balance statements.
const (
	BalanceNone     = "No axle-specific balance change detected"
	BalanceFront    = "Front axle changes dominate, expect more responsiveness"
	BalanceRear     = "Rear axle changes dominate, exits may feel different"
	BalanceBalanced = "Balanced axle adjustments applied"
)

// Interaction notes.
const (
	InteractionFrontUp = "Front increase offset by rear decrease, check balance"
	InteractionRearUp  = "Rear increase offset by front decrease, expect neutral balance"
)

// Recommendations, in the order they are emitted.
const (
	RecommendMissing  = "Verify missing parameters and align both setups before testing"
	RecommendMajor    = "Plan a shakedown lap to validate major changes"
	RecommendTyre     = "Monitor tyre temps/pressures to confirm expected behaviour"
	RecommendStandard = "Run standard validation laps to confirm feel"
)

// EffectMinor is the overall effect when no change is moderate or major.
const EffectMinor = "Minor baseline adjustments only"

const noInteractions = "none detected"

const (
	front = "front"
	rear  = "rear"
)

// Summarize builds the combined summary of deltas. It is a pure function of
// its input.
func Summarize(deltas []setup.Delta) setup.AnalysisSummary {
	overall := overallEffect(deltas)
	interactions := findInteractions(deltas)
	balance := balanceCheck(deltas)
	recommendations := recommend(deltas)

	joined := noInteractions
	if len(interactions) > 0 {
		joined = strings.Join(interactions, "; ")
	}

	return setup.AnalysisSummary{
		OverallEffect:   overall,
		Interactions:    interactions,
		Balance:         balance,
		Recommendations: recommendations,
		CombinedShort:   overall + ". " + balance,
		CombinedFull: fmt.Sprintf("%s. %s. Interactions: %s. Recommendations: %s",
			overall, balance, joined, strings.Join(recommendations, "; ")),
	}
}

func overallEffect(deltas []setup.Delta) string {
	var major, moderate int

	for _, d := range deltas {
		switch d.Level() {
		case setup.SeverityMajor:
			major++
		case setup.SeverityModerate:
			moderate++
		}
	}

	switch {
	case major > 0:
		return fmt.Sprintf("Major balance shifts detected across %d parameter(s)", major)
	case moderate > 0:
		return fmt.Sprintf("Moderate tuning changes detected (%d parameter(s))", moderate)
	default:
		return EffectMinor
	}
}

func balanceCheck(deltas []setup.Delta) string {
	frontMag := axleMagnitude(deltas, front)
	rearMag := axleMagnitude(deltas, rear)

	switch {
	case frontMag == 0 && rearMag == 0:
		return BalanceNone
	case frontMag > rearMag:
		return BalanceFront
	case rearMag > frontMag:
		return BalanceRear
	default:
		return BalanceBalanced
	}
}

// axleMagnitude sums |delta| of classified numeric deltas whose key names the axle.
func axleMagnitude(deltas []setup.Delta, axle string) float64 {
	var total float64

	for _, d := range deltas {
		if d.Severity == nil || !strings.Contains(d.Key, axle) {
			continue
		}

		if v, ok := d.Delta.Float(); ok {
			total += math.Abs(v)
		}
	}

	return total
}

type pair struct {
	front, rear *setup.Delta
}

// findInteractions pairs front and rear deltas that share a key once the axle
// name is removed, and reports pairs moving in opposite directions. Notes are
// emitted in the order pairing keys are first seen.
func findInteractions(deltas []setup.Delta) []string {
	pairs := make(map[string]*pair)

	var order []string

	slot := func(token string) *pair {
		p, ok := pairs[token]
		if !ok {
			p = &pair{}
			pairs[token] = p
			order = append(order, token)
		}

		return p
	}

	for i := range deltas {
		d := &deltas[i]

		if strings.Contains(d.Key, front) {
			slot(strings.Replace(d.Key, front, "", 1)).front = d
		}

		if strings.Contains(d.Key, rear) {
			slot(strings.Replace(d.Key, rear, "", 1)).rear = d
		}
	}

	interactions := make([]string, 0)

	for _, token := range order {
		p := pairs[token]
		if p.front == nil || p.rear == nil {
			continue
		}

		f, fok := p.front.Delta.Float()
		r, rok := p.rear.Delta.Float()

		if !fok || !rok {
			continue
		}

		switch {
		case f > 0 && r < 0:
			interactions = append(interactions, InteractionFrontUp)
		case f < 0 && r > 0:
			interactions = append(interactions, InteractionRearUp)
		}
	}

	return interactions
}

func recommend(deltas []setup.Delta) []string {
	var missing, major, tyre bool

	for _, d := range deltas {
		missing = missing || d.MissingSide != ""
		major = major || d.Level() == setup.SeverityMajor
		tyre = tyre || d.Category == setup.CategoryTyre
	}

	recommendations := make([]string, 0, 3)

	if missing {
		recommendations = append(recommendations, RecommendMissing)
	}

	if major {
		recommendations = append(recommendations, RecommendMajor)
	}

	if tyre {
		recommendations = append(recommendations, RecommendTyre)
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, RecommendStandard)
	}

	return recommendations
}
