package rules

import (
	"strings"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// Temperature skews, in the telemetry's unit, above which tyre edges count as hot.
const (
	rearOuterSkew  = 3
	frontInnerSkew = 2
	hotFrontOuter  = 100
)

// Advisory sentences appended to full interpretations.
const (
	TailRearCamber    = "Telemetry shows hot rear outer shoulders; combined with adding negative camber this may keep the tire on edge and loosen exits."
	TailFrontToe      = "Front inners are running hotter; extra toe-out could worsen scrub and heat, consider moderating toe or pressures."
	TailTyrePressures = "Telemetry highlights high outer temps; lowering pressures further could overwork the shoulders, watch longevity."
)

// telemetryTail returns an advisory sentence when the tyre temperature
// picture corroborates or contradicts the change, or "" when nothing applies.
func telemetryTail(d setup.Delta, value float64, edges *setup.TyreEdges) string {
	if edges == nil {
		return ""
	}

	key := d.Key

	if strings.Contains(key, "alignment.rear") && strings.Contains(key, "camber") &&
		moreNegative(d) && edges.RearOuter-edges.RearInner > rearOuterSkew {
		return TailRearCamber
	}

	if strings.Contains(key, "alignment.front") && strings.Contains(key, "toe") &&
		edges.FrontInner-edges.FrontOuter > frontInnerSkew && value > 0 {
		return TailFrontToe
	}

	if strings.Contains(key, "tyre") && strings.Contains(key, "pressure") &&
		edges.FrontOuter > hotFrontOuter && value < 0 {
		return TailTyrePressures
	}

	return ""
}

func moreNegative(d setup.Delta) bool {
	prev, pok := d.PreviousValue.Float()
	next, nok := d.NewValue.Float()

	return pok && nok && next < prev
}
