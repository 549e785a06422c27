package rules

import (
	"math"
	"regexp"
	"strings"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// Directions exposed to templates as {direction}.
const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"
)

var placeholder = regexp.MustCompile(`\{([^{}]+)\}`)

// Render substitutes {name} placeholders from vars. Unknown names render as
// the empty string. No expressions are evaluated.
func Render(template string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		return vars[strings.TrimSpace(m[1:len(m)-1])]
	})
}

// renderContext builds the placeholder values for a numeric delta. Words are
// resolved first so built-in names cannot be shadowed by a rule.
func renderContext(r Rule, d setup.Delta, value float64) map[string]string {
	increase := value >= 0

	vars := make(map[string]string, len(r.Words)+7)

	for name, pair := range r.Words {
		if len(pair) < 2 {
			continue
		}

		if increase {
			vars[name] = pair[0]
		} else {
			vars[name] = pair[1]
		}
	}

	abs := setup.FormatNumber(math.Abs(value))
	signed := setup.FormatNumber(value)

	vars["delta"] = signed
	vars["absDelta"] = abs
	vars["unit"] = d.Unit
	vars["deltaWithUnit"] = withUnit(signed, d.Unit)
	vars["absDeltaWithUnit"] = withUnit(abs, d.Unit)

	if increase {
		vars["direction"] = DirectionIncrease
		vars["balance"] = "rearward"
	} else {
		vars["direction"] = DirectionDecrease
		vars["balance"] = "forward"
	}

	return vars
}

func withUnit(number, unit string) string {
	if unit == "" {
		return number
	}

	return number + " " + unit
}
