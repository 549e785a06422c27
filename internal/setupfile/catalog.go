package setupfile

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// Meta is the display metadata of a known parameter key.
type Meta struct {
	Label    string
	Category setup.Category
	Unit     string
}

var catalog = map[string]Meta{
	"suspension.front.left.spring_rate":  {"Front Left Spring Rate", setup.CategorySuspension, "N/mm"},
	"suspension.front.right.spring_rate": {"Front Right Spring Rate", setup.CategorySuspension, "N/mm"},
	"suspension.rear.left.spring_rate":   {"Rear Left Spring Rate", setup.CategorySuspension, "N/mm"},
	"suspension.rear.right.spring_rate":  {"Rear Right Spring Rate", setup.CategorySuspension, "N/mm"},
	"suspension.arb.front":               {"Front Anti-Roll Bar", setup.CategorySuspension, ""},
	"suspension.arb.rear":                {"Rear Anti-Roll Bar", setup.CategorySuspension, ""},
	"suspension.bumpstop.front":          {"Front Bump Stop Gap", setup.CategorySuspension, "mm"},
	"suspension.bumpstop.rear":           {"Rear Bump Stop Gap", setup.CategorySuspension, "mm"},
	"suspension.damper.rebound.front":    {"Front Rebound", setup.CategorySuspension, "clicks"},
	"suspension.damper.rebound.rear":     {"Rear Rebound", setup.CategorySuspension, "clicks"},
	"aero.front.wing":                    {"Front Wing", setup.CategoryAero, ""},
	"aero.rear.wing":                     {"Rear Wing", setup.CategoryAero, ""},
	"ride_height.front":                  {"Front Ride Height", setup.CategoryRideHeight, "mm"},
	"ride_height.rear":                   {"Rear Ride Height", setup.CategoryRideHeight, "mm"},
	"tyre.front.left.pressure":           {"Front Left Tyre Pressure", setup.CategoryTyre, "kPa"},
	"tyre.front.right.pressure":          {"Front Right Tyre Pressure", setup.CategoryTyre, "kPa"},
	"tyre.rear.left.pressure":            {"Rear Left Tyre Pressure", setup.CategoryTyre, "kPa"},
	"tyre.rear.right.pressure":           {"Rear Right Tyre Pressure", setup.CategoryTyre, "kPa"},
	"alignment.front.left.camber":        {"Front Left Camber", setup.CategoryAlignment, "deg"},
	"alignment.front.right.camber":       {"Front Right Camber", setup.CategoryAlignment, "deg"},
	"alignment.front.left.toe":           {"Front Left Toe", setup.CategoryAlignment, "deg"},
	"alignment.front.right.toe":          {"Front Right Toe", setup.CategoryAlignment, "deg"},
	"alignment.rear.left.camber":         {"Rear Left Camber", setup.CategoryAlignment, "deg"},
	"alignment.rear.right.camber":        {"Rear Right Camber", setup.CategoryAlignment, "deg"},
	"alignment.rear.left.toe":            {"Rear Left Toe", setup.CategoryAlignment, "deg"},
	"alignment.rear.right.toe":           {"Rear Right Toe", setup.CategoryAlignment, "deg"},
	"alignment.front.caster":             {"Caster", setup.CategoryAlignment, "deg"},
	"differential.preload":               {"Differential Preload", setup.CategoryDifferential, "Nm"},
	"differential.power":                 {"Differential Power Ramp", setup.CategoryDifferential, "%"},
	"differential.coast":                 {"Differential Coast Ramp", setup.CategoryDifferential, "%"},
	"brakes.bias":                        {"Brake Bias", setup.CategoryBrakes, "%"},
	"brakes.pressure":                    {"Brake Pressure", setup.CategoryBrakes, "%"},
	"fuel.start":                         {"Starting Fuel", setup.CategoryFuel, "L"},
	"drivetrain.gear_ratio.final":        {"Final Drive", setup.CategoryDrivetrain, ""},
}

// Lookup returns the metadata for key. Unknown keys get a title-cased label
// and the category named by their section when it is a known category,
// otherwise "other".
func Lookup(key string) (Meta, bool) {
	if m, ok := catalog[key]; ok {
		return m, true
	}

	return Meta{Label: toLabel(key), Category: sectionCategory(key)}, false
}

func sectionCategory(key string) setup.Category {
	section, _, _ := strings.Cut(key, ".")

	for _, c := range setup.Categories() {
		if string(c) == section {
			return c
		}
	}

	return setup.CategoryOther
}

// toLabel turns "aero.front.flap" into "Aero Front Flap".
func toLabel(key string) string {
	parts := strings.Split(key, ".")

	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		if size == 0 {
			continue
		}

		parts[i] = string(unicode.ToUpper(r)) + p[size:]
	}

	return strings.Join(parts, " ")
}
