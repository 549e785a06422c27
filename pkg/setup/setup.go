// Package setup defines the data contracts shared by the setup comparison
// pipeline: parsed setup files, per-parameter deltas, severity metadata,
// profile context, telemetry input and the combined analysis summary.
package setup

// Category groups parameters by vehicle subsystem.
type Category string

// Known parameter categories.
const (
	CategorySuspension   Category = "suspension"
	CategoryAero         Category = "aero"
	CategoryRideHeight   Category = "ride_height"
	CategoryTyre         Category = "tyre"
	CategoryAlignment    Category = "alignment"
	CategoryDifferential Category = "differential"
	CategoryBrakes       Category = "brakes"
	CategoryFuel         Category = "fuel"
	CategoryDrivetrain   Category = "drivetrain"
	CategoryOther        Category = "other"
)

// Categories lists every known category in declaration order.
func Categories() []Category {
	return []Category{
		CategorySuspension, CategoryAero, CategoryRideHeight, CategoryTyre, CategoryAlignment,
		CategoryDifferential, CategoryBrakes, CategoryFuel, CategoryDrivetrain, CategoryOther,
	}
}

// Parameter is a single named, categorized tunable value.
type Parameter struct {
	Key      string   `json:"key"            yaml:"key"`
	Label    string   `json:"label"          yaml:"label"`
	Category Category `json:"category"       yaml:"category"`
	Value    Value    `json:"value"          yaml:"value"`
	Unit     string   `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// File is one parsed setup configuration.
type File struct {
	Name       string      `json:"name"       yaml:"name"`
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
}

// Lookup returns the first parameter with the given key.
func (f File) Lookup(key string) (Parameter, bool) {
	for _, p := range f.Parameters {
		if p.Key == key {
			return p, true
		}
	}

	return Parameter{}, false
}

// Side identifies which setup of a comparison lacks a parameter.
type Side string

// Comparison sides.
const (
	SideBaseline  Side = "baseline"
	SideCandidate Side = "candidate"
)

// SeverityLevel is the coarse three-tier classification of a delta.
type SeverityLevel string

// Severity levels, lowest first.
const (
	SeverityMinor    SeverityLevel = "minor"
	SeverityModerate SeverityLevel = "moderate"
	SeverityMajor    SeverityLevel = "major"
)

// Significance is the user-facing rendering of a severity level.
type Significance string

// Significance values.
const (
	SignificanceLow    Significance = "low"
	SignificanceMedium Significance = "medium"
	SignificanceHigh   Significance = "high"
)

// SeverityMeta records how a delta was classified.
type SeverityMeta struct {
	Level     SeverityLevel `json:"level"               yaml:"level"`
	Magnitude *float64      `json:"magnitude,omitempty" yaml:"magnitude,omitempty"`
	Threshold float64       `json:"threshold"           yaml:"threshold"`
	Reason    string        `json:"reason,omitempty"    yaml:"reason,omitempty"`
}

// Interpretation holds the rendered short and long explanation of a delta.
type Interpretation struct {
	Short string `json:"short" yaml:"short"`
	Full  string `json:"full"  yaml:"full"`
}

// Delta is the comparison result for one parameter key.
type Delta struct {
	Key            string          `json:"key"                      yaml:"key"`
	Label          string          `json:"label"                    yaml:"label"`
	Category       Category        `json:"category"                 yaml:"category"`
	Value          Value           `json:"value"                    yaml:"value"`
	PreviousValue  Value           `json:"previousValue"            yaml:"previousValue"`
	NewValue       Value           `json:"newValue"                 yaml:"newValue"`
	Delta          Value           `json:"delta"                    yaml:"delta"`
	Significance   Significance    `json:"significance"             yaml:"significance"`
	Severity       *SeverityMeta   `json:"severity,omitempty"       yaml:"severity,omitempty"`
	Unit           string          `json:"unit,omitempty"           yaml:"unit,omitempty"`
	MissingSide    Side            `json:"missingSide,omitempty"    yaml:"missingSide,omitempty"`
	Insight        string          `json:"insight,omitempty"        yaml:"insight,omitempty"`
	Interpretation *Interpretation `json:"interpretation,omitempty" yaml:"interpretation,omitempty"`
}

// Level returns the severity level, or the empty string when unclassified.
func (d Delta) Level() SeverityLevel {
	if d.Severity == nil {
		return ""
	}

	return d.Severity.Level
}

// Profile is optional car and track context used to select
// profile-specific interpretation hints.
type Profile struct {
	CarModel      string `json:"carModel,omitempty"      yaml:"carModel,omitempty"`
	TrackCategory string `json:"trackCategory,omitempty" yaml:"trackCategory,omitempty"`
	TrackName     string `json:"trackName,omitempty"     yaml:"trackName,omitempty"`
}

// IsZero reports whether no profile field is set.
func (p Profile) IsZero() bool {
	return p.CarModel == "" && p.TrackCategory == "" && p.TrackName == ""
}

// AnalysisSummary is the combined assessment of a delta list.
type AnalysisSummary struct {
	OverallEffect   string   `json:"overallEffect"   yaml:"overallEffect"`
	Interactions    []string `json:"interactions"    yaml:"interactions"`
	Balance         string   `json:"balance"         yaml:"balance"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
	CombinedShort   string   `json:"combinedShort"   yaml:"combinedShort"`
	CombinedFull    string   `json:"combinedFull"    yaml:"combinedFull"`
}
