// Package severity classifies parameter deltas into minor, moderate and
// major tiers.
package severity

import (
	"errors"
	"fmt"
	"math"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// Default tier boundaries.
const (
	DefaultMinor    = 0.25
	DefaultModerate = 1
	DefaultMajor    = 3
)

// Classification reasons.
const (
	ReasonNonNumeric       = "non-numeric change"
	ReasonExceededMajor    = "exceeded major threshold"
	ReasonExceededModerate = "exceeded moderate threshold"
	ReasonExceededMinor    = "exceeded minor threshold"
	ReasonBelowThreshold   = "below threshold but recorded"
)

// Sentinel validation errors.
var (
	// ErrNegativeThreshold indicates a tier boundary below zero.
	ErrNegativeThreshold = errors.New("severity thresholds must be non-negative")
	// ErrThresholdOrder indicates tiers that are not minor <= moderate <= major.
	ErrThresholdOrder = errors.New("severity thresholds must satisfy minor <= moderate <= major")
)

// Thresholds are the magnitude boundaries of each tier.
type Thresholds struct {
	Minor    float64 `json:"minor"    yaml:"minor"    mapstructure:"minor"`
	Moderate float64 `json:"moderate" yaml:"moderate" mapstructure:"moderate"`
	Major    float64 `json:"major"    yaml:"major"    mapstructure:"major"`
}

// Default returns the global default thresholds.
func Default() Thresholds {
	return Thresholds{Minor: DefaultMinor, Moderate: DefaultModerate, Major: DefaultMajor}
}

// Validate checks that tiers are non-negative and ascending.
func (t Thresholds) Validate() error {
	if t.Minor < 0 || t.Moderate < 0 || t.Major < 0 {
		return fmt.Errorf("%w: %+v", ErrNegativeThreshold, t)
	}

	if t.Minor > t.Moderate || t.Moderate > t.Major {
		return fmt.Errorf("%w: %+v", ErrThresholdOrder, t)
	}

	return nil
}

// Classify assigns a severity tier to delta. Non-numeric deltas are always
// minor; numeric deltas below every threshold are still recorded as minor.
func Classify(delta setup.Value, t Thresholds) setup.SeverityMeta {
	d, ok := delta.Float()
	if !ok {
		return setup.SeverityMeta{Level: setup.SeverityMinor, Threshold: t.Minor, Reason: ReasonNonNumeric}
	}

	magnitude := math.Abs(d)

	meta := setup.SeverityMeta{Magnitude: &magnitude}

	switch {
	case magnitude >= t.Major:
		meta.Level, meta.Threshold, meta.Reason = setup.SeverityMajor, t.Major, ReasonExceededMajor
	case magnitude >= t.Moderate:
		meta.Level, meta.Threshold, meta.Reason = setup.SeverityModerate, t.Moderate, ReasonExceededModerate
	case magnitude >= t.Minor:
		meta.Level, meta.Threshold, meta.Reason = setup.SeverityMinor, t.Minor, ReasonExceededMinor
	default:
		meta.Level, meta.Threshold, meta.Reason = setup.SeverityMinor, t.Minor, ReasonBelowThreshold
	}

	return meta
}

// Forced returns moderate severity with the given reason, used for
// parameters present on only one side of a comparison.
func Forced(t Thresholds, reason string) setup.SeverityMeta {
	return setup.SeverityMeta{Level: setup.SeverityModerate, Threshold: t.Moderate, Reason: reason}
}

// Significance maps a severity level to its significance.
func Significance(level setup.SeverityLevel) setup.Significance {
	switch level {
	case setup.SeverityMajor:
		return setup.SignificanceHigh
	case setup.SeverityModerate:
		return setup.SignificanceMedium
	default:
		return setup.SignificanceLow
	}
}
