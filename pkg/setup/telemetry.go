package setup

import (
	"encoding/json"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// CornerTemps holds the inner, middle and outer tread temperatures of one tyre.
type CornerTemps struct {
	Inner  float64 `json:"inner"  yaml:"inner"`
	Middle float64 `json:"middle" yaml:"middle"`
	Outer  float64 `json:"outer"  yaml:"outer"`
}

// TyreTemps holds tread temperatures for all four corners.
type TyreTemps struct {
	FrontLeft  CornerTemps `json:"frontLeft"  yaml:"frontLeft"`
	FrontRight CornerTemps `json:"frontRight" yaml:"frontRight"`
	RearLeft   CornerTemps `json:"rearLeft"   yaml:"rearLeft"`
	RearRight  CornerTemps `json:"rearRight"  yaml:"rearRight"`
}

// WheelSpeeds holds per-wheel speeds.
type WheelSpeeds struct {
	FrontLeft  float64 `json:"frontLeft"  yaml:"frontLeft"`
	FrontRight float64 `json:"frontRight" yaml:"frontRight"`
	RearLeft   float64 `json:"rearLeft"   yaml:"rearLeft"`
	RearRight  float64 `json:"rearRight"  yaml:"rearRight"`
}

// LapSample is one lap of telemetry.
type LapSample struct {
	Lap         int         `json:"lap"         yaml:"lap"`
	LapTimeMs   float64     `json:"lapTimeMs"   yaml:"lapTimeMs"`
	TyreTemps   TyreTemps   `json:"tyreTemps"   yaml:"tyreTemps"`
	WheelSpeeds WheelSpeeds `json:"wheelSpeeds" yaml:"wheelSpeeds"`
}

// TelemetrySummary is a decoded telemetry upload.
type TelemetrySummary struct {
	ID           string      `json:"id"           yaml:"id"`
	ComparisonID string      `json:"comparisonId" yaml:"comparisonId"`
	SourceName   string      `json:"sourceName"   yaml:"sourceName"`
	Laps         []LapSample `json:"laps"         yaml:"laps"`
	CreatedAt    time.Time   `json:"createdAt"    yaml:"createdAt"`
}

// TyreEdges are per-axle averages of the inner and outer tread temperatures.
type TyreEdges struct {
	FrontOuter float64 `json:"frontOuter" yaml:"frontOuter"`
	FrontInner float64 `json:"frontInner" yaml:"frontInner"`
	RearOuter  float64 `json:"rearOuter"  yaml:"rearOuter"`
	RearInner  float64 `json:"rearInner"  yaml:"rearInner"`
}

// Readings missing from a telemetry export are NaN. JSON has no NaN, so
// they are encoded as null and null decodes back to NaN.

type cornerTempsJSON struct {
	Inner  *float64 `json:"inner"`
	Middle *float64 `json:"middle"`
	Outer  *float64 `json:"outer"`
}

func (c CornerTemps) MarshalJSON() ([]byte, error) {
	return json.Marshal(cornerTempsJSON{Inner: reading(c.Inner), Middle: reading(c.Middle), Outer: reading(c.Outer)})
}

func (c *CornerTemps) UnmarshalJSON(data []byte) error {
	var raw cornerTempsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = CornerTemps{Inner: fromReading(raw.Inner), Middle: fromReading(raw.Middle), Outer: fromReading(raw.Outer)}

	return nil
}

type wheelSpeedsJSON struct {
	FrontLeft  *float64 `json:"frontLeft"`
	FrontRight *float64 `json:"frontRight"`
	RearLeft   *float64 `json:"rearLeft"`
	RearRight  *float64 `json:"rearRight"`
}

func (w WheelSpeeds) MarshalJSON() ([]byte, error) {
	return json.Marshal(wheelSpeedsJSON{
		FrontLeft:  reading(w.FrontLeft),
		FrontRight: reading(w.FrontRight),
		RearLeft:   reading(w.RearLeft),
		RearRight:  reading(w.RearRight),
	})
}

func (w *WheelSpeeds) UnmarshalJSON(data []byte) error {
	var raw wheelSpeedsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*w = WheelSpeeds{
		FrontLeft:  fromReading(raw.FrontLeft),
		FrontRight: fromReading(raw.FrontRight),
		RearLeft:   fromReading(raw.RearLeft),
		RearRight:  fromReading(raw.RearRight),
	}

	return nil
}

func reading(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}

	return &f
}

func fromReading(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}

	return *p
}

// Edges averages inner and outer temperatures per axle over every lap, both
// sides of the axle contributing equally. Missing readings are skipped; an
// edge with no readings at all is NaN. It reports false when there are no laps.
func Edges(laps []LapSample) (TyreEdges, bool) {
	if len(laps) == 0 {
		return TyreEdges{}, false
	}

	n := 2 * len(laps)
	frontOuter := make([]float64, 0, n)
	frontInner := make([]float64, 0, n)
	rearOuter := make([]float64, 0, n)
	rearInner := make([]float64, 0, n)

	for _, lap := range laps {
		t := lap.TyreTemps
		frontOuter = appendFinite(frontOuter, t.FrontLeft.Outer, t.FrontRight.Outer)
		frontInner = appendFinite(frontInner, t.FrontLeft.Inner, t.FrontRight.Inner)
		rearOuter = appendFinite(rearOuter, t.RearLeft.Outer, t.RearRight.Outer)
		rearInner = appendFinite(rearInner, t.RearLeft.Inner, t.RearRight.Inner)
	}

	return TyreEdges{
		FrontOuter: mean(frontOuter),
		FrontInner: mean(frontInner),
		RearOuter:  mean(rearOuter),
		RearInner:  mean(rearInner),
	}, true
}

func appendFinite(dst []float64, values ...float64) []float64 {
	for _, v := range values {
		if reading(v) != nil {
			dst = append(dst, v)
		}
	}

	return dst
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}

	return stat.Mean(xs, nil)
}
