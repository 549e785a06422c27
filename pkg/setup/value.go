package setup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Absent is the placeholder rendered for the side of a comparison on which a
// parameter does not exist.
const Absent = "—"

// ErrInvalidValue is returned when a JSON value is neither a number nor a string.
var ErrInvalidValue = errors.New("setup value must be a number or a string")

// Value is a setup parameter value: either a number or free text.
// The zero value is the number 0.
type Value struct {
	text    string
	num     float64
	numeric bool
	set     bool
}

// Number returns a numeric Value.
func Number(v float64) Value {
	return Value{num: v, numeric: true, set: true}
}

// Text returns a textual Value.
func Text(s string) Value {
	return Value{text: s, set: true}
}

// AbsentValue returns the placeholder used for a missing side.
func AbsentValue() Value {
	return Text(Absent)
}

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool {
	return v.numeric || !v.set
}

// Float returns the numeric value and true, or 0 and false for text values.
func (v Value) Float() (float64, bool) {
	if !v.IsNumber() {
		return 0, false
	}

	return v.num, true
}

// String formats the value the way it is shown to users: shortest
// round-tripping decimal for numbers, the raw text otherwise.
func (v Value) String() string {
	if v.IsNumber() {
		return FormatNumber(v.num)
	}

	return v.text
}

// Equal reports whether two values hold the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.IsNumber() != other.IsNumber() {
		return false
	}

	if v.IsNumber() {
		return v.num == other.num
	}

	return v.text == other.text
}

// MarshalJSON encodes numbers as JSON numbers and text as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.IsNumber() {
		return json.Marshal(v.text)
	}

	if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
		return json.Marshal(FormatNumber(v.num))
	}

	return []byte(FormatNumber(v.num)), nil
}

// UnmarshalJSON accepts a JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrInvalidValue
	}

	if trimmed[0] == '"' {
		var s string

		err := json.Unmarshal(trimmed, &s)
		if err != nil {
			return fmt.Errorf("decode text value: %w", err)
		}

		*v = Text(s)

		return nil
	}

	f, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidValue, trimmed)
	}

	*v = Number(f)

	return nil
}

// MarshalYAML emits the underlying float or string.
func (v Value) MarshalYAML() (any, error) {
	if v.IsNumber() {
		return v.num, nil
	}

	return v.text, nil
}

// FormatNumber renders f with the fewest digits that round-trip.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseValue converts raw text into a number when it parses as one,
// and keeps it as text otherwise.
func ParseValue(raw string) Value {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Text(raw)
	}

	return Number(f)
}
