// Package report renders comparison results as text tables, JSON, YAML or
// an HTML chart page, and exports them to files.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tfunk1030/setupcompare/internal/setupfile"
	"github.com/tfunk1030/setupcompare/pkg/analysis"
	"github.com/tfunk1030/setupcompare/pkg/setup"
	"github.com/tfunk1030/setupcompare/pkg/severity"
)

// Format names an output encoding.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatPlot Format = "plot"
)

// Formats lists every supported output format.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatPlot}
}

// ErrUnknownFormat indicates a format outside Formats.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(name)
	if !slices.Contains(Formats(), f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}

	return f, nil
}

// Report is a rendered comparison: the analysis result plus the context it
// ran under.
type Report struct {
	analysis.Result `yaml:",inline"`

	Profile     *setup.Profile          `json:"profile,omitempty"   yaml:"profile,omitempty"`
	Thresholds  severity.Thresholds     `json:"thresholds"          yaml:"thresholds"`
	Telemetry   *setup.TelemetrySummary `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
	Lines       *setupfile.LineStats    `json:"lines,omitempty"     yaml:"lines,omitempty"`
	GeneratedAt time.Time               `json:"generatedAt"         yaml:"generatedAt"`
}

// Options control text rendering.
type Options struct {
	// NoColor disables ANSI colors in text output.
	NoColor bool
}

// Write renders r to w in the given format.
func Write(w io.Writer, format Format, r Report, opts Options) error {
	switch format {
	case FormatText:
		return Text(w, r, opts)
	case FormatJSON:
		return JSON(w, r)
	case FormatYAML:
		return YAML(w, r)
	case FormatPlot:
		return Plot(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSON writes r as indented JSON.
func JSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(r)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// YAML writes r as YAML.
func YAML(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(r)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return nil
}
