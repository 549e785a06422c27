package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

const msgNoParameters = "No parameters to compare."

// palette colors severity levels and section headings.
type palette struct {
	heading  *color.Color
	major    *color.Color
	moderate *color.Color
	minor    *color.Color
	missing  *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		heading:  color.New(color.Bold),
		major:    color.New(color.FgRed, color.Bold),
		moderate: color.New(color.FgYellow),
		minor:    color.New(color.FgGreen),
		missing:  color.New(color.FgCyan),
	}

	if noColor {
		for _, c := range []*color.Color{p.heading, p.major, p.moderate, p.minor, p.missing} {
			c.DisableColor()
		}
	}

	return p
}

func (p palette) level(level setup.SeverityLevel) *color.Color {
	switch level {
	case setup.SeverityMajor:
		return p.major
	case setup.SeverityModerate:
		return p.moderate
	default:
		return p.minor
	}
}

// Text writes a human-readable report: a header, the delta table and the summary.
func Text(w io.Writer, r Report, opts Options) error {
	p := newPalette(opts.NoColor)

	var b strings.Builder

	fmt.Fprintf(&b, "%s %s -> %s\n", p.heading.Sprint("Comparing"), r.Baseline.Name, r.Candidate.Name)

	if r.Profile != nil && !r.Profile.IsZero() {
		fmt.Fprintf(&b, "Profile: %s\n", profileLine(*r.Profile))
	}

	if r.Telemetry != nil {
		fmt.Fprintf(&b, "Telemetry: %s (%d laps)\n", r.Telemetry.SourceName, len(r.Telemetry.Laps))
	}

	if r.Lines != nil {
		fmt.Fprintf(&b, "Lines: +%d -%d ~%d\n", r.Lines.Added, r.Lines.Removed, r.Lines.Changed)
	}

	b.WriteString("\n")

	if len(r.Deltas) == 0 {
		b.WriteString(msgNoParameters + "\n")
	} else {
		b.WriteString(deltaTable(r.Deltas, p))
		b.WriteString("\n")
	}

	s := r.Summary

	fmt.Fprintf(&b, "\n%s\n", p.heading.Sprint("Summary"))
	fmt.Fprintf(&b, "  %s\n", s.CombinedShort)

	if len(s.Interactions) > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.heading.Sprint("Interactions"))

		for _, line := range s.Interactions {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", p.heading.Sprint("Recommendations"))

	for _, line := range s.Recommendations {
		fmt.Fprintf(&b, "  - %s\n", line)
	}

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

func deltaTable(deltas []setup.Delta, p palette) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"Parameter", "Category", "Baseline", "Candidate", "Delta", "Severity", "Insight"})

	counts := make(map[setup.SeverityLevel]int)

	for _, d := range deltas {
		level := d.Level()
		counts[level]++

		severityCell := p.level(level).Sprint(string(level))
		if d.MissingSide != "" {
			severityCell += " " + p.missing.Sprintf("(no %s)", d.MissingSide)
		}

		tbl.AppendRow(table.Row{
			d.Label,
			string(d.Category),
			withUnit(d.PreviousValue, d.Unit),
			withUnit(d.NewValue, d.Unit),
			d.Delta.String(),
			severityCell,
			insight(d),
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d changes", len(deltas)), "", "", "", "",
		fmt.Sprintf("%d/%d/%d", counts[setup.SeverityMajor], counts[setup.SeverityModerate], counts[setup.SeverityMinor]),
		"",
	})

	return tbl.Render()
}

func insight(d setup.Delta) string {
	if d.Interpretation != nil {
		return d.Interpretation.Short
	}

	return d.Insight
}

func withUnit(v setup.Value, unit string) string {
	s := v.String()
	if unit == "" || !v.IsNumber() {
		return s
	}

	return s + " " + unit
}

func profileLine(p setup.Profile) string {
	parts := make([]string, 0, 3)

	for _, s := range []string{p.CarModel, p.TrackName, p.TrackCategory} {
		if s != "" {
			parts = append(parts, s)
		}
	}

	return strings.Join(parts, " / ")
}
