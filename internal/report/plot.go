package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

const (
	chartWidth   = "100%"
	chartHeight  = "480px"
	labelRotate  = 35
	pageTitle    = "Setup comparison"
	stackByLevel = "severity"
)

// severityColors are the bar colors per severity level.
var severityColors = map[setup.SeverityLevel]string{
	setup.SeverityMajor:    "#e5484d",
	setup.SeverityModerate: "#f5a524",
	setup.SeverityMinor:    "#30a46c",
}

// Plot writes a self-contained HTML page with two charts: numeric deltas
// per parameter colored by severity, and change counts per category
// stacked by severity.
func Plot(w io.Writer, r Report) error {
	page := components.NewPage()
	page.PageTitle = pageTitle
	page.AddCharts(deltaChart(r), categoryChart(r.Deltas))

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

func deltaChart(r Report) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Parameter deltas",
			Subtitle: fmt.Sprintf("%s -> %s", r.Baseline.Name, r.Candidate.Name),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: labelRotate}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "delta"}),
	)

	labels, data := numericBars(r.Deltas)
	bar.SetXAxis(labels).AddSeries("delta", data)

	return bar
}

// numericBars keeps deltas with a numeric value, in input order.
func numericBars(deltas []setup.Delta) ([]string, []opts.BarData) {
	labels := make([]string, 0, len(deltas))
	data := make([]opts.BarData, 0, len(deltas))

	for _, d := range deltas {
		v, ok := d.Delta.Float()
		if !ok {
			continue
		}

		labels = append(labels, d.Label)
		data = append(data, opts.BarData{
			Name:      d.Key,
			Value:     v,
			ItemStyle: &opts.ItemStyle{Color: severityColors[d.Level()]},
		})
	}

	return labels, data
}

func categoryChart(deltas []setup.Delta) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Changes by category"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "8%"}),
	)

	categories, counts := categoryCounts(deltas)
	bar.SetXAxis(categories)

	for _, level := range []setup.SeverityLevel{setup.SeverityMajor, setup.SeverityModerate, setup.SeverityMinor} {
		data := make([]opts.BarData, len(categories))
		for i, c := range categories {
			data[i] = opts.BarData{Value: counts[c][level]}
		}

		bar.AddSeries(string(level), data,
			charts.WithBarChartOpts(opts.BarChart{Stack: stackByLevel}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: severityColors[level]}),
		)
	}

	return bar
}

// categoryCounts tallies deltas per category in canonical category order,
// omitting categories with no changes. Unrecognized categories follow in
// name order.
func categoryCounts(deltas []setup.Delta) ([]string, map[string]map[setup.SeverityLevel]int) {
	counts := make(map[string]map[setup.SeverityLevel]int)

	for _, d := range deltas {
		c := string(d.Category)
		if counts[c] == nil {
			counts[c] = make(map[setup.SeverityLevel]int)
		}

		counts[c][d.Level()]++
	}

	categories := make([]string, 0, len(counts))

	known := make(map[string]bool)

	for _, c := range setup.Categories() {
		known[string(c)] = true

		if _, ok := counts[string(c)]; ok {
			categories = append(categories, string(c))
		}
	}

	extra := make([]string, 0)

	for c := range counts {
		if !known[c] {
			extra = append(extra, c)
		}
	}

	slices.Sort(extra)

	return append(categories, extra...), counts
}
