// Package report renders warehouse query results as standalone HTML charts.
// The pages load Plotly from its CDN, so each file is self-contained and can
// be published as-is (GitHub Pages friendly).
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
)

// Series is one trace on a chart.
type Series struct {
	Name string
	X    []any
	Y    []any
}

// Chart is a renderable chart definition.
type Chart struct {
	Filename string // output file name, e.g. "hires_by_technology.html"
	Title    string
	Kind     string // "bar" or "line"
	Series   []Series
}

var pageTemplate = template.Must(template.New("chart").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://cdn.plot.ly/plotly-2.32.0.min.js"></script>
</head>
<body>
<div id="chart"></div>
<script>
Plotly.newPlot("chart", {{.Traces}}, {{.Layout}});
</script>
</body>
</html>
`))

// Write renders the chart into dir, creating it if needed.
func Write(dir string, c Chart) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	traces := make([]map[string]any, 0, len(c.Series))
	for _, s := range c.Series {
		t := map[string]any{
			"type": c.Kind,
			"x":    s.X,
			"y":    s.Y,
		}
		if c.Kind == "line" {
			t["type"] = "scatter"
			t["mode"] = "lines+markers"
		}
		if s.Name != "" {
			t["name"] = s.Name
		}
		traces = append(traces, t)
	}

	tracesJSON, err := json.Marshal(traces)
	if err != nil {
		return err
	}
	layoutJSON, err := json.Marshal(map[string]any{"title": c.Title})
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, c.Filename))
	if err != nil {
		return err
	}
	defer f.Close()

	data := struct {
		Title  string
		Traces template.JS
		Layout template.JS
	}{
		Title:  c.Title,
		Traces: template.JS(tracesJSON),
		Layout: template.JS(layoutJSON),
	}
	if err := pageTemplate.Execute(f, data); err != nil {
		return err
	}
	return f.Close()
}

// TechnologyChart builds a bar chart from the hires-by-technology result,
// keeping the first topN rows (the query orders by hires already).
func TechnologyChart(res *storage.Result, topN int) Chart {
	x, y := firstTwoColumns(res, topN)
	return Chart{
		Filename: "hires_by_technology.html",
		Title:    "Hires by technology (top 10)",
		Kind:     "bar",
		Series:   []Series{{X: x, Y: y}},
	}
}

// YearChart builds a line chart from the hires-by-year result.
func YearChart(res *storage.Result) Chart {
	x, y := firstTwoColumns(res, 0)
	return Chart{
		Filename: "hires_by_year.html",
		Title:    "Hires by year",
		Kind:     "line",
		Series:   []Series{{X: x, Y: y}},
	}
}

// SeniorityChart builds a bar chart from the hires-by-seniority result.
// A null seniority renders as "Unknown".
func SeniorityChart(res *storage.Result) Chart {
	x, y := firstTwoColumns(res, 0)
	for i, v := range x {
		if v == nil {
			x[i] = "Unknown"
		}
	}
	return Chart{
		Filename: "hires_by_seniority.html",
		Title:    "Hires by seniority",
		Kind:     "bar",
		Series:   []Series{{X: x, Y: y}},
	}
}

// CountryYearChart builds a multi-line chart (one trace per country) from the
// hires-by-country-and-year result with columns [year, country, hires].
func CountryYearChart(res *storage.Result) Chart {
	byCountry := map[string]*Series{}
	var order []string

	for _, row := range res.Rows {
		if len(row) < 3 {
			continue
		}
		country := fmt.Sprint(row[1])
		s := byCountry[country]
		if s == nil {
			s = &Series{Name: country}
			byCountry[country] = s
			order = append(order, country)
		}
		s.X = append(s.X, row[0])
		s.Y = append(s.Y, row[2])
	}

	series := make([]Series, 0, len(order))
	for _, country := range order {
		series = append(series, *byCountry[country])
	}
	return Chart{
		Filename: "hires_by_country_year.html",
		Title:    "Hires by country over the years",
		Kind:     "line",
		Series:   series,
	}
}

func firstTwoColumns(res *storage.Result, topN int) (x, y []any) {
	rows := res.Rows
	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		x = append(x, row[0])
		y = append(y, row[1])
	}
	return x, y
}
