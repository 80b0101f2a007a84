package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
)

func techResult() *storage.Result {
	return &storage.Result{
		Columns: []string{"technology", "hires"},
		Rows: [][]any{
			{"Go", int64(12)},
			{"Python", int64(9)},
			{"Rust", int64(3)},
		},
	}
}

func TestWriteChart(t *testing.T) {
	dir := t.TempDir()

	c := TechnologyChart(techResult(), 2)
	if err := Write(dir, c); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, c.Filename))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	html := string(raw)

	if !strings.Contains(html, "cdn.plot.ly") {
		t.Error("page does not load Plotly from CDN")
	}
	if !strings.Contains(html, `"Go"`) || !strings.Contains(html, `"Python"`) {
		t.Errorf("chart data missing:\n%s", html)
	}
	// topN=2 excludes Rust
	if strings.Contains(html, "Rust") {
		t.Error("topN truncation not applied")
	}
	if !strings.Contains(html, `"bar"`) {
		t.Error("bar trace type missing")
	}
}

func TestWriteCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "docs")

	if err := Write(dir, YearChart(&storage.Result{
		Columns: []string{"year", "hires"},
		Rows:    [][]any{{int64(2023), int64(5)}},
	})); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "hires_by_year.html")); err != nil {
		t.Errorf("chart file missing: %v", err)
	}
}

func TestYearChartIsLine(t *testing.T) {
	c := YearChart(&storage.Result{
		Columns: []string{"year", "hires"},
		Rows:    [][]any{{int64(2023), int64(5)}, {int64(2024), int64(7)}},
	})
	if c.Kind != "line" || len(c.Series) != 1 || len(c.Series[0].X) != 2 {
		t.Errorf("chart = %+v", c)
	}
}

func TestSeniorityChartNullBecomesUnknown(t *testing.T) {
	c := SeniorityChart(&storage.Result{
		Columns: []string{"seniority", "hires"},
		Rows:    [][]any{{nil, int64(2)}, {"Junior", int64(5)}},
	})
	if c.Series[0].X[0] != "Unknown" {
		t.Errorf("null seniority = %v, want Unknown", c.Series[0].X[0])
	}
}

func TestCountryYearChartSeriesPerCountry(t *testing.T) {
	res := &storage.Result{
		Columns: []string{"year", "country", "hires"},
		Rows: [][]any{
			{int64(2023), "Brazil", int64(4)},
			{int64(2023), "Ecuador", int64(2)},
			{int64(2024), "Brazil", int64(6)},
		},
	}

	c := CountryYearChart(res)
	if len(c.Series) != 2 {
		t.Fatalf("series = %+v", c.Series)
	}
	var brazil *Series
	for i := range c.Series {
		if c.Series[i].Name == "Brazil" {
			brazil = &c.Series[i]
		}
	}
	if brazil == nil || len(brazil.X) != 2 {
		t.Fatalf("brazil series = %+v", c.Series)
	}
}
