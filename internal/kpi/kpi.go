// Package kpi holds the reporting queries that run against the finished
// warehouse, and a plain-text renderer for their results.
package kpi

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
)

// Query is one reporting query. MaxRows > 0 truncates the rendered output
// (the SQL itself always returns the full result).
type Query struct {
	Key     string
	Title   string
	SQL     string
	MaxRows int
}

// Queries returns the reporting set in display order. All of them read only
// the star schema; staging tables are not consulted.
func Queries() []Query {
	return []Query{
		{
			Key:     "hires_by_technology",
			Title:   "Hires by technology (top 15)",
			MaxRows: 15,
			SQL: `
SELECT t.technology, SUM(f.hired) AS hires, COUNT(*) AS total,
       ROUND(100.0*SUM(f.hired)/COUNT(*),2) AS hire_rate_pct
FROM FactHires f
JOIN DimTechnology t ON f.technology_id = t.technology_id
GROUP BY t.technology ORDER BY hires DESC;`,
		},
		{
			Key:   "hires_by_year",
			Title: "Hires by year",
			SQL: `
SELECT d.year, SUM(f.hired) AS hires, COUNT(*) AS total,
       ROUND(100.0*SUM(f.hired)/COUNT(*),2) AS hire_rate_pct
FROM FactHires f
JOIN DimDate d ON f.date_id = d.date_id
GROUP BY d.year ORDER BY d.year;`,
		},
		{
			Key:   "hires_by_seniority",
			Title: "Hires by seniority",
			SQL: `
SELECT c.seniority, SUM(f.hired) AS hires, COUNT(*) AS total,
       ROUND(100.0*SUM(f.hired)/COUNT(*),2) AS hire_rate_pct
FROM FactHires f
JOIN DimCandidate c ON f.candidate_id = c.candidate_id
GROUP BY c.seniority ORDER BY hires DESC;`,
		},
		{
			Key:   "hires_by_country_year",
			Title: "Hires by country over the years",
			SQL: `
SELECT d.year, co.country, SUM(f.hired) AS hires
FROM FactHires f
JOIN DimDate d ON f.date_id = d.date_id
JOIN DimCountry co ON f.country_id = co.country_id
WHERE co.country IN ('United States','Brazil','Colombia','Ecuador')
GROUP BY d.year, co.country ORDER BY d.year, hires DESC;`,
		},
		{
			Key:     "hire_rate_by_country",
			Title:   "Hire rate by country (top 10)",
			MaxRows: 10,
			SQL: `
SELECT co.country, SUM(f.hired) AS hires, COUNT(*) AS total,
       ROUND(100.0*SUM(f.hired)/COUNT(*),2) AS hire_rate_pct
FROM FactHires f JOIN DimCountry co ON f.country_id = co.country_id
GROUP BY co.country ORDER BY hire_rate_pct DESC;`,
		},
		{
			Key:   "avg_scores_by_hired",
			Title: "Average scores, hired vs not",
			SQL: `
SELECT hired,
       ROUND(AVG(code_challenge_score),2) AS avg_code_challenge,
       ROUND(AVG(technical_interview_score),2) AS avg_tech_interview
FROM FactHires GROUP BY hired ORDER BY hired DESC;`,
		},
	}
}

// Run executes one query against the warehouse.
func Run(ctx context.Context, repo storage.Repository, q Query) (*storage.Result, error) {
	res, err := repo.Query(ctx, q.SQL)
	if err != nil {
		return nil, fmt.Errorf("kpi %s: %w", q.Key, err)
	}
	return res, nil
}

// Render writes one result as an aligned text table.
func Render(w io.Writer, q Query, res *storage.Result) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", q.Title); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range res.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)

	rows := res.Rows
	if q.MaxRows > 0 && len(rows) > q.MaxRows {
		rows = rows[:q.MaxRows]
	}
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, formatCell(v))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// RenderAll runs and renders every reporting query in order.
func RenderAll(ctx context.Context, w io.Writer, repo storage.Repository) error {
	for _, q := range Queries() {
		res, err := Run(ctx, repo, q)
		if err != nil {
			return err
		}
		if err := Render(w, q, res); err != nil {
			return err
		}
	}
	return nil
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(t, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', 2, 64)
	default:
		return fmt.Sprint(v)
	}
}
