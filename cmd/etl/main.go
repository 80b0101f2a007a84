package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ShadowBlack33/workshop1-etl/internal/config"
	"github.com/ShadowBlack33/workshop1-etl/internal/kpi"
	"github.com/ShadowBlack33/workshop1-etl/internal/metrics"
	"github.com/ShadowBlack33/workshop1-etl/internal/metrics/datadog"
	csvparser "github.com/ShadowBlack33/workshop1-etl/internal/parser/csv"
	"github.com/ShadowBlack33/workshop1-etl/internal/report"
	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
	"github.com/ShadowBlack33/workshop1-etl/internal/transform"
	"github.com/ShadowBlack33/workshop1-etl/internal/warehouse"

	// register all backends with the storage factory.
	_ "github.com/ShadowBlack33/workshop1-etl/internal/storage/all"
)

// main runs the full pipeline: read the candidates CSV, canonicalize and
// normalize it, rebuild the star schema, then print KPIs and write charts.
func main() {
	cfg := config.Load()

	var (
		input          string
		backend        string
		dsn            string
		metricsBackend string
		reportDir      string
		noKPIs         bool
		noCharts       bool
	)
	flag.StringVar(&input, "input", cfg.InputCSV, "candidates CSV path")
	flag.StringVar(&backend, "backend", cfg.Backend, "warehouse backend (sqlite, postgres, mssql)")
	flag.StringVar(&dsn, "dsn", cfg.DSN, "warehouse DSN (file path for sqlite)")
	flag.StringVar(&metricsBackend, "metrics-backend", cfg.MetricsBackend, "metrics backend (datadog, none)")
	flag.StringVar(&reportDir, "report-dir", cfg.ReportDir, "directory for HTML charts")
	flag.BoolVar(&noKPIs, "no-kpis", false, "skip printing KPI tables")
	flag.BoolVar(&noCharts, "no-charts", false, "skip writing HTML charts")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	switch metricsBackend {
	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: "workshop1-etl",
			Tags:    datadog.ParseTagsCSV(cfg.MetricsTags),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}
	case "", "none":
		// metrics disabled; nop backend remains
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", metricsBackend)
	}

	ctx := context.Background()
	start := time.Now()

	f, err := os.Open(input)
	if err != nil {
		fatalf("open input: %v", err)
	}

	comma := ';'
	if cfg.CSVDelimiter != "" {
		comma = rune(cfg.CSVDelimiter[0])
	}
	raw, err := csvparser.Read(f, csvparser.Options{Comma: comma}, func(line int, err error) {
		log.Printf("input: skipping line %d: %v", line, err)
	})
	f.Close()
	if err != nil {
		fatalf("parse input: %v", err)
	}

	canonical := transform.NewCanonicalizer().Apply(raw)
	clean := transform.NewClassifier().Apply(transform.Normalize(canonical))

	if backend == "sqlite" {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fatalf("create warehouse dir: %v", err)
			}
		}
	}

	repo, err := storage.New(ctx, storage.Config{Kind: backend, DSN: dsn})
	if err != nil {
		fatalf("open warehouse: %v", err)
	}
	defer repo.Close()

	rb := warehouse.Rebuilder{
		Repo:      repo,
		Logger:    log.Default(),
		BatchSize: cfg.BatchSize,
	}
	stats, err := rb.Run(ctx, canonical, clean)
	if err != nil {
		fatalf("rebuild: %v", err)
	}
	log.Printf("rebuild: raw=%d clean=%d facts=%d dropped=%d",
		stats.RawRows, stats.CleanRows, stats.FactsInserted, stats.FactsDropped)

	if !noKPIs {
		if err := kpi.RenderAll(ctx, os.Stdout, repo); err != nil {
			fatalf("kpis: %v", err)
		}
	}

	if !noCharts {
		if err := writeCharts(ctx, repo, reportDir); err != nil {
			fatalf("charts: %v", err)
		}
		log.Printf("charts written to %s", reportDir)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// writeCharts renders the chart set from the reporting queries.
func writeCharts(ctx context.Context, repo storage.Repository, dir string) error {
	queries := map[string]kpi.Query{}
	for _, q := range kpi.Queries() {
		queries[q.Key] = q
	}

	run := func(key string) (*storage.Result, error) {
		q, ok := queries[key]
		if !ok {
			return nil, fmt.Errorf("unknown query %q", key)
		}
		return kpi.Run(ctx, repo, q)
	}

	tech, err := run("hires_by_technology")
	if err != nil {
		return err
	}
	year, err := run("hires_by_year")
	if err != nil {
		return err
	}
	seniority, err := run("hires_by_seniority")
	if err != nil {
		return err
	}
	countryYear, err := run("hires_by_country_year")
	if err != nil {
		return err
	}

	charts := []report.Chart{
		report.TechnologyChart(tech, 10),
		report.YearChart(year),
		report.SeniorityChart(seniority),
		report.CountryYearChart(countryYear),
	}
	for _, c := range charts {
		if err := report.Write(dir, c); err != nil {
			return err
		}
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
