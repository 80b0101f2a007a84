package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	// ensure a clean environment for the keys under test
	for _, k := range []string{"INPUT_CSV", "CSV_DELIMITER", "DW_BACKEND", "DW_DSN", "BATCH_SIZE", "METRICS_BACKEND", "REPORT_DIR"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.InputCSV != "data/candidates.csv" {
		t.Errorf("InputCSV = %q", cfg.InputCSV)
	}
	if cfg.CSVDelimiter != ";" {
		t.Errorf("CSVDelimiter = %q", cfg.CSVDelimiter)
	}
	if cfg.Backend != "sqlite" || cfg.DSN != "dw/workshop1_dw.sqlite" {
		t.Errorf("backend = %q dsn = %q", cfg.Backend, cfg.DSN)
	}
	if cfg.BatchSize != 512 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if cfg.MetricsBackend != "none" {
		t.Errorf("MetricsBackend = %q", cfg.MetricsBackend)
	}
	if cfg.ReportDir != "docs" {
		t.Errorf("ReportDir = %q", cfg.ReportDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DW_BACKEND", "postgres")
	t.Setenv("DW_DSN", "postgres://localhost/dw")
	t.Setenv("BATCH_SIZE", "100")

	cfg := Load()

	if cfg.Backend != "postgres" {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.DSN != "postgres://localhost/dw" {
		t.Errorf("DSN = %q", cfg.DSN)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("BATCH_SIZE", "lots")

	cfg := Load()
	if cfg.BatchSize != 512 {
		t.Errorf("BatchSize = %d, want default on bad value", cfg.BatchSize)
	}
}
