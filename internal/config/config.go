// Package config loads application configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all settings the ETL binary needs for one run.
type Config struct {
	// InputCSV is the path of the candidates CSV file.
	InputCSV string
	// CSVDelimiter is the field separator of the input file.
	CSVDelimiter string

	// Backend selects the warehouse backend: "sqlite", "postgres" or "mssql".
	Backend string
	// DSN is the backend connection string (file path for sqlite).
	DSN string

	// BatchSize caps rows per bulk INSERT statement.
	BatchSize int

	// MetricsBackend selects the metrics sink: "datadog" or "none".
	MetricsBackend string
	// MetricsTags is a comma-separated list of extra metric tags.
	MetricsTags string

	// ReportDir is where HTML chart files are written.
	ReportDir string
}

// Load reads the .env file (if present) and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file found, using system env vars")
	}

	return &Config{
		InputCSV:     getEnv("INPUT_CSV", "data/candidates.csv"),
		CSVDelimiter: getEnv("CSV_DELIMITER", ";"),

		Backend: getEnv("DW_BACKEND", "sqlite"),
		DSN:     getEnv("DW_DSN", "dw/workshop1_dw.sqlite"),

		BatchSize: getEnvInt("BATCH_SIZE", 512),

		MetricsBackend: getEnv("METRICS_BACKEND", "none"),
		MetricsTags:    getEnv("METRICS_TAGS", ""),

		ReportDir: getEnv("REPORT_DIR", "docs"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}
