package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ShadowBlack33/workshop1-etl/internal/dataset"
	"github.com/ShadowBlack33/workshop1-etl/internal/metrics"
	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
	"github.com/ShadowBlack33/workshop1-etl/internal/transform"
)

// Logger is the minimal logging interface the rebuild needs. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Stats summarizes one warehouse rebuild.
type Stats struct {
	RawRows       int64
	CleanRows     int64
	FactsInserted int64
	FactsDropped  int64
}

// Rebuilder drops and reloads the whole star schema from one pair of staged
// datasets: the canonicalized raw rows and the normalized, classified clean
// rows.
//
// The entire rebuild (drop, create, stage, dimensions, facts, indexes) runs
// inside a single transaction, so a failed run leaves the previous warehouse
// contents untouched.
type Rebuilder struct {
	Repo      storage.Repository
	Logger    Logger
	BatchSize int
}

// Run executes the full rebuild and returns its stats.
func (r *Rebuilder) Run(ctx context.Context, raw, clean *dataset.Dataset) (Stats, error) {
	l := r.Logger
	if l == nil {
		l = nopLogger{}
	}

	var stats Stats

	if err := r.Repo.Begin(ctx); err != nil {
		return stats, fmt.Errorf("begin rebuild: %w", err)
	}
	defer r.Repo.Rollback(ctx)

	stage := func(name string, fn func() error) error {
		t0 := time.Now()
		if err := fn(); err != nil {
			l.Printf("stage=%s failed duration=%s err=%v", name, time.Since(t0).Round(time.Millisecond), err)
			return fmt.Errorf("stage %s: %w", name, err)
		}
		l.Printf("stage=%s ok duration=%s", name, time.Since(t0).Round(time.Millisecond))
		return nil
	}

	if err := stage("reset", func() error {
		return r.Repo.Reset(ctx, TableSpecs())
	}); err != nil {
		return stats, err
	}

	if err := stage("stage_raw", func() error {
		rows := projectRows(raw, transform.CanonicalColumns())
		n, err := r.Repo.InsertRows(ctx, TableRawCandidates, transform.CanonicalColumns(), rows, false)
		stats.RawRows = n
		return err
	}); err != nil {
		return stats, err
	}

	if err := stage("stage_clean", func() error {
		rows := cleanRows(clean)
		n, err := r.Repo.InsertRows(ctx, TableCleanCandidates, CleanColumns(), rows, false)
		stats.CleanRows = n
		return err
	}); err != nil {
		return stats, err
	}

	if err := stage("dimensions", func() error {
		return Builder{}.Load(ctx, r.Repo, clean)
	}); err != nil {
		return stats, err
	}

	var lookups *Lookups
	if err := stage("lookups", func() error {
		var err error
		lookups, err = LoadLookups(ctx, r.Repo)
		return err
	}); err != nil {
		return stats, err
	}

	if err := stage("facts", func() error {
		asm := Assembler{BatchSize: r.BatchSize}
		rows, dropped := asm.Assemble(clean, lookups)
		stats.FactsDropped = dropped

		n, err := asm.Insert(ctx, r.Repo, rows)
		stats.FactsInserted = n
		return err
	}); err != nil {
		return stats, err
	}

	if err := stage("indexes", func() error {
		return r.Repo.EnsureIndexes(ctx, TableFactHires, factHiresSpec().Indexes)
	}); err != nil {
		return stats, err
	}

	if err := r.Repo.Commit(ctx); err != nil {
		return stats, fmt.Errorf("commit rebuild: %w", err)
	}

	metrics.IncCounter("etl.records.total", float64(stats.RawRows), metrics.Labels{"kind": "raw"})
	metrics.IncCounter("etl.records.total", float64(stats.CleanRows), metrics.Labels{"kind": "clean"})
	metrics.IncCounter("etl.facts.inserted.total", float64(stats.FactsInserted), nil)
	metrics.IncCounter("etl.facts.dropped.total", float64(stats.FactsDropped), nil)

	return stats, nil
}

// projectRows aligns a dataset's rows onto the given column order. Columns
// absent from the dataset come out nil; columns outside the list are dropped.
func projectRows(ds *dataset.Dataset, columns []string) [][]any {
	src := make([]int, len(columns))
	for i, c := range columns {
		src[i] = ds.ColumnIndex(c)
	}

	rows := make([][]any, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		out := make([]any, len(columns))
		for i := range columns {
			if src[i] >= 0 {
				out[i] = row[src[i]]
			}
		}
		rows = append(rows, out)
	}
	return rows
}

// cleanRows projects the classified dataset onto CleanColumns and fills in
// the derived yoe_band, which exists only in staging.
func cleanRows(ds *dataset.Dataset) [][]any {
	columns := CleanColumns()
	rows := projectRows(ds, columns)

	yoeIx, bandIx := -1, -1
	for i, c := range columns {
		switch c {
		case transform.ColYoe:
			yoeIx = i
		case transform.ColYoeBand:
			bandIx = i
		}
	}
	if yoeIx < 0 || bandIx < 0 {
		return rows
	}

	for _, row := range rows {
		if yoe, ok := row[yoeIx].(int64); ok {
			row[bandIx] = transform.YoeBand(yoe)
		}
	}
	return rows
}
