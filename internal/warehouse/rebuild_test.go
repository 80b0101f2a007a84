package warehouse

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ShadowBlack33/workshop1-etl/internal/dataset"
	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
	_ "github.com/ShadowBlack33/workshop1-etl/internal/storage/sqlite"
	"github.com/ShadowBlack33/workshop1-etl/internal/transform"
)

func TestRebuildStagesAndStats(t *testing.T) {
	repo := newFakeRepo()

	clean := cleanDataset(
		cleanRow("a@x.com", "Go", "Brazil", "2023-01-15", 1),
		cleanRow("b@x.com", "Python", "Ecuador", "2023-01-15", 0),
	)

	rb := Rebuilder{Repo: repo}
	stats, err := rb.Run(context.Background(), clean, clean)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !repo.begun || !repo.committed || repo.rolledBack {
		t.Fatalf("tx state: begun=%v committed=%v rolledBack=%v",
			repo.begun, repo.committed, repo.rolledBack)
	}
	if len(repo.resetTables) != len(TableSpecs()) {
		t.Fatalf("reset tables = %v", repo.resetTables)
	}

	// staging first, then dimensions (idempotent), then facts
	order := make([]string, 0, len(repo.inserts))
	for _, ins := range repo.inserts {
		order = append(order, ins.table)
	}
	want := []string{
		TableRawCandidates, TableCleanCandidates,
		TableDimCandidate, TableDimTechnology, TableDimCountry, TableDimDate,
		TableFactHires,
	}
	if len(order) != len(want) {
		t.Fatalf("insert order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("insert order = %v, want %v", order, want)
		}
	}
	for _, ins := range repo.inserts {
		isDim := ins.table == TableDimCandidate || ins.table == TableDimTechnology ||
			ins.table == TableDimCountry || ins.table == TableDimDate
		if ins.ignore != isDim {
			t.Errorf("table %s ignoreConflicts=%v", ins.table, ins.ignore)
		}
	}

	if len(repo.indexTables) != 1 || repo.indexTables[0] != TableFactHires {
		t.Errorf("indexes on %v, want FactHires", repo.indexTables)
	}

	if stats.RawRows != 2 || stats.CleanRows != 2 {
		t.Errorf("staging stats = %+v", stats)
	}
	if stats.FactsInserted != 2 || stats.FactsDropped != 0 {
		t.Errorf("fact stats = %+v", stats)
	}
}

func TestRebuildRollsBackOnFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr = errors.New("disk full")

	rb := Rebuilder{Repo: repo}
	if _, err := rb.Run(context.Background(), cleanDataset(), cleanDataset()); err == nil {
		t.Fatal("expected error")
	}
	if repo.committed {
		t.Error("commit after failed stage")
	}
	if !repo.rolledBack {
		t.Error("failed rebuild must roll back")
	}
}

// TestRebuildEndToEnd runs the whole pipeline against a real sqlite file:
// two input rows, one with an unparsable date. The warehouse must end with
// one fact row (hired) while the bad-date candidate still reaches
// DimCandidate.
func TestRebuildEndToEnd(t *testing.T) {
	ctx := context.Background()

	raw := dataset.New([]string{"Email", "Tech", "Country", "Code Challenge Score", "Technical Interview Score", "Application Date"})
	raw.Append([]any{"a@x.com", "Python", "USA", "8", "8", "2023-01-15"})
	raw.Append([]any{"b@x.com", "Go", "Brazil", "5", "9", "bad-date"})

	canonical := transform.NewCanonicalizer().Apply(raw)
	clean := transform.NewClassifier().Apply(transform.Normalize(canonical))

	dsn := filepath.Join(t.TempDir(), "dw.sqlite")
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer repo.Close()

	rb := Rebuilder{Repo: repo}
	stats, err := rb.Run(ctx, canonical, clean)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.RawRows != 2 || stats.CleanRows != 2 {
		t.Fatalf("staging stats = %+v", stats)
	}
	if stats.FactsInserted != 1 || stats.FactsDropped != 1 {
		t.Fatalf("fact stats = %+v, want 1 inserted 1 dropped", stats)
	}

	res, err := repo.Query(ctx, `
		SELECT c.email, f.hired
		FROM FactHires f JOIN DimCandidate c ON f.candidate_id = c.candidate_id`)
	if err != nil {
		t.Fatalf("Query facts: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("fact rows = %v, want 1", res.Rows)
	}
	if res.Rows[0][0] != "a@x.com" || res.Rows[0][1] != int64(1) {
		t.Errorf("fact row = %v, want a@x.com hired", res.Rows[0])
	}

	// the USA alias folded into the country dimension
	countries, err := repo.SelectKeyValue(ctx, TableDimCountry, transform.ColCountry, ColCountryID)
	if err != nil {
		t.Fatalf("SelectKeyValue countries: %v", err)
	}
	if _, ok := countries["United States"]; !ok {
		t.Errorf("countries = %v, want United States", countries)
	}

	// b@x.com still reaches DimCandidate even though its fact row was dropped
	candidates, err := repo.SelectKeyValue(ctx, TableDimCandidate, transform.ColEmail, ColCandidateID)
	if err != nil {
		t.Fatalf("SelectKeyValue candidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Errorf("candidates = %v, want both emails", candidates)
	}
}

func TestRebuildIdempotentDimensions(t *testing.T) {
	ctx := context.Background()

	raw := dataset.New(transform.CanonicalColumns())
	raw.Append([]any{"Ada", "L", "a@x.com", "Junior", "2", "Go", "Brazil", "2023-01-15", "8", "9"})
	raw.Append([]any{"Bob", "M", "b@x.com", "Senior", "9", "Go", "Brazil", "2023-01-15", "7", "7"})

	clean := transform.NewClassifier().Apply(transform.Normalize(raw))

	dsn := filepath.Join(t.TempDir(), "dw.sqlite")
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer repo.Close()

	countDims := func() (int, int) {
		tech, err := repo.SelectKeyValue(ctx, TableDimTechnology, transform.ColTechnology, ColTechnologyID)
		if err != nil {
			t.Fatalf("SelectKeyValue: %v", err)
		}
		dates, err := repo.SelectKeyValue(ctx, TableDimDate, ColFullDate, ColDateID)
		if err != nil {
			t.Fatalf("SelectKeyValue: %v", err)
		}
		return len(tech), len(dates)
	}

	rb := Rebuilder{Repo: repo}
	if _, err := rb.Run(ctx, raw, clean); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	t1, d1 := countDims()

	if _, err := rb.Run(ctx, raw, clean); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	t2, d2 := countDims()

	if t1 != 1 || d1 != 1 || t1 != t2 || d1 != d2 {
		t.Errorf("dim counts changed across identical rebuilds: tech %d->%d dates %d->%d", t1, t2, d1, d2)
	}
}
