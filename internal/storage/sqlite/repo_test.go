package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
)

func newTestRepo(t *testing.T) storage.Repository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.sqlite")
	repo, err := New(context.Background(), storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo
}

func testSpec() []storage.TableSpec {
	return []storage.TableSpec{
		{
			Name:       "DimThing",
			PrimaryKey: &storage.PrimaryKeySpec{Name: "thing_id"},
			Columns: []storage.ColumnSpec{
				{Name: "thing", Type: storage.TypeText, Nullable: storage.NotNull()},
			},
			Constraints: []storage.ConstraintSpec{
				{Kind: "unique", Columns: []string{"thing"}},
			},
		},
		{
			Name:       "FactUse",
			PrimaryKey: &storage.PrimaryKeySpec{Name: "use_id"},
			Columns: []storage.ColumnSpec{
				{Name: "thing_id", Type: storage.TypeInt, Nullable: storage.NotNull(), References: "DimThing(thing_id)"},
				{Name: "score", Type: storage.TypeReal},
			},
			Indexes: []storage.IndexSpec{
				{Name: "ix_factuse_thing", Columns: []string{"thing_id"}},
			},
		},
	}
}

func TestResetInsertSelect(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Reset(ctx, testSpec()); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	n, err := repo.InsertRows(ctx, "DimThing", []string{"thing"}, [][]any{{"go"}, {"python"}}, true)
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	// duplicate natural keys are ignored, not an error
	n, err = repo.InsertRows(ctx, "DimThing", []string{"thing"}, [][]any{{"go"}, {"rust"}}, true)
	if err != nil {
		t.Fatalf("InsertRows dup: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d, want 1 (dup ignored)", n)
	}

	ids, err := repo.SelectKeyValue(ctx, "DimThing", "thing", "thing_id")
	if err != nil {
		t.Fatalf("SelectKeyValue: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids = %v, want 3 entries", ids)
	}
	if ids["go"] == 0 || ids["go"] == ids["python"] {
		t.Fatalf("surrogate keys not distinct: %v", ids)
	}
}

func TestResetDropsExistingData(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Reset(ctx, testSpec()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := repo.InsertRows(ctx, "DimThing", []string{"thing"}, [][]any{{"go"}}, false); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	if err := repo.Reset(ctx, testSpec()); err != nil {
		t.Fatalf("second Reset: %v", err)
	}
	ids, err := repo.SelectKeyValue(ctx, "DimThing", "thing", "thing_id")
	if err != nil {
		t.Fatalf("SelectKeyValue: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("data survived reset: %v", ids)
	}
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Reset(ctx, testSpec()); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if err := repo.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := repo.InsertRows(ctx, "DimThing", []string{"thing"}, [][]any{{"go"}}, false); err != nil {
		t.Fatalf("InsertRows in tx: %v", err)
	}
	repo.Rollback(ctx)

	ids, err := repo.SelectKeyValue(ctx, "DimThing", "thing", "thing_id")
	if err != nil {
		t.Fatalf("SelectKeyValue: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("rolled-back insert visible: %v", ids)
	}
}

func TestTransactionCommit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := repo.Reset(ctx, testSpec()); err != nil {
		t.Fatalf("Reset in tx: %v", err)
	}
	if _, err := repo.InsertRows(ctx, "DimThing", []string{"thing"}, [][]any{{"go"}}, false); err != nil {
		t.Fatalf("InsertRows in tx: %v", err)
	}
	if err := repo.EnsureIndexes(ctx, "FactUse", testSpec()[1].Indexes); err != nil {
		t.Fatalf("EnsureIndexes in tx: %v", err)
	}
	if err := repo.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	repo.Rollback(ctx) // no-op after commit

	ids, err := repo.SelectKeyValue(ctx, "DimThing", "thing", "thing_id")
	if err != nil {
		t.Fatalf("SelectKeyValue: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("committed insert missing: %v", ids)
	}
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Reset(ctx, testSpec()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := repo.InsertRows(ctx, "DimThing", []string{"thing"}, [][]any{{"go"}, {"python"}}, false); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	res, err := repo.Query(ctx, "SELECT thing, COUNT(*) AS n FROM DimThing GROUP BY thing ORDER BY thing")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Columns) != 2 || res.Columns[1] != "n" {
		t.Fatalf("columns = %v", res.Columns)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %v", res.Rows)
	}
	if got, ok := res.Rows[0][0].(string); !ok || got != "go" {
		t.Fatalf("first row = %v, want text normalized to string", res.Rows[0])
	}
}

func TestBeginTwiceFails(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := repo.Begin(ctx); err == nil {
		t.Fatal("second Begin should fail")
	}
	repo.Rollback(ctx)
}
