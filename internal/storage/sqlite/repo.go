package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
)

// Repo implements storage.Repository for SQLite.
//
// Key design points vs Postgres:
//   - "INTEGER PRIMARY KEY" is special in SQLite: it aliases the rowid and
//     auto-generates surrogate key values, so no AUTOINCREMENT sequence is
//     needed for the dimension keys.
//   - Idempotent inserts use "INSERT OR IGNORE", which relies on the UNIQUE
//     constraints declared in the TableSpec.
type Repo struct {
	db *sql.DB
	tx *sql.Tx
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// execer routes statements through the open rebuild transaction when one
// exists, otherwise straight to the connection.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *Repo) execer() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *Repo) Begin(ctx context.Context) error {
	if r.tx != nil {
		return fmt.Errorf("sqlite: transaction already open")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	r.tx = tx
	return nil
}

func (r *Repo) Commit(ctx context.Context) error {
	if r.tx == nil {
		return fmt.Errorf("sqlite: no open transaction")
	}
	err := r.tx.Commit()
	r.tx = nil
	return err
}

func (r *Repo) Rollback(ctx context.Context) {
	if r.tx == nil {
		return
	}
	_ = r.tx.Rollback()
	r.tx = nil
}

// Reset drops the given tables if present (reverse order, facts before the
// dimensions they reference) and recreates them from spec.
func (r *Repo) Reset(ctx context.Context, tables []storage.TableSpec) error {
	ex := r.execer()

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := ex.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(tables[i].Name)); err != nil {
			return fmt.Errorf("drop table %s: %w", tables[i].Name, err)
		}
	}
	for _, t := range tables {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := ex.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// InsertRows performs a SQLite multi-row insert.
//
// With ignoreConflicts, uses "INSERT OR IGNORE", which requires a UNIQUE
// constraint in the destination table. Statements are chunked to stay below
// SQLite's bound-parameter limit.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, ignoreConflicts bool) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	insertPrefix := "INSERT INTO "
	if ignoreConflicts {
		insertPrefix = "INSERT OR IGNORE INTO "
	}

	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	maxRows := 30000 / max(1, len(columns))
	if maxRows < 1 {
		maxRows = 1
	}

	var total int64
	for start := 0; start < len(rows); start += maxRows {
		end := start + maxRows
		if end > len(rows) {
			end = len(rows)
		}
		part := rows[start:end]

		var b strings.Builder
		b.WriteString(insertPrefix)
		b.WriteString(sqlIdent(table))
		b.WriteString(" (")
		b.WriteString(strings.Join(colList, ", "))
		b.WriteString(") VALUES ")

		args := make([]any, 0, len(part)*len(columns))
		for i, row := range part {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholders)
			args = append(args, row...)
		}

		res, err := r.execer().ExecContext(ctx, b.String(), args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *Repo) SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[string]int64, error) {
	q := fmt.Sprintf(`SELECT %s, %s FROM %s`, sqlIdent(keyColumn), sqlIdent(valueColumn), sqlIdent(table))
	rows, err := r.execer().QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var k any
		var id sql.NullInt64
		if err := rows.Scan(&k, &id); err != nil {
			return nil, err
		}
		if !id.Valid {
			return nil, fmt.Errorf("sqlite: %s.%s is NULL; surrogate key not auto-generated", table, valueColumn)
		}
		out[storage.NormalizeKey(k)] = id.Int64
	}
	return out, rows.Err()
}

func (r *Repo) EnsureIndexes(ctx context.Context, table string, indexes []storage.IndexSpec) error {
	ex := r.execer()
	for _, ix := range indexes {
		cols := make([]string, 0, len(ix.Columns))
		for _, c := range ix.Columns {
			cols = append(cols, sqlIdent(c))
		}
		q := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			sqlIdent(ix.Name), sqlIdent(table), strings.Join(cols, ", "),
		)
		if _, err := ex.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create index %s: %w", ix.Name, err)
		}
	}
	return nil
}

// Query materializes an arbitrary read query (reporting layer).
func (r *Repo) Query(ctx context.Context, query string, args ...any) (*storage.Result, error) {
	rows, err := r.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &storage.Result{Columns: cols}
	for rows.Next() {
		out := make([]any, len(cols))
		scan := make([]any, len(cols))
		for i := range out {
			scan[i] = &out[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		// TEXT scans as []byte with some drivers; normalize for callers.
		for i, v := range out {
			if b, ok := v.([]byte); ok {
				out[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, out)
	}
	return res, rows.Err()
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// buildCreateTableSQL generates DDL for one table from its spec.
func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string

	if t.PrimaryKey != nil {
		parts = append(parts, fmt.Sprintf(`%s INTEGER PRIMARY KEY AUTOINCREMENT`, sqlIdent(t.PrimaryKey.Name)))
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", sqlIdent(c.Name), mapType(c.Type))
		nullable := true
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		if !nullable {
			col += " NOT NULL"
		}
		// SQLite supports REFERENCES, but enforcement depends on PRAGMA foreign_keys=ON.
		if refTable, refCol, ok := storage.SplitReference(c.References); ok {
			col += fmt.Sprintf(" REFERENCES %s (%s)", sqlIdent(refTable), sqlIdent(refCol))
		}
		parts = append(parts, col)
	}

	for _, con := range t.Constraints {
		if con.Kind != "unique" {
			return "", fmt.Errorf("%s unsupported constraint kind: %s", t.Name, con.Kind)
		}
		var cols []string
		for _, c := range con.Columns {
			cols = append(cols, sqlIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

func mapType(logical string) string {
	switch strings.ToLower(strings.TrimSpace(logical)) {
	case storage.TypeText:
		return "TEXT"
	case storage.TypeInt:
		return "INTEGER"
	case storage.TypeReal:
		return "REAL"
	default:
		return logical
	}
}
