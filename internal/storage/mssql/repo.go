package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
)

// Repo implements storage.Repository for SQL Server.
//
// SQL Server has no ON CONFLICT / OR IGNORE, so idempotent dimension inserts
// are expressed as INSERT ... SELECT over a VALUES derived table with a
// NOT EXISTS anti-join on the unique columns.
//
// Parameter limit note: SQL Server caps a statement at 2100 parameters, so
// bulk inserts are chunked well below that.
type Repo struct {
	db *sql.DB
	tx *sql.Tx
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
		return fmt.Errorf("mssql: transaction already open")
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
		return fmt.Errorf("mssql: no open transaction")
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

func (r *Repo) Reset(ctx context.Context, tables []storage.TableSpec) error {
	ex := r.execer()

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := ex.ExecContext(ctx, "DROP TABLE IF EXISTS "+mssqlIdent(tables[i].Name)); err != nil {
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

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, ignoreConflicts bool) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	// Stay comfortably below the 2100-parameter statement cap.
	maxRows := 2000 / max(1, len(columns))
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

		var q string
		var args []any
		if ignoreConflicts {
			q, args = buildInsertNotExistsSQL(table, columns, part)
		} else {
			q, args = buildBulkInsertSQL(table, columns, part)
		}

		res, err := r.execer().ExecContext(ctx, q, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *Repo) SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[string]int64, error) {
	q := fmt.Sprintf(`SELECT %s, %s FROM %s`, mssqlIdent(keyColumn), mssqlIdent(valueColumn), mssqlIdent(table))
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
			return nil, fmt.Errorf("mssql: %s.%s is NULL; surrogate key not auto-generated", table, valueColumn)
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
			cols = append(cols, mssqlIdent(c))
		}
		// The rebuild drops and recreates every table, so the index can never
		// pre-exist and a plain CREATE INDEX is safe.
		q := fmt.Sprintf(
			"CREATE INDEX %s ON %s (%s)",
			mssqlIdent(ix.Name), mssqlIdent(table), strings.Join(cols, ", "),
		)
		if _, err := ex.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create index %s: %w", ix.Name, err)
		}
	}
	return nil
}

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
		for i, v := range out {
			if b, ok := v.([]byte); ok {
				out[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, out)
	}
	return res, rows.Err()
}

// buildBulkInsertSQL builds a single INSERT ... VALUES statement for all rows.
func buildBulkInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("@p%d", p))
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// buildInsertNotExistsSQL materializes incoming rows as a derived table V via
// VALUES, then inserts only those that do not already exist (all-column
// match). This mirrors OR IGNORE / ON CONFLICT DO NOTHING semantics against
// the table's unique columns.
func buildInsertNotExistsSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder

	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") SELECT ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("v.")
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(" FROM (VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("@p%d", p))
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	b.WriteString(") AS v(")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	// Anti-join on the first column, which is the natural key for every
	// dimension this pipeline loads with ignoreConflicts.
	b.WriteString(") WHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(mssqlIdent(table))
	b.WriteString(" t WHERE t.")
	b.WriteString(mssqlIdent(columns[0]))
	b.WriteString(" = v.")
	b.WriteString(mssqlIdent(columns[0]))
	b.WriteString(")")

	return b.String(), args
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string

	if t.PrimaryKey != nil {
		parts = append(parts, fmt.Sprintf("%s BIGINT IDENTITY(1,1) PRIMARY KEY", mssqlIdent(t.PrimaryKey.Name)))
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", mssqlIdent(c.Name), mapType(c.Type))
		nullable := true
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		if !nullable {
			col += " NOT NULL"
		}
		if refTable, refCol, ok := storage.SplitReference(c.References); ok {
			col += fmt.Sprintf(" REFERENCES %s (%s)", mssqlIdent(refTable), mssqlIdent(refCol))
		}
		parts = append(parts, col)
	}

	for _, con := range t.Constraints {
		if con.Kind != "unique" {
			return "", fmt.Errorf("%s unsupported constraint kind: %s", t.Name, con.Kind)
		}
		var cols []string
		for _, c := range con.Columns {
			cols = append(cols, mssqlIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}

	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s);",
		strings.ReplaceAll(t.Name, "'", "''"), mssqlIdent(t.Name), strings.Join(parts, ", ")), nil
}

// mapType translates logical column types to SQL Server types. TEXT is not used
// because it cannot participate in UNIQUE constraints.
func mapType(logical string) string {
	switch strings.ToLower(strings.TrimSpace(logical)) {
	case storage.TypeText:
		return "NVARCHAR(400)"
	case storage.TypeInt:
		return "BIGINT"
	case storage.TypeReal:
		return "FLOAT"
	default:
		return logical
	}
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
