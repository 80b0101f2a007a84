package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
)

/*
Repo implements storage.Repository for Postgres.

Idempotent dimension inserts use INSERT ... ON CONFLICT DO NOTHING against
the UNIQUE constraints declared in the TableSpec. Postgres DDL is fully
transactional, so the whole rebuild (drop, create, load, index) runs inside
the single transaction opened by Begin.
*/
type Repo struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// pgxpool.Pool and pgx.Tx expose Exec with a pgconn.CommandTag result; alias
// via a tiny adapter to keep one code path for "in tx" vs "no tx".
type pgconnCommandTag interface{ RowsAffected() int64 }

type poolQuerier struct{ pool *pgxpool.Pool }

func (p poolQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error) {
	tag, err := p.pool.Exec(ctx, sql, args...)
	return tag, err
}

func (p poolQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

type txQuerier struct{ tx pgx.Tx }

func (t txQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	return tag, err
}

func (t txQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.tx.Query(ctx, sql, args...)
}

func (r *Repo) querier() querier {
	if r.tx != nil {
		return txQuerier{tx: r.tx}
	}
	return poolQuerier{pool: r.pool}
}

func (r *Repo) Begin(ctx context.Context) error {
	if r.tx != nil {
		return fmt.Errorf("postgres: transaction already open")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	r.tx = tx
	return nil
}

func (r *Repo) Commit(ctx context.Context) error {
	if r.tx == nil {
		return fmt.Errorf("postgres: no open transaction")
	}
	err := r.tx.Commit(ctx)
	r.tx = nil
	return err
}

func (r *Repo) Rollback(ctx context.Context) {
	if r.tx == nil {
		return
	}
	_ = r.tx.Rollback(ctx)
	r.tx = nil
}

func (r *Repo) Reset(ctx context.Context, tables []storage.TableSpec) error {
	q := r.querier()

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := q.Exec(ctx, "DROP TABLE IF EXISTS "+pgIdent(tables[i].Name)); err != nil {
			return fmt.Errorf("drop table %s: %w", tables[i].Name, err)
		}
	}
	for _, t := range tables {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// InsertRows performs a bulk INSERT with numbered placeholders, chunked to
// stay below the 65535 bind-parameter limit of the wire protocol.
//
// With ignoreConflicts, appends ON CONFLICT DO NOTHING, which makes dimension
// loads tolerant of duplicate keys within the same batch and across batches.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, ignoreConflicts bool) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	maxRows := 65000 / max(1, len(columns))
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
		b.WriteString("INSERT INTO ")
		b.WriteString(pgIdent(table))
		b.WriteString(" (")
		for i, c := range columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pgIdent(c))
		}
		b.WriteString(") VALUES ")

		args := make([]any, 0, len(part)*len(columns))
		p := 1
		for i, row := range part {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(")
			for j := range columns {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("$%d", p))
				args = append(args, row[j])
				p++
			}
			b.WriteString(")")
		}

		if ignoreConflicts {
			b.WriteString(" ON CONFLICT DO NOTHING")
		}

		tag, err := r.querier().Exec(ctx, b.String(), args...)
		if err != nil {
			return total, err
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

func (r *Repo) SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[string]int64, error) {
	q := fmt.Sprintf(`SELECT %s, %s FROM %s`, pgIdent(keyColumn), pgIdent(valueColumn), pgIdent(table))

	rows, err := r.querier().Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("SelectKeyValue: query %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var k any
		var id int64
		if err := rows.Scan(&k, &id); err != nil {
			return nil, fmt.Errorf("SelectKeyValue: scan %s: %w", table, err)
		}
		out[storage.NormalizeKey(k)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SelectKeyValue: rows %s: %w", table, err)
	}
	return out, nil
}

func (r *Repo) EnsureIndexes(ctx context.Context, table string, indexes []storage.IndexSpec) error {
	q := r.querier()
	for _, ix := range indexes {
		cols := make([]string, 0, len(ix.Columns))
		for _, c := range ix.Columns {
			cols = append(cols, pgIdent(c))
		}
		ddl := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			pgIdent(ix.Name), pgIdent(table), strings.Join(cols, ", "),
		)
		if _, err := q.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create index %s: %w", ix.Name, err)
		}
	}
	return nil
}

func (r *Repo) Query(ctx context.Context, query string, args ...any) (*storage.Result, error) {
	rows, err := r.querier().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	res := &storage.Result{Columns: cols}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, vals)
	}
	return res, rows.Err()
}

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// buildCreateTableSQL renders spec-driven DDL for Postgres.
//
// Logical types translate as text -> TEXT, int -> BIGINT, real -> DOUBLE
// PRECISION; the surrogate key becomes BIGSERIAL PRIMARY KEY.
func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string

	if t.PrimaryKey != nil {
		parts = append(parts, fmt.Sprintf(`%s BIGSERIAL PRIMARY KEY`, pgIdent(t.PrimaryKey.Name)))
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", pgIdent(c.Name), mapType(c.Type))
		nullable := true
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		if !nullable {
			col += " NOT NULL"
		}
		if refTable, refCol, ok := storage.SplitReference(c.References); ok {
			col += fmt.Sprintf(" REFERENCES %s (%s)", pgIdent(refTable), pgIdent(refCol))
		}
		parts = append(parts, col)
	}

	for _, con := range t.Constraints {
		if con.Kind != "unique" {
			return "", fmt.Errorf("%s unsupported constraint kind: %s", t.Name, con.Kind)
		}
		var cols []string
		for _, c := range con.Columns {
			cols = append(cols, pgIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", pgIdent(t.Name), strings.Join(parts, ", ")), nil
}

func mapType(logical string) string {
	switch strings.ToLower(strings.TrimSpace(logical)) {
	case storage.TypeText:
		return "TEXT"
	case storage.TypeInt:
		return "BIGINT"
	case storage.TypeReal:
		return "DOUBLE PRECISION"
	default:
		return logical
	}
}
