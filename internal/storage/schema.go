// Table specs live here so the warehouse package and every backend can
// import them without circular deps.
package storage

import "strings"

// Logical column types. Backends translate these to concrete SQL types
// (e.g. TypeInt is INTEGER in sqlite, BIGINT in postgres, INT in mssql).
const (
	TypeText = "text"
	TypeInt  = "int"
	TypeReal = "real"
)

// TableSpec describes one warehouse table. DDL is generated from it by each
// backend.
type TableSpec struct {
	Name        string
	PrimaryKey  *PrimaryKeySpec
	Columns     []ColumnSpec
	Constraints []ConstraintSpec
	Indexes     []IndexSpec
}

// PrimaryKeySpec declares an auto-incrementing integer surrogate key.
type PrimaryKeySpec struct {
	Name string
}

type ColumnSpec struct {
	Name string
	Type string // TypeText | TypeInt | TypeReal
	// References names "Table(column)" for a foreign key, empty otherwise.
	References string
	// Nullable defaults to true; warehouse columns hold recovered nulls.
	Nullable *bool
}

type ConstraintSpec struct {
	Kind    string // "unique"
	Columns []string
}

// IndexSpec declares a secondary index, created after bulk load.
type IndexSpec struct {
	Name    string
	Columns []string
}

// NotNull is a convenience for ColumnSpec.Nullable.
func NotNull() *bool {
	b := false
	return &b
}

// SplitReference splits a "Table(column)" reference into its parts so each
// backend can apply its own identifier quoting. Returns ok=false when ref is
// empty or not of that shape.
func SplitReference(ref string) (table, column string, ok bool) {
	open := strings.IndexByte(ref, '(')
	if open <= 0 || !strings.HasSuffix(ref, ")") {
		return "", "", false
	}
	table = strings.TrimSpace(ref[:open])
	column = strings.TrimSpace(ref[open+1 : len(ref)-1])
	return table, column, table != "" && column != ""
}
