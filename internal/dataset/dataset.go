// Package dataset defines the in-memory tabular representation shared by the
// pipeline stages: an ordered list of column names plus positional rows.
//
// Values are held as `any` so a column can carry untyped strings straight from
// the parser and typed values (int64, float64, nil) after normalization.
// A nil cell always means "missing", never an empty string.
package dataset

// Dataset is a bounded, fully materialized table.
//
// Invariants:
//   - Every row has exactly len(Columns) values.
//   - Column names are unique (the canonicalizer enforces this on its output;
//     raw parser output may briefly violate it and is repaired there).
type Dataset struct {
	Columns []string
	Rows    [][]any
}

// New returns an empty dataset with the given column order.
func New(columns []string) *Dataset {
	return &Dataset{Columns: append([]string(nil), columns...)}
}

// ColumnIndex returns the position of name in Columns, or -1 if absent.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all values of the named column in row order.
// Returns nil if the column does not exist.
func (d *Dataset) Column(name string) []any {
	ix := d.ColumnIndex(name)
	if ix < 0 {
		return nil
	}
	out := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[ix]
	}
	return out
}

// Append adds a row. The row must already be aligned to Columns.
func (d *Dataset) Append(row []any) {
	d.Rows = append(d.Rows, row)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }
