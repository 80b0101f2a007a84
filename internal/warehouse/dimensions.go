package warehouse

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ShadowBlack33/workshop1-etl/internal/dataset"
	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
	"github.com/ShadowBlack33/workshop1-etl/internal/transform"
)

// Builder derives dimension rows from the clean dataset and loads them.
//
// All dimension inserts run with ignoreConflicts, so reloading the same data
// is idempotent: existing natural keys keep their surrogate ids and only new
// keys get rows.
type Builder struct{}

// candidateColumns is the DimCandidate insert order.
var candidateColumns = []string{
	transform.ColEmail, transform.ColFirstName, transform.ColLastName,
	transform.ColSeniority, transform.ColYoe,
}

// CandidateRows returns candidate attribute rows (candidateColumns order),
// deduplicated by email with first occurrence winning. Rows without an email
// are skipped; a candidate cannot be identified without one.
func (Builder) CandidateRows(ds *dataset.Dataset) [][]any {
	emailIx := ds.ColumnIndex(transform.ColEmail)
	if emailIx < 0 {
		return nil
	}
	attrIx := make([]int, len(candidateColumns))
	for i, c := range candidateColumns {
		attrIx[i] = ds.ColumnIndex(c)
	}

	seen := map[string]bool{}
	var rows [][]any
	for _, row := range ds.Rows {
		email := row[emailIx]
		if email == nil {
			continue
		}
		k := storage.NormalizeKey(email)
		if seen[k] {
			continue
		}
		seen[k] = true

		out := make([]any, len(candidateColumns))
		for i, ix := range attrIx {
			if ix >= 0 {
				out[i] = row[ix]
			}
		}
		rows = append(rows, out)
	}
	return rows
}

// TechnologyRows returns distinct non-null [technology] rows in first-seen
// input order.
func (Builder) TechnologyRows(ds *dataset.Dataset) [][]any {
	return distinctRows(ds, transform.ColTechnology)
}

// CountryRows returns distinct non-null [country] rows in first-seen input
// order.
func (Builder) CountryRows(ds *dataset.Dataset) [][]any {
	return distinctRows(ds, transform.ColCountry)
}

// DateRows returns distinct [full_date, year, month, day] rows. Dates arrive
// already serialized as "YYYY-MM-DD"; values that do not decompose are
// skipped, which later drops any fact row pointing at them.
func (Builder) DateRows(ds *dataset.Dataset) [][]any {
	ix := ds.ColumnIndex(transform.ColDate)
	if ix < 0 {
		return nil
	}

	seen := map[string]bool{}
	var rows [][]any
	for _, row := range ds.Rows {
		v := row[ix]
		if v == nil {
			continue
		}
		full := storage.NormalizeKey(v)
		if full == "" || seen[full] {
			continue
		}
		seen[full] = true

		y, m, d, err := splitISODate(full)
		if err != nil {
			continue
		}
		rows = append(rows, []any{full, y, m, d})
	}
	return rows
}

func distinctRows(ds *dataset.Dataset, column string) [][]any {
	ix := ds.ColumnIndex(column)
	if ix < 0 {
		return nil
	}

	seen := map[string]bool{}
	var rows [][]any
	for _, row := range ds.Rows {
		v := row[ix]
		if v == nil {
			continue
		}
		k := storage.NormalizeKey(v)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		rows = append(rows, []any{v})
	}
	return rows
}

// splitISODate decomposes "YYYY-MM-DD" into integer parts.
func splitISODate(s string) (year, month, day int64, err error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return 0, 0, 0, fmt.Errorf("not an ISO date: %q", s)
	}
	y, err := strconv.ParseInt(s[0:4], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("not an ISO date: %q", s)
	}
	m, err := strconv.ParseInt(s[5:7], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("not an ISO date: %q", s)
	}
	d, err := strconv.ParseInt(s[8:10], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("not an ISO date: %q", s)
	}
	return y, m, d, nil
}

// Load inserts all four dimensions from the clean dataset.
func (b Builder) Load(ctx context.Context, repo storage.Repository, ds *dataset.Dataset) error {
	loads := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{TableDimCandidate, candidateColumns, b.CandidateRows(ds)},
		{TableDimTechnology, []string{transform.ColTechnology}, b.TechnologyRows(ds)},
		{TableDimCountry, []string{transform.ColCountry}, b.CountryRows(ds)},
		{TableDimDate, []string{ColFullDate, ColYear, ColMonth, ColDay}, b.DateRows(ds)},
	}

	for _, l := range loads {
		if _, err := repo.InsertRows(ctx, l.table, l.columns, l.rows, true); err != nil {
			return fmt.Errorf("load %s: %w", l.table, err)
		}
	}
	return nil
}

// Lookups holds the natural-key to surrogate-id maps the fact assembler joins
// through. Map keys are storage.NormalizeKey of the natural key value.
type Lookups struct {
	Candidates   map[string]int64 // email -> candidate_id
	Technologies map[string]int64 // technology -> technology_id
	Countries    map[string]int64 // country -> country_id
	Dates        map[string]int64 // full_date -> date_id
}

// LoadLookups reads the surrogate key maps back from the loaded dimensions.
func LoadLookups(ctx context.Context, repo storage.Repository) (*Lookups, error) {
	candidates, err := repo.SelectKeyValue(ctx, TableDimCandidate, transform.ColEmail, ColCandidateID)
	if err != nil {
		return nil, fmt.Errorf("lookups %s: %w", TableDimCandidate, err)
	}
	technologies, err := repo.SelectKeyValue(ctx, TableDimTechnology, transform.ColTechnology, ColTechnologyID)
	if err != nil {
		return nil, fmt.Errorf("lookups %s: %w", TableDimTechnology, err)
	}
	countries, err := repo.SelectKeyValue(ctx, TableDimCountry, transform.ColCountry, ColCountryID)
	if err != nil {
		return nil, fmt.Errorf("lookups %s: %w", TableDimCountry, err)
	}
	dates, err := repo.SelectKeyValue(ctx, TableDimDate, ColFullDate, ColDateID)
	if err != nil {
		return nil, fmt.Errorf("lookups %s: %w", TableDimDate, err)
	}

	return &Lookups{
		Candidates:   candidates,
		Technologies: technologies,
		Countries:    countries,
		Dates:        dates,
	}, nil
}
