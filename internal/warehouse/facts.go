package warehouse

import (
	"context"
	"fmt"

	"github.com/ShadowBlack33/workshop1-etl/internal/dataset"
	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
	"github.com/ShadowBlack33/workshop1-etl/internal/transform"
)

// DefaultBatchSize is the fact insert batch size when none is configured.
const DefaultBatchSize = 512

// Assembler resolves clean rows against dimension lookups and bulk-inserts
// the fact table.
//
// A row whose email, technology, country or date does not resolve to a
// surrogate key is dropped, not inserted with a NULL key. The dropped count
// is reported so a run that loses rows is visible.
type Assembler struct {
	BatchSize int
}

// Assemble builds FactHires rows (in FactColumns order) from the clean
// dataset. Returns the rows and how many input rows were dropped for an
// unresolvable key.
func (a Assembler) Assemble(ds *dataset.Dataset, lk *Lookups) (rows [][]any, dropped int64) {
	emailIx := ds.ColumnIndex(transform.ColEmail)
	techIx := ds.ColumnIndex(transform.ColTechnology)
	countryIx := ds.ColumnIndex(transform.ColCountry)
	dateIx := ds.ColumnIndex(transform.ColDate)
	ccIx := ds.ColumnIndex(transform.ColCodeChallenge)
	tiIx := ds.ColumnIndex(transform.ColTechInterview)
	hiredIx := ds.ColumnIndex(transform.ColHired)

	cell := func(row []any, ix int) any {
		if ix < 0 {
			return nil
		}
		return row[ix]
	}

	for _, row := range ds.Rows {
		candidateID, ok1 := resolve(lk.Candidates, cell(row, emailIx))
		technologyID, ok2 := resolve(lk.Technologies, cell(row, techIx))
		countryID, ok3 := resolve(lk.Countries, cell(row, countryIx))
		dateID, ok4 := resolve(lk.Dates, cell(row, dateIx))
		if !ok1 || !ok2 || !ok3 || !ok4 {
			dropped++
			continue
		}

		hired := cell(row, hiredIx)
		if hired == nil {
			hired = int64(0)
		}

		rows = append(rows, []any{
			candidateID, technologyID, countryID, dateID,
			cell(row, ccIx), cell(row, tiIx), hired,
		})
	}
	return rows, dropped
}

func resolve(m map[string]int64, v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	id, ok := m[storage.NormalizeKey(v)]
	return id, ok
}

// Insert bulk-inserts assembled fact rows in batches.
func (a Assembler) Insert(ctx context.Context, repo storage.Repository, rows [][]any) (int64, error) {
	batch := a.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	var total int64
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		n, err := repo.InsertRows(ctx, TableFactHires, FactColumns(), rows[start:end], false)
		if err != nil {
			return total, fmt.Errorf("insert %s: %w", TableFactHires, err)
		}
		total += n
	}
	return total, nil
}
