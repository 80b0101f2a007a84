// Package warehouse owns the star schema and the rebuild that loads it:
// staging tables, dimensions with surrogate keys, and the hire fact table.
package warehouse

import (
	"github.com/ShadowBlack33/workshop1-etl/internal/storage"
	"github.com/ShadowBlack33/workshop1-etl/internal/transform"
)

// Table names. Every run drops and recreates all of them.
const (
	TableRawCandidates   = "RawCandidates"
	TableCleanCandidates = "CleanCandidates"
	TableDimCandidate    = "DimCandidate"
	TableDimTechnology   = "DimTechnology"
	TableDimCountry      = "DimCountry"
	TableDimDate         = "DimDate"
	TableFactHires       = "FactHires"
)

// Surrogate key and dimension column names shared between DDL, the dimension
// loader and the fact assembler.
const (
	ColCandidateID  = "candidate_id"
	ColTechnologyID = "technology_id"
	ColCountryID    = "country_id"
	ColDateID       = "date_id"
	ColFullDate     = "full_date"
	ColYear         = "year"
	ColMonth        = "month"
	ColDay          = "day"
)

// TableSpecs returns every warehouse table in dependency order: staging, then
// dimensions, then facts. Reset drops them in reverse, so FactHires goes
// before the dimensions it references.
func TableSpecs() []storage.TableSpec {
	return []storage.TableSpec{
		rawCandidatesSpec(),
		cleanCandidatesSpec(),
		dimCandidateSpec(),
		dimTechnologySpec(),
		dimCountrySpec(),
		dimDateSpec(),
		factHiresSpec(),
	}
}

// rawCandidatesSpec is the as-received staging table: canonical column names,
// everything nullable text. Values land exactly as they came off the file so
// a bad load can be diagnosed against the source.
func rawCandidatesSpec() storage.TableSpec {
	cols := make([]storage.ColumnSpec, 0, 10)
	for _, name := range transform.CanonicalColumns() {
		cols = append(cols, storage.ColumnSpec{Name: name, Type: storage.TypeText})
	}
	return storage.TableSpec{Name: TableRawCandidates, Columns: cols}
}

// CleanColumns is the CleanCandidates column order: the canonical schema plus
// the derived hired flag and experience band.
func CleanColumns() []string {
	return append(transform.CanonicalColumns(), transform.ColHired, transform.ColYoeBand)
}

func cleanCandidatesSpec() storage.TableSpec {
	typed := map[string]string{
		transform.ColYoe:           storage.TypeInt,
		transform.ColCodeChallenge: storage.TypeReal,
		transform.ColTechInterview: storage.TypeReal,
		transform.ColHired:         storage.TypeInt,
	}

	cols := make([]storage.ColumnSpec, 0, 12)
	for _, name := range CleanColumns() {
		t := typed[name]
		if t == "" {
			t = storage.TypeText
		}
		cols = append(cols, storage.ColumnSpec{Name: name, Type: t})
	}
	return storage.TableSpec{Name: TableCleanCandidates, Columns: cols}
}

func dimCandidateSpec() storage.TableSpec {
	return storage.TableSpec{
		Name:       TableDimCandidate,
		PrimaryKey: &storage.PrimaryKeySpec{Name: ColCandidateID},
		Columns: []storage.ColumnSpec{
			{Name: transform.ColEmail, Type: storage.TypeText, Nullable: storage.NotNull()},
			{Name: transform.ColFirstName, Type: storage.TypeText},
			{Name: transform.ColLastName, Type: storage.TypeText},
			{Name: transform.ColSeniority, Type: storage.TypeText},
			{Name: transform.ColYoe, Type: storage.TypeInt},
		},
		Constraints: []storage.ConstraintSpec{
			{Kind: "unique", Columns: []string{transform.ColEmail}},
		},
	}
}

func dimTechnologySpec() storage.TableSpec {
	return storage.TableSpec{
		Name:       TableDimTechnology,
		PrimaryKey: &storage.PrimaryKeySpec{Name: ColTechnologyID},
		Columns: []storage.ColumnSpec{
			{Name: transform.ColTechnology, Type: storage.TypeText, Nullable: storage.NotNull()},
		},
		Constraints: []storage.ConstraintSpec{
			{Kind: "unique", Columns: []string{transform.ColTechnology}},
		},
	}
}

func dimCountrySpec() storage.TableSpec {
	return storage.TableSpec{
		Name:       TableDimCountry,
		PrimaryKey: &storage.PrimaryKeySpec{Name: ColCountryID},
		Columns: []storage.ColumnSpec{
			{Name: transform.ColCountry, Type: storage.TypeText, Nullable: storage.NotNull()},
		},
		Constraints: []storage.ConstraintSpec{
			{Kind: "unique", Columns: []string{transform.ColCountry}},
		},
	}
}

func dimDateSpec() storage.TableSpec {
	return storage.TableSpec{
		Name:       TableDimDate,
		PrimaryKey: &storage.PrimaryKeySpec{Name: ColDateID},
		Columns: []storage.ColumnSpec{
			{Name: ColFullDate, Type: storage.TypeText, Nullable: storage.NotNull()},
			{Name: ColYear, Type: storage.TypeInt, Nullable: storage.NotNull()},
			{Name: ColMonth, Type: storage.TypeInt, Nullable: storage.NotNull()},
			{Name: ColDay, Type: storage.TypeInt, Nullable: storage.NotNull()},
		},
		Constraints: []storage.ConstraintSpec{
			{Kind: "unique", Columns: []string{ColFullDate}},
		},
	}
}

// FactColumns is the FactHires insert column order.
func FactColumns() []string {
	return []string{
		ColCandidateID, ColTechnologyID, ColCountryID, ColDateID,
		transform.ColCodeChallenge, transform.ColTechInterview, transform.ColHired,
	}
}

func factHiresSpec() storage.TableSpec {
	return storage.TableSpec{
		Name:       TableFactHires,
		PrimaryKey: &storage.PrimaryKeySpec{Name: "hire_id"},
		Columns: []storage.ColumnSpec{
			{Name: ColCandidateID, Type: storage.TypeInt, Nullable: storage.NotNull(), References: TableDimCandidate + "(" + ColCandidateID + ")"},
			{Name: ColTechnologyID, Type: storage.TypeInt, Nullable: storage.NotNull(), References: TableDimTechnology + "(" + ColTechnologyID + ")"},
			{Name: ColCountryID, Type: storage.TypeInt, Nullable: storage.NotNull(), References: TableDimCountry + "(" + ColCountryID + ")"},
			{Name: ColDateID, Type: storage.TypeInt, Nullable: storage.NotNull(), References: TableDimDate + "(" + ColDateID + ")"},
			{Name: transform.ColCodeChallenge, Type: storage.TypeReal},
			{Name: transform.ColTechInterview, Type: storage.TypeReal},
			{Name: transform.ColHired, Type: storage.TypeInt, Nullable: storage.NotNull()},
		},
		Indexes: []storage.IndexSpec{
			{Name: "ix_facthires_candidate", Columns: []string{ColCandidateID}},
			{Name: "ix_facthires_technology", Columns: []string{ColTechnologyID}},
			{Name: "ix_facthires_country", Columns: []string{ColCountryID}},
			{Name: "ix_facthires_date", Columns: []string{ColDateID}},
		},
	}
}
