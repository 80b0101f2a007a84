package transform

import "github.com/ShadowBlack33/workshop1-etl/internal/dataset"

// DefaultHireThreshold is the minimum score (inclusive) both assessments must
// reach for a hire.
const DefaultHireThreshold = 7.0

// ColYoeBand is the derived experience band column appended to the clean
// staging table. It is not part of the canonical schema.
const ColYoeBand = "yoe_band"

// Classifier derives the hire decision from the two assessment scores.
// The zero value is not useful; construct with NewClassifier.
type Classifier struct {
	Threshold float64
}

// NewClassifier returns a Classifier with the default threshold.
func NewClassifier() Classifier {
	return Classifier{Threshold: DefaultHireThreshold}
}

// Hired applies the hire rule to one record's scores. A nil score can never
// satisfy the comparison, so any missing score yields 0.
func (c Classifier) Hired(codeChallenge, techInterview any) int64 {
	cc, ok1 := codeChallenge.(float64)
	ti, ok2 := techInterview.(float64)
	if !ok1 || !ok2 {
		return 0
	}
	if cc >= c.Threshold && ti >= c.Threshold {
		return 1
	}
	return 0
}

// Apply appends the derived hired column (int64 0/1) to a normalized dataset.
// It is a pure derivation; no other column is touched.
func (c Classifier) Apply(ds *dataset.Dataset) *dataset.Dataset {
	ccIx := ds.ColumnIndex(ColCodeChallenge)
	tiIx := ds.ColumnIndex(ColTechInterview)

	out := dataset.New(append(append([]string(nil), ds.Columns...), ColHired))
	for _, row := range ds.Rows {
		var cc, ti any
		if ccIx >= 0 {
			cc = row[ccIx]
		}
		if tiIx >= 0 {
			ti = row[tiIx]
		}
		out.Append(append(append([]any(nil), row...), c.Hired(cc, ti)))
	}
	return out
}

// YoeBand buckets years of experience the way the reporting layer groups
// candidates: 0-2, 3-5, 6-10, 11+.
func YoeBand(yoe int64) string {
	switch {
	case yoe <= 2:
		return "0-2"
	case yoe <= 5:
		return "3-5"
	case yoe <= 10:
		return "6-10"
	default:
		return "11+"
	}
}
