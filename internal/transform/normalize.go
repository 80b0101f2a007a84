package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ShadowBlack33/workshop1-etl/internal/dataset"
)

// DateLayout is the canonical serialized form of application dates.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order when parsing application dates. ISO first;
// the rest cover formats seen in upstream exports.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
}

// countryAliases folds common spelling variants onto one dimension value.
var countryAliases = map[string]string{
	"USA":    "United States",
	"U.S.A.": "United States",
	"US":     "United States",
	"Brasil": "Brazil",
}

// Normalize coerces a canonicalized dataset into the fixed canonical schema.
//
// Output columns are exactly CanonicalColumns() in order; canonical columns
// absent from the input are synthesized as all-nil. Per field:
//
//   - string fields: trimmed; nil stays nil (never stringified)
//   - country: additionally folded through the alias table
//   - yoe: integer, unparsable/missing -> 0
//   - scores: float64, unparsable/missing -> nil (a missing score must not
//     become a valid 0)
//   - application_date: tolerant parse, serialized "YYYY-MM-DD", else nil
//
// Input columns outside the canonical set are dropped.
func Normalize(ds *dataset.Dataset) *dataset.Dataset {
	cols := CanonicalColumns()

	src := make([]int, len(cols))
	for i, c := range cols {
		src[i] = ds.ColumnIndex(c)
	}

	out := dataset.New(cols)
	for _, row := range ds.Rows {
		nr := make([]any, len(cols))
		for i, c := range cols {
			var v any
			if src[i] >= 0 {
				v = row[src[i]]
			}
			nr[i] = normalizeField(c, v)
		}
		out.Append(nr)
	}
	return out
}

func normalizeField(column string, v any) any {
	switch column {
	case ColYoe:
		n := parseIntDefault(v, 0)
		if n < 0 {
			return int64(0)
		}
		return n
	case ColCodeChallenge, ColTechInterview:
		return parseFloatOrNil(v)
	case ColDate:
		return parseDateOrNil(v)
	case ColCountry:
		s, ok := trimmedString(v)
		if !ok {
			return nil
		}
		if alias, found := countryAliases[s]; found {
			return alias
		}
		return s
	default:
		s, ok := trimmedString(v)
		if !ok {
			return nil
		}
		return s
	}
}

// trimmedString returns the trimmed string form of v and whether v carries a
// non-empty value. nil and whitespace-only values report false.
func trimmedString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case []byte:
		s := strings.TrimSpace(string(t))
		return s, s != ""
	default:
		s := strings.TrimSpace(fmt.Sprint(v))
		return s, s != ""
	}
}

func parseIntDefault(v any, def int64) int64 {
	switch t := v.(type) {
	case nil:
		return def
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	}
	s, ok := trimmedString(v)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Integer columns sometimes arrive as "7.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return def
		}
		return int64(f)
	}
	return n
}

func parseFloatOrNil(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	}
	s, ok := trimmedString(v)
	if !ok {
		return nil
	}
	// Tolerate decimal commas from ES-locale exports.
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return f
}

func parseDateOrNil(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(DateLayout)
	}
	s, ok := trimmedString(v)
	if !ok {
		return nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format(DateLayout)
		}
	}
	return nil
}
