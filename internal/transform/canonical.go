// Package transform cleans a raw candidate dataset into the fixed canonical
// schema the warehouse loader consumes: canonical column names, typed and
// defaulted values, and the derived hire decision.
package transform

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ShadowBlack33/workshop1-etl/internal/dataset"
)

// Canonical column names, in the fixed order every downstream stage relies on.
// ColHired is appended by the Classifier.
const (
	ColFirstName      = "first_name"
	ColLastName       = "last_name"
	ColEmail          = "email"
	ColSeniority      = "seniority"
	ColYoe            = "yoe"
	ColTechnology     = "technology"
	ColCountry        = "country"
	ColDate           = "application_date"
	ColCodeChallenge  = "code_challenge_score"
	ColTechInterview  = "technical_interview_score"
	ColHired          = "hired"
)

// CanonicalColumns is the normalizer's output order (without the derived
// hired column).
func CanonicalColumns() []string {
	return []string{
		ColFirstName, ColLastName, ColEmail, ColSeniority, ColYoe,
		ColTechnology, ColCountry, ColDate, ColCodeChallenge, ColTechInterview,
	}
}

// Canonicalizer maps variant input column names onto the canonical schema.
//
// Resolution happens in two steps: the header is normalized to lowercase
// ASCII with underscores (accent-stripped), then looked up in the synonym
// table. Headers with no synonym entry pass through in normalized form; they
// are not an error.
type Canonicalizer struct {
	synonyms map[string]string
}

// NewCanonicalizer returns a Canonicalizer with the default synonym table
// (English and Spanish header variants seen in upstream exports).
func NewCanonicalizer() *Canonicalizer {
	return &Canonicalizer{synonyms: defaultSynonyms()}
}

// NewCanonicalizerWithSynonyms returns a Canonicalizer with an explicit
// normalized-name to canonical-name table. Intended for tests.
func NewCanonicalizerWithSynonyms(synonyms map[string]string) *Canonicalizer {
	return &Canonicalizer{synonyms: synonyms}
}

func defaultSynonyms() map[string]string {
	syn := map[string]string{}
	add := func(canonical string, variants ...string) {
		syn[canonical] = canonical
		for _, v := range variants {
			syn[v] = canonical
		}
	}

	add(ColFirstName, "firstname", "name", "nombre", "given_name")
	add(ColLastName, "lastname", "surname", "apellido", "family_name")
	add(ColEmail, "e_mail", "mail", "correo", "email_address")
	add(ColSeniority, "level", "nivel", "seniority_level")
	add(ColYoe, "years_of_experience", "experience_years", "anos_de_experiencia", "experiencia")
	add(ColTechnology, "tech", "stack", "tecnologia", "tech_stack")
	add(ColCountry, "pais", "nation", "country_name")
	add(ColDate, "date", "applied_at", "fecha_de_aplicacion", "fecha_aplicacion", "application_dt")
	add(ColCodeChallenge, "code_challenge", "challenge_score", "puntaje_reto_codigo", "code_score")
	add(ColTechInterview, "technical_interview", "interview_score", "puntaje_entrevista_tecnica", "tech_interview_score")

	return syn
}

// Apply returns a dataset whose columns are canonical names.
//
// Duplicate targets: when two input columns canonicalize to the same name,
// the later column's values overwrite the earlier while keeping the earlier
// column's position (dict-update semantics). Missing canonical columns are
// NOT synthesized here; the Normalizer does that.
func (c *Canonicalizer) Apply(ds *dataset.Dataset) *dataset.Dataset {
	names := make([]string, 0, len(ds.Columns))
	srcFor := map[string]int{} // canonical name -> winning source index

	for i, col := range ds.Columns {
		name := c.Resolve(col)
		if _, seen := srcFor[name]; !seen {
			names = append(names, name)
		}
		srcFor[name] = i
	}

	out := dataset.New(names)
	for _, row := range ds.Rows {
		nr := make([]any, len(names))
		for j, name := range names {
			nr[j] = row[srcFor[name]]
		}
		out.Append(nr)
	}
	return out
}

// Resolve maps a single header to its canonical (or normalized pass-through)
// name.
func (c *Canonicalizer) Resolve(header string) string {
	n := NormalizeHeader(header)
	if canonical, ok := c.synonyms[n]; ok {
		return canonical
	}
	return n
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader lowercases a header, strips accents, collapses runs of
// non-alphanumerics to a single underscore and trims edge underscores.
//
//	"Código Challenge " -> "codigo_challenge"
//	"Tecnología"        -> "tecnologia"
func NormalizeHeader(h string) string {
	if s, _, err := transform.String(stripAccents, h); err == nil {
		h = s
	}
	h = strings.ToLower(h)

	var b strings.Builder
	b.Grow(len(h))
	pendingSep := false
	for _, r := range h {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
