package transform

import (
	"reflect"
	"testing"

	"github.com/ShadowBlack33/workshop1-etl/internal/dataset"
)

func TestNormalizeHeader(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"First Name", "first_name"},
		{"  Email  ", "email"},
		{"Tecnología", "tecnologia"},
		{"Años de Experiencia", "anos_de_experiencia"},
		{"code-challenge score", "code_challenge_score"},
		{"YOE", "yoe"},
		{"__weird__header__", "weird_header"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeHeader(c.in); got != c.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolveVariants(t *testing.T) {
	c := NewCanonicalizer()

	cases := []struct {
		in   string
		want string
	}{
		{"Tech", ColTechnology},
		{"stack", ColTechnology},
		{"Tecnología", ColTechnology},
		{"technology", ColTechnology},
		{"E-Mail", ColEmail},
		{"País", ColCountry},
		{"Years of Experience", ColYoe},
		{"Applied At", ColDate},
		// unknown headers pass through normalized, not dropped
		{"Some Extra Field", "some_extra_field"},
	}
	for _, tc := range cases {
		if got := c.Resolve(tc.in); got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalizerApplyRenames(t *testing.T) {
	ds := dataset.New([]string{"Tech", "E-Mail", "extra"})
	ds.Append([]any{"Go", "a@x.com", "keep"})

	out := NewCanonicalizer().Apply(ds)

	want := []string{ColTechnology, ColEmail, "extra"}
	if !reflect.DeepEqual(out.Columns, want) {
		t.Fatalf("columns = %v, want %v", out.Columns, want)
	}
	if got := out.Rows[0][0]; got != "Go" {
		t.Errorf("row value moved: got %v", got)
	}
}

func TestCanonicalizerApplyIdempotent(t *testing.T) {
	ds := dataset.New(CanonicalColumns())
	ds.Append([]any{"Ada", "L", "a@x.com", "Junior", "2", "Go", "Brazil", "2023-01-15", "8", "9"})

	once := NewCanonicalizer().Apply(ds)
	twice := NewCanonicalizer().Apply(once)

	if !reflect.DeepEqual(once.Columns, twice.Columns) {
		t.Fatalf("not idempotent: %v vs %v", once.Columns, twice.Columns)
	}
	if !reflect.DeepEqual(once.Rows, twice.Rows) {
		t.Fatalf("rows changed on second pass")
	}
}

func TestCanonicalizerDuplicateTargetsLaterWins(t *testing.T) {
	// Both "Tech" and "stack" map to technology; the later column's values win
	// but the column keeps its first position.
	ds := dataset.New([]string{"Tech", ColEmail, "stack"})
	ds.Append([]any{"Go", "a@x.com", "Python"})

	out := NewCanonicalizer().Apply(ds)

	if len(out.Columns) != 2 {
		t.Fatalf("columns = %v, want 2 entries", out.Columns)
	}
	if out.Columns[0] != ColTechnology || out.Columns[1] != ColEmail {
		t.Fatalf("column order = %v", out.Columns)
	}
	if got := out.Rows[0][0]; got != "Python" {
		t.Errorf("technology = %v, want later column's value", got)
	}
}
