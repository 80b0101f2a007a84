package storage

import (
	"context"
	"testing"
)

func TestSplitReference(t *testing.T) {
	cases := []struct {
		in            string
		table, column string
		ok            bool
	}{
		{"DimTechnology(technology_id)", "DimTechnology", "technology_id", true},
		{"DimDate( date_id )", "DimDate", "date_id", true},
		{"", "", "", false},
		{"NoParens", "", "", false},
		{"(col)", "", "", false},
		{"Table()", "", "", false},
	}
	for _, c := range cases {
		table, column, ok := SplitReference(c.in)
		if table != c.table || column != c.column || ok != c.ok {
			t.Errorf("SplitReference(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.in, table, column, ok, c.table, c.column, c.ok)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"  a@x.com ", "a@x.com"},
		{[]byte(" Go "), "Go"},
		{int64(42), "42"},
		{42, "42"},
		{"2023-01-15", "2023-01-15"},
	}
	for _, c := range cases {
		if got := NormalizeKey(c.in); got != c.want {
			t.Errorf("NormalizeKey(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRegisterAndNew(t *testing.T) {
	called := false
	Register("test_backend", func(ctx context.Context, cfg Config) (Repository, error) {
		called = true
		return nil, nil
	})

	if _, err := New(context.Background(), Config{Kind: "test_backend"}); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !called {
		t.Error("factory not invoked")
	}

	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Error("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("expected error for missing kind")
	}
}

func TestRegisterPanics(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}

	mustPanic("empty kind", func() {
		Register("", func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil })
	})
	mustPanic("nil factory", func() {
		Register("nilfactory", nil)
	})
	mustPanic("duplicate", func() {
		f := func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil }
		Register("dup_backend", f)
		Register("dup_backend", f)
	})
}
