// Package storage defines the backend-agnostic warehouse repository and the
// table specifications its DDL is generated from. Concrete backends live in
// subpackages and register themselves with the factory.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to create a Repository.
//
// Kind must match a registered backend kind ("sqlite", "postgres", "mssql").
// DSN is passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the backend-agnostic interface the warehouse rebuild needs.
//
// IMPORTANT: This interface is intentionally minimal. Each backend implements
// the semantics in its own idiomatic way (Postgres ON CONFLICT, SQLite
// OR IGNORE, MSSQL NOT EXISTS merge).
//
// Transaction model: the full rebuild runs inside one transaction. After
// Begin, all other calls operate on that transaction until Commit or
// Rollback. The pipeline is single-threaded; repositories are not required
// to be safe for concurrent use.
type Repository interface {
	// Close releases backend resources. Call once at process shutdown.
	Close()

	// Begin opens the rebuild transaction. Calling Begin with a transaction
	// already open is an error.
	Begin(ctx context.Context) error
	// Commit commits the open transaction.
	Commit(ctx context.Context) error
	// Rollback aborts the open transaction. Safe to call after Commit
	// (no-op), which keeps `defer Rollback` usable.
	Rollback(ctx context.Context)

	// Reset drops the given tables if present (in reverse order, so facts go
	// before the dimensions they reference) and recreates them from spec.
	Reset(ctx context.Context, tables []TableSpec) error

	// InsertRows bulk-inserts aligned rows. With ignoreConflicts, rows that
	// violate a unique constraint are silently skipped (idempotent
	// insert-if-absent for dimensions). Returns rows actually inserted.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, ignoreConflicts bool) (int64, error)

	// SelectKeyValue loads a whole natural-key to surrogate-id mapping.
	// Map keys are NormalizeKey(raw key value).
	SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[string]int64, error)

	// EnsureIndexes creates secondary indexes (intended for after bulk load).
	EnsureIndexes(ctx context.Context, table string, indexes []IndexSpec) error

	// Query runs an arbitrary read query and materializes the result.
	// Used by the reporting layer against the finished warehouse.
	Query(ctx context.Context, sql string, args ...any) (*Result, error)
}

// Result is a fully materialized query result.
type Result struct {
	Columns []string
	Rows    [][]any
}

// ---- factories ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Call from an init() function in
// a backend package.
//
// Panics if kind is empty, f is nil, or kind is already registered. This is
// intentional to fail fast on ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
