// Package metrics is a small counter facade. The pipeline increments named
// counters through package-level functions; where they go is decided once at
// startup by installing a Backend. The default backend discards everything,
// so library code can emit counters unconditionally.
package metrics

import "sync"

// Labels tag a counter increment. Backends may fold them into their own tag
// format.
type Labels map[string]string

// Backend receives counter increments. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	// Flush pushes any buffered data out. Called once at the end of a run.
	Flush() error
}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Pass nil to restore the
// discarding default.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

// IncCounter adds delta to the named counter.
func IncCounter(name string, delta float64, labels Labels) {
	mu.RLock()
	b := backend
	mu.RUnlock()
	b.IncCounter(name, delta, labels)
}

// Flush flushes the installed backend.
func Flush() error {
	mu.RLock()
	b := backend
	mu.RUnlock()
	return b.Flush()
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels) {}
func (nopBackend) Flush() error                       { return nil }
