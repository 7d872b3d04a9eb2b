package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/kengine/migrate"
)

// Mock is a configurable in-memory implementation of migrate.Ledger for
// tests. Behavior can be overridden per method through the Func fields to
// exercise error paths; by default records live in a map.
type Mock struct {
	mu      sync.Mutex
	entries map[string]string

	// EnsureSchemaFunc is called by EnsureSchema if set.
	EnsureSchemaFunc func(ctx context.Context) error

	// LookupFunc is called by Lookup if set.
	LookupFunc func(ctx context.Context, filename string) (string, bool, error)

	// RecordFunc is called by Record if set.
	RecordFunc func(ctx context.Context, filename, hash string) error

	// RecordCalls tracks the filenames passed to Record, in order.
	RecordCalls []string
}

// NewMock creates an empty Mock ledger.
func NewMock() *Mock {
	return &Mock{entries: map[string]string{}}
}

// EnsureSchema is a no-op unless EnsureSchemaFunc is set.
func (m *Mock) EnsureSchema(ctx context.Context) error {
	if m.EnsureSchemaFunc != nil {
		return m.EnsureSchemaFunc(ctx)
	}
	return nil
}

// Lookup consults the in-memory map unless LookupFunc is set.
func (m *Mock) Lookup(ctx context.Context, filename string) (string, bool, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, filename)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.entries[filename]
	return hash, ok, nil
}

// Record stores into the in-memory map unless RecordFunc is set. Like the
// real adapters it never overwrites an existing record.
func (m *Mock) Record(ctx context.Context, filename, hash string) error {
	m.mu.Lock()
	m.RecordCalls = append(m.RecordCalls, filename)
	m.mu.Unlock()

	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, filename, hash)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[filename]; !ok {
		m.entries[filename] = hash
	}
	return nil
}

// Applied returns the in-memory records ordered by filename.
func (m *Mock) Applied(ctx context.Context) ([]migrate.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]migrate.Entry, 0, len(m.entries))
	for filename, hash := range m.entries {
		entries = append(entries, migrate.Entry{Filename: filename, ContentSHA256: hash})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Filename < entries[j].Filename
	})
	return entries, nil
}
