// Package testutil provides shared test helpers: record stores with failure
// injection and a fluent builder for ledger records.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/storage"
)

// ErrInjected is returned by MemoryStore when a failure is requested.
var ErrInjected = errors.New("injected store failure")

// MemoryStore is an in-memory storage.RecordStore for tests.
type MemoryStore struct {
	LoadErr   error
	SaveErr   error
	records   []model.Record
	SaveCalls int
	mu        sync.Mutex
}

// NewMemoryStore returns a store preloaded with records.
func NewMemoryStore(records ...model.Record) *MemoryStore {
	return &MemoryStore{records: append([]model.Record{}, records...)}
}

// Load returns a copy of the stored records or LoadErr.
func (m *MemoryStore) Load(_ context.Context) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return append([]model.Record{}, m.records...), nil
}

// SaveAll replaces the stored records unless SaveErr is set.
func (m *MemoryStore) SaveAll(_ context.Context, records []model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.records = append([]model.Record{}, records...)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// Snapshot returns what was last saved.
func (m *MemoryStore) Snapshot() []model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Record{}, m.records...)
}

// SetupTestStore creates a migrated in-memory SQLite store seeded with
// records. It is closed automatically when the test finishes.
func SetupTestStore(t *testing.T, records ...model.Record) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(records) > 0 {
		if err := store.SaveAll(ctx, records); err != nil {
			t.Fatalf("failed to seed records: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
