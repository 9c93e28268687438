// Package storage provides the data persistence layer for the ledger.
package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
)

// RecordStore persists the ordered sequence of ledger records.
//
// Load returns an empty slice and a nil error when nothing has been saved yet.
// SaveAll replaces the stored sequence with records in a single step.
type RecordStore interface {
	Load(ctx context.Context) ([]model.Record, error)
	SaveAll(ctx context.Context, records []model.Record) error
	Close() error
}

// Store backends.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and locates the record store.
type Options struct {
	Backend string
	Path    string
	DSN     string
}

// Open returns the record store selected by settings.
func Open(ctx context.Context, settings Options) (RecordStore, error) {
	switch settings.Backend {
	case BackendCSV, "":
		return NewCSVStore(settings.Path)
	case BackendSQLite:
		store, err := NewSQLiteStore(settings.Path)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil
	case BackendPostgres:
		return NewPostgresStore(ctx, settings.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownBackend, settings.Backend)
	}
}
