package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/smart-finance/internal/common"
)

// ExpectedSchemaVersion is the schema version Migrate brings a database to.
const ExpectedSchemaVersion = 3

// Migration is one numbered schema step. Steps run in order, each in its own
// transaction, and PRAGMA user_version records the last one applied.
type Migration struct {
	Description string
	Statements  []string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Create records table",
		Statements: []string{`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY,
			position INTEGER NOT NULL,
			type TEXT NOT NULL,
			amount TEXT NOT NULL DEFAULT '0',
			category TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			paid_via TEXT NOT NULL DEFAULT '',
			units TEXT,
			single_price TEXT,
			extra_note TEXT NOT NULL DEFAULT ''
		)`},
	},
	{
		Version:     2,
		Description: "Index records by position and type",
		Statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_records_position ON records(position)`,
			`CREATE INDEX IF NOT EXISTS idx_records_type_date ON records(type, date)`,
		},
	},
	{
		Version:     3,
		Description: "Index import markers",
		Statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_records_extra_note ON records(extra_note) WHERE extra_note LIKE 'import:%'`,
		},
	},
}

// Migrate applies every migration newer than the database's user_version.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	version, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= version {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		slog.Info("Applied record store migration", "version", m.Version, "description", m.Description)
	}

	version, err = s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d", common.ErrStoreCorrupted, version, ExpectedSchemaVersion)
	}
	return nil
}

func (s *SQLiteStore) schemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func (s *SQLiteStore) apply(ctx context.Context, m Migration) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range m.Statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
	}
	// PRAGMA does not accept bound parameters
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", m.Version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}
