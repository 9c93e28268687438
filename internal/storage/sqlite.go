package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements RecordStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive between calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		logger: slog.Default().With("component", "sqlite_store"),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns all records ordered by their ledger position.
func (s *SQLiteStore) Load(ctx context.Context) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, category, date, note, paid_via, units, single_price, extra_note
		FROM records
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []model.Record{}
	for rows.Next() {
		var (
			rec                model.Record
			typ, amount, date  string
			units, singlePrice sql.NullString
		)
		if err := rows.Scan(&rec.ID, &typ, &amount, &rec.Category, &date, &rec.Note,
			&rec.PaidVia, &units, &singlePrice, &rec.ExtraNote); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		scanRecordColumns(&rec, typ, amount, date, units, singlePrice)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// SaveAll replaces the stored records inside one transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, records []model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, position, type, amount, category, date, note, paid_via, units, single_price, extra_note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ID, i, string(r.Type), r.Amount.String(), r.Category, model.FormatDate(r.Date),
			r.Note, r.PaidVia, nullString(r.Units), nullString(r.SinglePrice), r.ExtraNote,
		); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}

	s.logger.Debug("Saved records", "count", len(records))
	return nil
}

// scanRecordColumns fills the typed fields of rec from their text columns,
// leaving zero values behind for anything that does not parse.
func scanRecordColumns(rec *model.Record, typ, amount, date string, units, singlePrice sql.NullString) {
	rec.Type = model.RecordType(typ)
	if t, err := model.ParseRecordType(typ); err == nil {
		rec.Type = t
	}
	if d, err := decimal.NewFromString(amount); err == nil {
		rec.Amount = d
	}
	if t, err := model.ParseDate(date); err == nil {
		rec.Date = t
	}
	if units.Valid {
		rec.Units = parseNullDecimal(units.String)
	}
	if singlePrice.Valid {
		rec.SinglePrice = parseNullDecimal(singlePrice.String)
	}
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullString(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}
