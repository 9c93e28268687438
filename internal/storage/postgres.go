package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS records (
	id BIGINT PRIMARY KEY,
	position INTEGER NOT NULL,
	type TEXT NOT NULL,
	amount NUMERIC NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	date DATE,
	note TEXT NOT NULL DEFAULT '',
	paid_via TEXT NOT NULL DEFAULT '',
	units NUMERIC,
	single_price NUMERIC,
	extra_note TEXT NOT NULL DEFAULT ''
)`

var postgresColumns = []string{
	"id", "position", "type", "amount", "category", "date",
	"note", "paid_via", "units", "single_price", "extra_note",
}

// PostgresStore implements RecordStore on a PostgreSQL database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore connects to dsn and creates the records table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{
		pool:   pool,
		logger: slog.Default().With("component", "postgres_store"),
	}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Load returns all records ordered by their ledger position.
func (s *PostgresStore) Load(ctx context.Context) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, type, amount::text, category, COALESCE(to_char(date, 'YYYY-MM-DD'), ''),
			note, paid_via, units::text, single_price::text, extra_note
		FROM records
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var (
			rec                model.Record
			typ, amount, date  string
			units, singlePrice *string
		)
		if err := rows.Scan(&rec.ID, &typ, &amount, &rec.Category, &date, &rec.Note,
			&rec.PaidVia, &units, &singlePrice, &rec.ExtraNote); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		scanRecordColumns(&rec, typ, amount, date, toNullString(units), toNullString(singlePrice))
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// SaveAll replaces the stored records inside one transaction using COPY.
func (s *PostgresStore) SaveAll(ctx context.Context, records []model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("Failed to roll back", "error", rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	rows := make([][]any, 0, len(records))
	for i, r := range records {
		var date any
		if r.HasDate() {
			date = r.Date
		}
		rows = append(rows, []any{
			r.ID, int32(i), string(r.Type), r.Amount.String(), r.Category, date,
			r.Note, r.PaidVia, nullDecimalText(r.Units), nullDecimalText(r.SinglePrice), r.ExtraNote,
		})
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"records"}, postgresColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to copy records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}

	s.logger.Debug("Saved records", "count", len(records))
	return nil
}

func nullDecimalText(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
