// Package ledger holds the in-memory record table for the active session and
// keeps it in lockstep with the record store.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/storage"
)

// Ledger is an ordered table of records backed by a RecordStore. Every
// mutation is written through with SaveAll; if the write fails the mutation
// is undone so memory and storage never diverge.
type Ledger struct {
	store   storage.RecordStore
	warning error
	logger  *slog.Logger
	records []model.Record
	nextID  int64
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Type     model.RecordType
	Category string
	Month    time.Month
	Year     int
}

// Open loads the ledger from store. A store that cannot be read yields an
// empty ledger and the load error is kept as a warning.
func Open(ctx context.Context, store storage.RecordStore) *Ledger {
	l := &Ledger{
		store:   store,
		logger:  slog.Default().With("component", "ledger"),
		records: []model.Record{},
		nextID:  1,
	}

	records, err := store.Load(ctx)
	if err != nil {
		l.warning = err
		l.logger.Warn("Failed to load records, starting with an empty ledger", "error", err)
		return l
	}

	l.records = records
	for _, r := range records {
		if r.ID >= l.nextID {
			l.nextID = r.ID + 1
		}
	}
	l.logger.Debug("Ledger opened", "records", len(records))
	return l
}

// Warning returns the error encountered while loading, if any.
func (l *Ledger) Warning() error {
	return l.warning
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of all records in ledger order.
func (l *Ledger) Records() []model.Record {
	out := make([]model.Record, len(l.records))
	copy(out, l.records)
	return out
}

// Get returns the record with the given ID.
func (l *Ledger) Get(id int64) (model.Record, bool) {
	i := l.indexOf(id)
	if i < 0 {
		return model.Record{}, false
	}
	return l.records[i], true
}

// IndexOf returns the current position of the record with the given ID, or -1.
func (l *Ledger) IndexOf(id int64) int {
	return l.indexOf(id)
}

// Append validates rec, assigns it the next ID and adds it to the end.
func (l *Ledger) Append(ctx context.Context, rec model.Record) (model.Record, error) {
	added, err := l.AppendAll(ctx, []model.Record{rec})
	if err != nil {
		return model.Record{}, err
	}
	return added[0], nil
}

// AppendAll adds records in order with a single save.
func (l *Ledger) AppendAll(ctx context.Context, recs []model.Record) ([]model.Record, error) {
	if len(recs) == 0 {
		return []model.Record{}, nil
	}

	prepared := make([]model.Record, 0, len(recs))
	for i, rec := range recs {
		p, err := prepare(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		prepared = append(prepared, p)
	}

	prevLen, prevNext := len(l.records), l.nextID
	for i := range prepared {
		prepared[i].ID = l.nextID
		l.nextID++
	}
	l.records = append(l.records, prepared...)

	if err := l.save(ctx); err != nil {
		l.records = l.records[:prevLen:prevLen]
		l.nextID = prevNext
		return nil, err
	}

	l.logger.Debug("Appended records", "count", len(prepared))
	out := make([]model.Record, len(prepared))
	copy(out, prepared)
	return out, nil
}

// UpdateAt replaces the record at index, keeping its ID.
func (l *Ledger) UpdateAt(ctx context.Context, index int, rec model.Record) (model.Record, error) {
	if index < 0 || index >= len(l.records) {
		return model.Record{}, l.indexError(index)
	}

	p, err := prepare(rec)
	if err != nil {
		return model.Record{}, err
	}

	prev := l.records[index]
	p.ID = prev.ID
	l.records[index] = p

	if err := l.save(ctx); err != nil {
		l.records[index] = prev
		return model.Record{}, err
	}
	return p, nil
}

// RemoveAt deletes the record at index.
func (l *Ledger) RemoveAt(ctx context.Context, index int) (model.Record, error) {
	if index < 0 || index >= len(l.records) {
		return model.Record{}, l.indexError(index)
	}

	prev := l.Records()
	removed := l.records[index]
	l.records = append(l.records[:index:index], l.records[index+1:]...)

	if err := l.save(ctx); err != nil {
		l.records = prev
		return model.Record{}, err
	}
	return removed, nil
}

// Update replaces the record with the given ID.
func (l *Ledger) Update(ctx context.Context, id int64, rec model.Record) (model.Record, error) {
	i := l.indexOf(id)
	if i < 0 {
		return model.Record{}, l.idError(id)
	}
	return l.UpdateAt(ctx, i, rec)
}

// Remove deletes the record with the given ID.
func (l *Ledger) Remove(ctx context.Context, id int64) (model.Record, error) {
	i := l.indexOf(id)
	if i < 0 {
		return model.Record{}, l.idError(id)
	}
	return l.RemoveAt(ctx, i)
}

// FilterByType returns records of type t in ledger order.
func (l *Ledger) FilterByType(t model.RecordType) []model.Record {
	return l.Filter(Filter{Type: t})
}

// Filter returns the records matching f in ledger order.
func (l *Ledger) Filter(f Filter) []model.Record {
	out := []model.Record{}
	for _, r := range l.records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r model.Record) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Category != "" && !strings.EqualFold(r.Category, f.Category) {
		return false
	}
	if f.Month != 0 && (!r.HasDate() || r.Date.Month() != f.Month) {
		return false
	}
	if f.Year != 0 && (!r.HasDate() || r.Date.Year() != f.Year) {
		return false
	}
	return true
}

func (l *Ledger) save(ctx context.Context) error {
	if err := l.store.SaveAll(ctx, l.records); err != nil {
		l.logger.Error("Failed to save ledger", "error", err)
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

func (l *Ledger) indexOf(id int64) int {
	for i, r := range l.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) indexError(index int) error {
	l.logger.Warn("Stale record index", "index", index, "len", len(l.records))
	return fmt.Errorf("%w: %d (ledger has %d records)", common.ErrInvalidIndex, index, len(l.records))
}

func (l *Ledger) idError(id int64) error {
	l.logger.Warn("Stale record id", "id", id)
	return fmt.Errorf("%w: no record with id %d", common.ErrInvalidIndex, id)
}

// prepare validates a record and brings it into canonical form.
func prepare(rec model.Record) (model.Record, error) {
	rec.Date = model.NormalizeDate(rec.Date)
	rec.Category = model.CanonicalCategory(rec.Type, rec.Category)

	if rec.Type == model.TypeInvestment && rec.Amount.IsZero() &&
		rec.Units.Valid && rec.SinglePrice.Valid {
		rec.Amount = rec.Units.Decimal.Mul(rec.SinglePrice.Decimal)
	}

	if err := storage.ValidateRecord(rec); err != nil {
		return model.Record{}, err
	}
	return rec, nil
}
