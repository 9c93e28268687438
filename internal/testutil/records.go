package testutil

import (
	"time"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/shopspring/decimal"
)

// RecordBuilder provides a fluent interface for constructing test records.
//
// Example:
//
//	records := testutil.NewRecordBuilder().
//		Income("5000", "Salary", "2024-01-10").
//		Expense("1200", "Rent", "2024-01-15").
//		Build()
type RecordBuilder struct {
	records []model.Record
	nextID  int64
}

// NewRecordBuilder returns an empty builder. Built records get IDs from 1.
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{nextID: 1}
}

// Income adds an income record.
func (b *RecordBuilder) Income(amount, category, date string) *RecordBuilder {
	return b.With(Record(model.TypeIncome, amount, category, date))
}

// Expense adds an expense record.
func (b *RecordBuilder) Expense(amount, category, date string) *RecordBuilder {
	return b.With(Record(model.TypeExpense, amount, category, date))
}

// Investment adds an investment record bought as units at price.
func (b *RecordBuilder) Investment(units, price, category, date string) *RecordBuilder {
	r := Record(model.TypeInvestment, "0", category, date)
	r.Units = decimal.NewNullDecimal(decimal.RequireFromString(units))
	r.SinglePrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
	r.Amount = r.Units.Decimal.Mul(r.SinglePrice.Decimal)
	return b.With(r)
}

// With adds an arbitrary record, assigning an ID if it has none.
func (b *RecordBuilder) With(r model.Record) *RecordBuilder {
	if r.ID == 0 {
		r.ID = b.nextID
	}
	if r.ID >= b.nextID {
		b.nextID = r.ID + 1
	}
	b.records = append(b.records, r)
	return b
}

// Build returns the accumulated records.
func (b *RecordBuilder) Build() []model.Record {
	return append([]model.Record{}, b.records...)
}

// Record makes an unsaved record. An empty or unparsable date yields a zero
// date. It panics on a malformed amount.
func Record(t model.RecordType, amount, category, date string) model.Record {
	r := model.Record{
		Type:     t,
		Amount:   decimal.RequireFromString(amount),
		Category: category,
	}
	if parsed, err := model.ParseDate(date); err == nil {
		r.Date = parsed
	}
	return r
}

// Date is a shorthand for a midnight UTC date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
