// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical on-disk representation of a record date.
const DateLayout = "2006-01-02"

// RecordType is the transaction kind discriminator.
type RecordType string

const (
	// TypeIncome marks money coming in.
	TypeIncome RecordType = "Income"
	// TypeExpense marks money going out.
	TypeExpense RecordType = "Expense"
	// TypeInvestment marks money moved into investments.
	TypeInvestment RecordType = "Investment"
)

// RecordTypes lists every valid record type in display order.
var RecordTypes = []RecordType{TypeIncome, TypeExpense, TypeInvestment}

// Valid reports whether t is one of the enumerated record types.
func (t RecordType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeInvestment:
		return true
	}
	return false
}

// ParseRecordType parses a record type case-insensitively.
func ParseRecordType(s string) (RecordType, error) {
	for _, t := range RecordTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown record type %q", s)
}

// Record is a single income, expense or investment entry in the ledger.
type Record struct {
	Date        time.Time // zero when missing or unparsable
	Units       decimal.NullDecimal
	SinglePrice decimal.NullDecimal
	Amount      decimal.Decimal
	Type        RecordType
	Category    string
	Note        string
	PaidVia     string
	ExtraNote   string
	ID          int64
}

// HasDate reports whether the record carries a valid calendar date.
func (r Record) HasDate() bool {
	return !r.Date.IsZero()
}

// NormalizeDate truncates t to midnight UTC of its calendar day.
func NormalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a date in the canonical layout, also accepting a
// trailing time component as older stores wrote full timestamps.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// FormatDate renders a date in the canonical layout, or "" for a zero date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Equal reports whether two records hold the same values.
func (r Record) Equal(o Record) bool {
	return r.ID == o.ID &&
		r.Type == o.Type &&
		r.Amount.Equal(o.Amount) &&
		r.Category == o.Category &&
		r.Date.Equal(o.Date) &&
		r.Note == o.Note &&
		r.PaidVia == o.PaidVia &&
		nullEqual(r.Units, o.Units) &&
		nullEqual(r.SinglePrice, o.SinglePrice) &&
		r.ExtraNote == o.ExtraNote
}

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
