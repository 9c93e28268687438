package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// ValidateRecord checks the invariants every stored record must satisfy
// when it enters the ledger.
func ValidateRecord(r model.Record) error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", common.ErrInvalidRecord, r.Type)
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("%w: amount %s is negative", common.ErrInvalidRecord, r.Amount)
	}
	if r.Units.Valid && r.Units.Decimal.IsNegative() {
		return fmt.Errorf("%w: units %s is negative", common.ErrInvalidRecord, r.Units.Decimal)
	}
	if r.SinglePrice.Valid && r.SinglePrice.Decimal.IsNegative() {
		return fmt.Errorf("%w: price %s is negative", common.ErrInvalidRecord, r.SinglePrice.Decimal)
	}
	return nil
}
