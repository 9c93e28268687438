package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/shopspring/decimal"
)

func TestValidateContext(t *testing.T) {
	//nolint:staticcheck // deliberately passing a nil context
	if err := validateContext(nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("validateContext(nil) = %v, want ErrNilContext", err)
	}
	if err := validateContext(context.Background()); err != nil {
		t.Errorf("validateContext(ctx) = %v", err)
	}
}

func TestValidateRecord(t *testing.T) {
	valid := model.Record{Type: model.TypeExpense, Amount: decimal.NewFromInt(10)}

	tests := []struct {
		name    string
		mutate  func(r *model.Record)
		wantErr bool
	}{
		{name: "valid", mutate: func(_ *model.Record) {}},
		{name: "zero amount", mutate: func(r *model.Record) { r.Amount = decimal.Zero }},
		{name: "unknown type", mutate: func(r *model.Record) { r.Type = "Transfer" }, wantErr: true},
		{name: "negative amount", mutate: func(r *model.Record) { r.Amount = decimal.NewFromInt(-1) }, wantErr: true},
		{
			name:    "negative units",
			mutate:  func(r *model.Record) { r.Units = decimal.NewNullDecimal(decimal.NewFromInt(-2)) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := ValidateRecord(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, common.ErrInvalidRecord) {
				t.Errorf("error %v does not wrap ErrInvalidRecord", err)
			}
		})
	}
}
