package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/ledger"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	err     error
	records []model.Record
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Fetch(_ context.Context) ([]model.Record, error) {
	return s.records, s.err
}

func imported(id, amount string) model.Record {
	r := testutil.Record(model.TypeExpense, amount, "Food", "2024-02-01")
	r.ExtraNote = Marker("test", id)
	return r
}

func TestDedupe(t *testing.T) {
	manual := testutil.Record(model.TypeExpense, "5", "Food", "2024-02-01")
	existing := []model.Record{imported("a", "10"), manual}
	incoming := []model.Record{imported("a", "10"), imported("b", "20"), imported("b", "20"), manual}

	kept, skipped := Dedupe(existing, incoming)
	assert.Equal(t, 2, skipped)
	require.Len(t, kept, 2)
	assert.Equal(t, Marker("test", "b"), kept[0].ExtraNote)
	assert.False(t, IsImported(kept[1]))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	seed := imported("a", "10")
	seed.ID = 1
	store := testutil.NewMemoryStore(seed)
	l := ledger.Open(ctx, store)

	result, err := Import(ctx, l, staticSource{records: []model.Record{imported("a", "10"), imported("b", "20")}})
	require.NoError(t, err)

	assert.Equal(t, "static", result.Source)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Added, 1)
	assert.Equal(t, int64(2), result.Added[0].ID)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1, store.SaveCalls)
}

func TestImport_AllDuplicates(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore(imported("a", "10"))
	l := ledger.Open(ctx, store)

	result, err := Import(ctx, l, staticSource{records: []model.Record{imported("a", "10")}})
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Equal(t, 0, store.SaveCalls)
}

func TestImport_Errors(t *testing.T) {
	ctx := context.Background()
	l := ledger.Open(ctx, testutil.NewMemoryStore())

	_, err := Import(ctx, l, staticSource{})
	assert.ErrorIs(t, err, common.ErrNothingToImport)

	boom := errors.New("bank offline")
	_, err = Import(ctx, l, staticSource{err: boom})
	assert.ErrorIs(t, err, boom)

	store := testutil.NewMemoryStore()
	store.SaveErr = testutil.ErrInjected
	l = ledger.Open(ctx, store)
	_, err = Import(ctx, l, staticSource{records: []model.Record{imported("x", "1")}})
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, 0, l.Len())
}

func TestGuessCategory(t *testing.T) {
	tests := []struct {
		name  string
		typ   model.RecordType
		hints []string
		want  string
	}{
		{name: "grocery", typ: model.TypeExpense, hints: []string{"TRADER JOE'S", "Groceries"}, want: "Food"},
		{name: "ride share", typ: model.TypeExpense, hints: []string{"UBER *TRIP"}, want: "Transport"},
		{name: "rent", typ: model.TypeExpense, hints: []string{"Monthly Rent Payment"}, want: "Rent"},
		{name: "unknown expense", typ: model.TypeExpense, hints: []string{"Hardware Store"}, want: "Other"},
		{name: "payroll", typ: model.TypeIncome, hints: []string{"ACME PAYROLL"}, want: "Salary"},
		{name: "expense words ignored for income", typ: model.TypeIncome, hints: []string{"Restaurant refund"}, want: "Other"},
		{name: "no hints", typ: model.TypeExpense, want: "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guessCategory(tt.typ, tt.hints...))
		})
	}
}
