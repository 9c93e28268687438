package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/shopspring/decimal"
)

func createTestRecords() []model.Record {
	return []model.Record{
		{
			ID:       1,
			Type:     model.TypeIncome,
			Amount:   decimal.RequireFromString("5000"),
			Category: "Salary",
			Date:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			Note:     "January pay",
			PaidVia:  "Bank",
		},
		{
			ID:       2,
			Type:     model.TypeExpense,
			Amount:   decimal.RequireFromString("120.50"),
			Category: "Food",
			Date:     time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
			Note:     "Groceries, weekly",
		},
		{
			ID:          3,
			Type:        model.TypeInvestment,
			Amount:      decimal.RequireFromString("300"),
			Category:    "Mutual Funds",
			Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Units:       decimal.NewNullDecimal(decimal.RequireFromString("3")),
			SinglePrice: decimal.NewNullDecimal(decimal.RequireFromString("100")),
			ExtraNote:   "SIP \"monthly\"",
		},
	}
}

func assertRecordsEqual(t *testing.T, want, got []model.Record) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if !want[i].Equal(got[i]) {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCSVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "expenses.csv")

	store, err := NewCSVStore(path)
	if err != nil {
		t.Fatalf("NewCSVStore() error = %v", err)
	}

	records := createTestRecords()
	if err := store.SaveAll(ctx, records); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertRecordsEqual(t, records, got)

	if err := store.SaveAll(ctx, nil); err != nil {
		t.Fatalf("SaveAll(nil) error = %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after clearing error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty store, got %d records", len(got))
	}
}

func TestCSVStore_LoadEdgeCases(t *testing.T) {
	tests := []struct {
		check   func(t *testing.T, records []model.Record)
		name    string
		content string
		create  bool
		wantErr error
	}{
		{
			name: "missing file",
			check: func(t *testing.T, records []model.Record) {
				if len(records) != 0 {
					t.Errorf("expected no records, got %d", len(records))
				}
			},
		},
		{
			name:   "zero byte file",
			create: true,
			check: func(t *testing.T, records []model.Record) {
				if records == nil || len(records) != 0 {
					t.Errorf("expected empty non-nil slice, got %#v", records)
				}
			},
		},
		{
			name:    "header only",
			create:  true,
			content: "ID,Type,Amount,Category,Date,Note,PaidVia,Units,SinglePrice,ExtraNote\n",
			check: func(t *testing.T, records []model.Record) {
				if len(records) != 0 {
					t.Errorf("expected no records, got %d", len(records))
				}
			},
		},
		{
			name:    "legacy file without id and optional columns",
			create:  true,
			content: "Type,Amount,Category,Date,Note\nIncome,100,Salary,2024-01-10,pay\nExpense,40,Food,2024-01-11 09:30:00,lunch\n",
			check: func(t *testing.T, records []model.Record) {
				if len(records) != 2 {
					t.Fatalf("expected 2 records, got %d", len(records))
				}
				if records[0].ID != 1 || records[1].ID != 2 {
					t.Errorf("expected positional ids 1,2, got %d,%d", records[0].ID, records[1].ID)
				}
				if records[1].Date != time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC) {
					t.Errorf("timestamp date not normalized: %v", records[1].Date)
				}
				if records[0].Units.Valid {
					t.Error("missing Units column should load as null")
				}
			},
		},
		{
			name:    "malformed cells become zero values",
			create:  true,
			content: "ID,Type,Amount,Category,Date\n7,Expense,abc,Food,yesterday\n,Expense,10,Food,2024-03-01\n",
			check: func(t *testing.T, records []model.Record) {
				if len(records) != 2 {
					t.Fatalf("expected 2 records, got %d", len(records))
				}
				if !records[0].Amount.IsZero() {
					t.Errorf("malformed amount should be zero, got %s", records[0].Amount)
				}
				if records[0].HasDate() {
					t.Errorf("malformed date should be zero, got %v", records[0].Date)
				}
				if records[1].ID != 8 {
					t.Errorf("missing id should continue after max id, got %d", records[1].ID)
				}
			},
		},
		{
			name:    "reordered columns",
			create:  true,
			content: "Amount,Type,Date\n12.5,income,2024-05-05\n",
			check: func(t *testing.T, records []model.Record) {
				if len(records) != 1 {
					t.Fatalf("expected 1 record, got %d", len(records))
				}
				if records[0].Type != model.TypeIncome || !records[0].Amount.Equal(decimal.RequireFromString("12.5")) {
					t.Errorf("unexpected record %+v", records[0])
				}
			},
		},
		{
			name:    "unterminated quote",
			create:  true,
			content: "Type,Amount\nIncome,\"100\n",
			check: func(t *testing.T, records []model.Record) {
				if len(records) != 1 || !records[0].Amount.Equal(decimal.NewFromInt(100)) {
					t.Errorf("expected one Income of 100, got %+v", records)
				}
			},
		},
		{
			name:    "bare quote in note",
			create:  true,
			content: "Type,Amount,Category,Date,Note\nIncome,5000,Salary,2024-01-10,pay\nExpense,1200,Rent,2024-01-15,6\" pipe\n",
			check: func(t *testing.T, records []model.Record) {
				if len(records) != 2 {
					t.Fatalf("expected 2 records, got %d", len(records))
				}
				if records[1].Note != `6" pipe` {
					t.Errorf("note = %q, want %q", records[1].Note, `6" pipe`)
				}
			},
		},
		{
			name:    "no type column",
			create:  true,
			content: "Amount,Category,Date,Note\n5000,Salary,2024-01-10,pay\n1200,Rent,2024-01-15,flat\n",
			check: func(t *testing.T, records []model.Record) {
				if len(records) != 2 {
					t.Fatalf("expected 2 records, got %d", len(records))
				}
				if records[0].Type != "" || records[1].Category != "Rent" {
					t.Errorf("unexpected records %+v", records)
				}
			},
		},
		{
			name:    "byte order mark",
			create:  true,
			content: "\uFEFFID,Type,Amount,Category,Date\n4,Income,5000,Salary,2024-01-10\n",
			check: func(t *testing.T, records []model.Record) {
				if len(records) != 1 {
					t.Fatalf("expected 1 record, got %d", len(records))
				}
				if records[0].ID != 4 || records[0].Type != model.TypeIncome {
					t.Errorf("header after a BOM not recognised: %+v", records[0])
				}
			},
		},
		{
			name:    "binary file",
			create:  true,
			content: "SQLite format 3\x00\x10\x00",
			wantErr: common.ErrStoreCorrupted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "expenses.csv")
			if tt.create {
				if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
					t.Fatalf("failed to write fixture: %v", err)
				}
			}

			store, err := NewCSVStore(path)
			if err != nil {
				t.Fatalf("NewCSVStore() error = %v", err)
			}

			records, err := store.Load(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, records)
		})
	}
}

func TestCSVStore_SaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "expenses.csv")

	store, err := NewCSVStore(path)
	if err != nil {
		t.Fatalf("NewCSVStore() error = %v", err)
	}
	if err := store.SaveAll(ctx, createTestRecords()); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "expenses.csv" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the record file, found %v", names)
	}
}

func TestNewCSVStore_EmptyPath(t *testing.T) {
	if _, err := NewCSVStore(" "); !errors.Is(err, ErrEmptyString) {
		t.Errorf("NewCSVStore(\" \") error = %v, want ErrEmptyString", err)
	}
}

func TestCSVStore_UnreadableFileMovedAsideOnSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.csv")
	original := []byte("SQLite format 3\x00\x10\x00")
	if err := os.WriteFile(path, original, 0600); err != nil {
		t.Fatal(err)
	}

	store, err := NewCSVStore(path)
	if err != nil {
		t.Fatalf("NewCSVStore() error = %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, common.ErrStoreCorrupted) {
		t.Fatalf("Load() error = %v, want ErrStoreCorrupted", err)
	}
	if err := store.SaveAll(ctx, createTestRecords()); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	backup, err := os.ReadFile(path + ".corrupt")
	if err != nil {
		t.Fatalf("expected backup of the unreadable file: %v", err)
	}
	if string(backup) != string(original) {
		t.Errorf("backup = %q, want original bytes", backup)
	}

	records, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after save error = %v", err)
	}
	if len(records) != len(createTestRecords()) {
		t.Errorf("expected %d records, got %d", len(createTestRecords()), len(records))
	}
}

func TestCSVStore_FreeTextRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "expenses.csv"))
	if err != nil {
		t.Fatalf("NewCSVStore() error = %v", err)
	}

	want := []model.Record{{
		ID:        1,
		Type:      model.TypeExpense,
		Amount:    decimal.RequireFromString("12.40"),
		Category:  "Food",
		Date:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Note:      "  lunch ",
		PaidVia:   " Card",
		ExtraNote: "6\" pipe, \"fitting\"\t",
	}}
	if err := store.SaveAll(ctx, want); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || !got[0].Equal(want[0]) {
		t.Errorf("reloaded %+v, want %+v", got, want)
	}
}
