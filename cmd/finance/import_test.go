package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/importer"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyFixture(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestImportOFX(t *testing.T) {
	dir := setupDataDir(t)
	signupAda(t)
	statement := copyFixture(t, t.TempDir(), "checking.ofx")

	out, err := execute(t, importCmd(), "", "ofx", statement)
	require.NoError(t, err)
	assert.Contains(t, out, "Checkpoint auto-import-")
	assert.Contains(t, out, "Imported 2 new record(s)")

	out, err = execute(t, importCmd(), "", "ofx", "--no-checkpoint", filepath.Join(filepath.Dir(statement), "*.ofx"))
	require.NoError(t, err)
	assert.NotContains(t, out, "Checkpoint")
	assert.Contains(t, out, "Imported 0 new record(s), skipped 2 already imported")

	out, err = execute(t, expense(), "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "$25.50")

	out, err = execute(t, income(), "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Salary")
	assert.Contains(t, out, "$3,200.00")

	entries, err := os.ReadDir(filepath.Join(dir, "checkpoints"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestImportOFX_Errors(t *testing.T) {
	setupDataDir(t)
	signupAda(t)

	_, err := execute(t, importCmd(), "", "ofx", filepath.Join(t.TempDir(), "missing-*.qfx"))
	require.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.ofx")
	require.NoError(t, os.WriteFile(garbage, []byte("not an ofx file"), 0o600))

	_, err = execute(t, importCmd(), "", "ofx", "--no-checkpoint", garbage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files could not be imported")
}

func stubPlaid(t *testing.T, fetcher importer.TransactionFetcher) {
	t.Helper()

	viper.Set("plaid.client_id", "client")
	viper.Set("plaid.secret", "secret")
	viper.Set("plaid.access_token", "access-sandbox-123")

	prev := newPlaidFetcher
	newPlaidFetcher = func(cfg importer.PlaidConfig) (importer.TransactionFetcher, error) {
		assert.Equal(t, "access-sandbox-123", cfg.AccessToken)
		return fetcher, nil
	}
	t.Cleanup(func() { newPlaidFetcher = prev })
}

func TestImportPlaid(t *testing.T) {
	setupDataDir(t)
	signupAda(t)

	coffee := testutil.Record(model.TypeExpense, "4.75", "Food", "2024-03-02")
	coffee.ExtraNote = importer.Marker("plaid", "tx-1")
	fetcher := &importer.MockFetcher{
		GetTransactionsFn: func(_ context.Context, _, _ time.Time) ([]model.Record, error) {
			return []model.Record{coffee}, nil
		},
	}
	stubPlaid(t, fetcher)

	out, err := execute(t, importCmd(), "", "plaid", "--start", "2024-03-01", "--end", "2024-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 new record(s)")

	require.Len(t, fetcher.GetTransactionsCalls, 1)
	call := fetcher.GetTransactionsCalls[0]
	assert.Equal(t, "2024-03-01", call.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2024-03-31", call.EndDate.Format("2006-01-02"))

	out, err = execute(t, importCmd(), "", "plaid", "--no-checkpoint")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped 1 already imported")
}

func TestImportPlaid_Failures(t *testing.T) {
	setupDataDir(t)
	signupAda(t)

	_, err := execute(t, importCmd(), "", "plaid")
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	errDown := errors.New("plaid is down")
	stubPlaid(t, &importer.MockFetcher{
		GetTransactionsFn: func(_ context.Context, _, _ time.Time) ([]model.Record, error) {
			return nil, errDown
		},
	})

	_, err = execute(t, importCmd(), "", "plaid", "--no-checkpoint")
	assert.ErrorIs(t, err, errDown)

	out, err := execute(t, importCmd(), "", "plaid", "--no-checkpoint", "--days", "0")
	require.Error(t, err, out)
}

func TestImportWindow(t *testing.T) {
	now := time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)

	w, err := importWindow(now, 30, "", "")
	require.NoError(t, err)
	assert.Equal(t, now, w.end)
	assert.Equal(t, now.AddDate(0, 0, -30), w.start)

	w, err = importWindow(now, 30, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.start)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), w.end)

	_, err = importWindow(now, 30, "2024-02-01", "2024-01-01")
	assert.Error(t, err)
	_, err = importWindow(now, 30, "yesterday", "")
	assert.Error(t, err)
	_, err = importWindow(now, -1, "", "")
	assert.Error(t, err)
}

func TestImportSimpleFIN(t *testing.T) {
	dir := setupDataDir(t)
	signupAda(t)
	t.Setenv("SIMPLEFIN_TOKEN", "")

	_, err := execute(t, importCmd(), "", "simplefin", "--no-checkpoint")
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	rent := testutil.Record(model.TypeExpense, "1200", "Rent", "2024-03-01")
	rent.ExtraNote = importer.Marker("simplefin", "ACT-1_t9")

	prev := newSimpleFINFetcher
	var gotToken, gotPath string
	newSimpleFINFetcher = func(_ context.Context, token, statePath string) (importer.TransactionFetcher, error) {
		gotToken, gotPath = token, statePath
		return &importer.MockFetcher{
			GetTransactionsFn: func(_ context.Context, _, _ time.Time) ([]model.Record, error) {
				return []model.Record{rent}, nil
			},
		}, nil
	}
	t.Cleanup(func() { newSimpleFINFetcher = prev })

	viper.Set("simplefin.token", "c2V0dXA=")
	out, err := execute(t, importCmd(), "", "simplefin", "--start", "2024-03-01", "--end", "2024-03-31")
	require.NoError(t, err, out)
	assert.Equal(t, "c2V0dXA=", gotToken)
	assert.Equal(t, importer.SimpleFINStatePath(dir), gotPath)
	assert.Contains(t, out, "Checkpoint auto-simplefin-")
	assert.Contains(t, out, "Imported 1 new record")

	out, err = execute(t, importCmd(), "", "simplefin", "--token", "b3ZlcnJpZGU=", "--no-checkpoint", "--days", "7")
	require.NoError(t, err, out)
	assert.Equal(t, "b3ZlcnJpZGU=", gotToken)
	assert.Contains(t, out, "skipped 1 already imported")
}
