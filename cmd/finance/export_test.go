package main

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/sheets"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	*sheets.MockWriter
	id string
}

func (f *fakeExporter) SpreadsheetID() string {
	return f.id
}

func stubSheets(t *testing.T) *fakeExporter {
	t.Helper()

	viper.Set("sheets.client_id", "client")
	viper.Set("sheets.client_secret", "secret")
	viper.Set("sheets.refresh_token", "refresh")

	fake := &fakeExporter{MockWriter: sheets.NewMockWriter(), id: "sheet-123"}
	prev := newSheetsWriter
	newSheetsWriter = func(_ context.Context, cfg sheets.Config) (sheetsExporter, error) {
		assert.Equal(t, "USD", cfg.Currency)
		return fake, nil
	}
	t.Cleanup(func() { newSheetsWriter = prev })

	return fake
}

func TestExportSheets(t *testing.T) {
	setupDataDir(t)
	signupAda(t)
	fake := stubSheets(t)

	_, err := execute(t, income(), "", "add", "-a", "1000", "-c", "Salary", "-d", "2024-01-01")
	require.NoError(t, err)
	_, err = execute(t, expense(), "", "add", "-a", "250", "-c", "Rent", "-d", "2024-01-02")
	require.NoError(t, err)

	out, err := execute(t, exportCmd(), "", "sheets")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 records to Google Sheets")
	assert.Contains(t, out, "https://docs.google.com/spreadsheets/d/sheet-123")

	require.Equal(t, 1, fake.WriteCallCount)
	assert.Len(t, fake.LastRecords, 2)
	assert.Equal(t, "750", fake.LastSummary.Balance.String())
}

func TestExportSheets_Failures(t *testing.T) {
	setupDataDir(t)
	signupAda(t)

	_, err := execute(t, exportCmd(), "", "sheets")
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	fake := stubSheets(t)
	errQuota := errors.New("quota exceeded")
	fake.SetWriteError(errQuota)

	_, err = execute(t, exportCmd(), "", "sheets")
	assert.ErrorIs(t, err, errQuota)
}

func TestSheetsAuth_RequiresClient(t *testing.T) {
	setupDataDir(t)

	_, err := execute(t, exportCmd(), "", "sheets", "auth")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
