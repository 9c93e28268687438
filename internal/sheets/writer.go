package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/report"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ReportWriter exports the ledger somewhere outside the application.
type ReportWriter interface {
	Write(ctx context.Context, records []model.Record, summary report.Summary) error
}

// Writer implements ReportWriter for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger.With("component", "sheets"),
	}, nil
}

// SpreadsheetID returns the configured spreadsheet, empty until one exists.
func (w *Writer) SpreadsheetID() string {
	return w.config.SpreadsheetID
}

// Write replaces the contents of the Records and Summary tabs.
func (w *Writer) Write(ctx context.Context, records []model.Record, summary report.Summary) error {
	w.logger.Info("starting sheets export", "records", len(records))

	sheetIDs, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	spreadsheetID := w.config.SpreadsheetID

	data := BuildTabData(records, summary)
	tabs := map[string][][]any{
		RecordsTab: recordValues(data),
		SummaryTab: summaryValues(data),
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	for _, tab := range []string{RecordsTab, SummaryTab} {
		values := tabs[tab]
		err := common.WithRetry(ctx, func() error {
			if clearErr := w.clearSheet(ctx, spreadsheetID, tab); clearErr != nil {
				return fmt.Errorf("failed to clear %s: %w", tab, clearErr)
			}
			return w.writeData(ctx, spreadsheetID, tab, values)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", tab, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, sheetIDs, len(tabs[RecordsTab]))
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the data is already written.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("sheets export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(tabs[RecordsTab])+len(tabs[SummaryTab]))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(filepath.Clean(config.ServiceAccountPath))
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet makes sure the spreadsheet and both tabs exist and
// returns the tab sheet IDs by title.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: RecordsTab, SheetId: 0}},
				{Properties: &sheets.SheetProperties{Title: SummaryTab, SheetId: 1}},
			},
		}

		created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		w.config.SpreadsheetID = created.SpreadsheetId
		return sheetIDs(created), nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	ids := sheetIDs(existing)
	var requests []*sheets.Request
	for _, tab := range missingTabs(ids) {
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: tab},
			},
		})
	}
	if len(requests) == 0 {
		return ids, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			ids[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}
	return ids, nil
}

func sheetIDs(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sheet := range s.Sheets {
		if sheet.Properties != nil {
			ids[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}
	return ids
}

func missingTabs(ids map[string]int64) []string {
	var missing []string
	for _, tab := range []string{RecordsTab, SummaryTab} {
		if _, ok := ids[tab]; !ok {
			missing = append(missing, tab)
		}
	}
	return missing
}

// clearSheet clears all data from one tab.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID, tab string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, tab+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes values to a tab in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := fmt.Sprintf("%s!A%d", tab, i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// recordHeader is the first row of the Records tab.
var recordHeader = []any{"ID", "Date", "Type", "Category", "Amount", "Units", "Unit Price", "Note", "Paid Via", "Extra Note"}

func recordValues(data TabData) [][]any {
	values := make([][]any, 0, len(data.Records)+1)
	values = append(values, recordHeader)
	for _, r := range data.Records {
		values = append(values, []any{
			r.ID,
			model.FormatDate(r.Date),
			r.Type,
			r.Category,
			r.Amount.InexactFloat64(),
			nullCell(r.Units),
			nullCell(r.SinglePrice),
			r.Note,
			r.PaidVia,
			r.ExtraNote,
		})
	}
	return values
}

func summaryValues(data TabData) [][]any {
	values := [][]any{
		{"Finance Summary"},
		{},
		{"Total Income", data.TotalIncome.InexactFloat64()},
		{"Total Expenses", data.TotalExpenses.InexactFloat64()},
		{"Total Investments", data.TotalInvestments.InexactFloat64()},
		{"Balance", data.Balance.InexactFloat64()},
		{"Records", len(data.Records)},
	}
	if data.Undated > 0 {
		values = append(values, []any{"Records without a valid date", data.Undated})
	}

	values = append(values,
		[]any{},
		[]any{"Expenses by Category"},
		[]any{"Category", "Count", "Amount", "Share %"},
	)
	for _, c := range data.Categories {
		values = append(values, []any{c.Category, c.Count, c.Amount.InexactFloat64(), c.Share.InexactFloat64()})
	}

	values = append(values,
		[]any{},
		[]any{"Monthly Flow"},
		[]any{"Month", "Income", "Expenses", "Investments", "Net"},
	)
	for _, m := range data.MonthlyFlow {
		values = append(values, []any{
			m.Month,
			m.Income.InexactFloat64(),
			m.Expenses.InexactFloat64(),
			m.Investments.InexactFloat64(),
			m.NetFlow.InexactFloat64(),
		})
	}
	return values
}

func nullCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}

// sortRecordRows orders rows newest first, undated rows last, then by ID.
func sortRecordRows(rows []RecordRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Date.IsZero() != b.Date.IsZero() {
			return b.Date.IsZero()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID < b.ID
	})
}

// applyFormatting styles header rows and the amount column.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, sheetIDs map[string]int64, recordRows int) error {
	recordsID := sheetIDs[RecordsTab]
	summaryID := sheetIDs[SummaryTab]
	pattern := currencyPattern(w.config.Currency)

	requests := []*sheets.Request{
		boldRows(recordsID, 0, 1),
		boldRows(summaryID, 0, 1),
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          recordsID,
					StartRowIndex:    1,
					EndRowIndex:      int64(recordRows),
					StartColumnIndex: 4,
					EndColumnIndex:   5,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "CURRENCY",
							Pattern: pattern,
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    recordsID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(len(recordHeader)),
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: recordsID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}

func boldRows(sheetID, start, end int64) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:       sheetID,
				StartRowIndex: start,
				EndRowIndex:   end,
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					TextFormat: &sheets.TextFormat{Bold: true},
				},
			},
			Fields: "userEnteredFormat.textFormat",
		},
	}
}

// currencyPattern builds a sheets number format using the currency symbol.
func currencyPattern(currency string) string {
	return fmt.Sprintf(`"%s"#,##0.00`, report.CurrencySymbol(currency))
}

var _ ReportWriter = (*Writer)(nil)
