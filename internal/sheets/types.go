package sheets

import (
	"time"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/report"
	"github.com/shopspring/decimal"
)

// Tab names in the exported spreadsheet.
const (
	RecordsTab = "Records"
	SummaryTab = "Summary"
)

// RecordRow represents a single row in the Records tab.
type RecordRow struct {
	Date        time.Time
	Amount      decimal.Decimal
	Units       decimal.NullDecimal
	SinglePrice decimal.NullDecimal
	Type        string
	Category    string
	Note        string
	PaidVia     string
	ExtraNote   string
	ID          int64
}

// CategoryRow represents one line of the expense breakdown.
type CategoryRow struct {
	Category string
	Amount   decimal.Decimal
	Share    decimal.Decimal
	Count    int
}

// MonthlyFlowRow represents one calendar month of the Summary tab.
type MonthlyFlowRow struct {
	Month       string // e.g. "Jan"
	Income      decimal.Decimal
	Expenses    decimal.Decimal
	Investments decimal.Decimal
	NetFlow     decimal.Decimal // Income - Expenses - Investments
}

// TabData holds all the data for the complete spreadsheet export.
type TabData struct {
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	TotalInvestments decimal.Decimal
	Balance          decimal.Decimal
	Records          []RecordRow
	Categories       []CategoryRow
	MonthlyFlow      []MonthlyFlowRow
	Undated          int
}

// BuildTabData arranges records and their summary into spreadsheet rows.
// Records are listed newest first; undated records go last.
func BuildTabData(records []model.Record, summary report.Summary) TabData {
	data := TabData{
		TotalIncome:      summary.Totals[model.TypeIncome],
		TotalExpenses:    summary.Totals[model.TypeExpense],
		TotalInvestments: summary.Totals[model.TypeInvestment],
		Balance:          summary.Balance,
		Undated:          summary.Undated,
		Records:          make([]RecordRow, 0, len(records)),
		Categories:       make([]CategoryRow, 0, len(summary.Categories)),
	}

	for _, r := range records {
		data.Records = append(data.Records, RecordRow{
			ID:          r.ID,
			Date:        r.Date,
			Type:        string(r.Type),
			Category:    r.Category,
			Amount:      r.Amount,
			Units:       r.Units,
			SinglePrice: r.SinglePrice,
			Note:        r.Note,
			PaidVia:     r.PaidVia,
			ExtraNote:   r.ExtraNote,
		})
	}
	sortRecordRows(data.Records)

	for _, c := range summary.Categories {
		data.Categories = append(data.Categories, CategoryRow{
			Category: c.Category,
			Amount:   c.Amount,
			Count:    c.Count,
			Share:    report.Share(c.Amount, data.TotalExpenses),
		})
	}

	data.MonthlyFlow = monthlyFlow(summary)
	return data
}

func monthlyFlow(summary report.Summary) []MonthlyFlowRow {
	var rows [12]MonthlyFlowRow
	var seen [12]bool

	add := func(trend []report.MonthTotal, set func(*MonthlyFlowRow, decimal.Decimal)) {
		for _, m := range trend {
			i := m.Month - 1
			rows[i].Month = m.Label
			set(&rows[i], m.Amount)
			seen[i] = true
		}
	}
	add(summary.IncomeTrend, func(r *MonthlyFlowRow, d decimal.Decimal) { r.Income = d })
	add(summary.ExpenseTrend, func(r *MonthlyFlowRow, d decimal.Decimal) { r.Expenses = d })
	add(summary.InvestmentTrend, func(r *MonthlyFlowRow, d decimal.Decimal) { r.Investments = d })

	flow := []MonthlyFlowRow{}
	for i := range rows {
		if !seen[i] {
			continue
		}
		rows[i].NetFlow = rows[i].Income.Sub(rows[i].Expenses).Sub(rows[i].Investments)
		flow = append(flow, rows[i])
	}
	return flow
}
