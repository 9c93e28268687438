package cli

import (
	"strconv"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/report"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

// Column positions in RecordTable.
const (
	colID = iota
	colDate
	colType
	colCategory
	colAmount
	colUnits
	colPrice
	colNote
	colPaidVia
)

// RecordTable renders records as a bordered table. Investment records also
// show units and unit price.
func RecordTable(records []model.Record, currency string) string {
	headers := []string{"ID", "Date", "Type", "Category", "Amount", "Units", "Unit Price", "Note", "Paid Via"}

	rows := make([][]string, 0, len(records))
	types := make([]model.RecordType, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			DisplayDate(r),
			string(r.Type),
			r.Category,
			report.FormatAmount(r.Amount, currency),
			nullString(r.Units),
			nullAmount(r.SinglePrice, currency),
			Truncate(r.Note, 30),
			r.PaidVia,
		})
		types = append(types, r.Type)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			style := TableCellStyle
			switch col {
			case colAmount, colUnits, colPrice:
				style = style.Align(lipgloss.Right)
			case colType:
				if row >= 0 && row < len(types) {
					style = style.Foreground(TypeStyle(types[row]).GetForeground())
				}
			}
			return style
		})

	return t.String()
}

// DisplayDate formats a record date like "Jan 02, 2024", or "-" when the
// record has no valid date.
func DisplayDate(r model.Record) string {
	if !r.HasDate() {
		return "-"
	}
	return r.Date.Format("Jan 02, 2006")
}

// Truncate shortens s to at most n runes, ending in an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n == 1 {
		return string(runes[:1])
	}
	return string(runes[:n-1]) + "…"
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func nullAmount(d decimal.NullDecimal, currency string) string {
	if !d.Valid {
		return ""
	}
	return report.FormatAmount(d.Decimal, currency)
}
