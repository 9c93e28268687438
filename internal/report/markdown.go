package report

import (
	"fmt"
	"strings"

	"github.com/Veraticus/smart-finance/internal/model"
)

// Markdown renders the summary as a markdown document. Terminal output goes
// through glamour in the command layer.
func Markdown(s Summary, currency string) string {
	var b strings.Builder

	b.WriteString("# Financial Summary\n\n")
	fmt.Fprintf(&b, "**Balance:** %s\n\n", FormatAmount(s.Balance, currency))

	b.WriteString("## Totals\n\n")
	b.WriteString("| Type | Records | Amount |\n")
	b.WriteString("|------|--------:|-------:|\n")
	for _, t := range model.RecordTypes {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", t, s.Counts[t], FormatAmount(s.Totals[t], currency))
	}
	b.WriteString("\n")

	b.WriteString("## Expenses by Category\n\n")
	if len(s.Categories) == 0 {
		b.WriteString("_No expenses recorded._\n\n")
	} else {
		expenses := s.Totals[model.TypeExpense]
		b.WriteString("| Category | Records | Amount | Share |\n")
		b.WriteString("|----------|--------:|-------:|------:|\n")
		for _, c := range s.Categories {
			fmt.Fprintf(&b, "| %s | %d | %s | %s%% |\n",
				escapeCell(c.Category), c.Count, FormatAmount(c.Amount, currency),
				Share(c.Amount, expenses).StringFixed(1))
		}
		b.WriteString("\n")
	}

	writeTrend(&b, "Monthly Expenses", s.ExpenseTrend, currency)
	writeTrend(&b, "Monthly Income", s.IncomeTrend, currency)
	writeTrend(&b, "Monthly Investments", s.InvestmentTrend, currency)

	if s.Undated > 0 {
		fmt.Fprintf(&b, "> %d record(s) without a valid date are left out of the monthly trends.\n", s.Undated)
	}

	return b.String()
}

func writeTrend(b *strings.Builder, title string, trend []MonthTotal, currency string) {
	if len(trend) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	b.WriteString("| Month | Amount |\n")
	b.WriteString("|-------|-------:|\n")
	for _, m := range trend {
		fmt.Fprintf(b, "| %s | %s |\n", m.Label, FormatAmount(m.Amount, currency))
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
