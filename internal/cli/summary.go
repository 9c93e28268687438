package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/report"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// BarWidth is the widest bar drawn by RenderBars.
const BarWidth = 30

// Bar is one labelled value in a horizontal bar chart.
type Bar struct {
	Label  string
	Amount decimal.Decimal
}

// RenderSummary renders the dashboard: totals, balance, the expense
// breakdown and the monthly expense trend.
func RenderSummary(s report.Summary, currency string) string {
	var b strings.Builder

	b.WriteString(FormatTitle("Dashboard"))
	b.WriteString("\n")
	b.WriteString(RenderBox(MoneyIcon+" Totals", totalsContent(s, currency)))
	b.WriteString("\n\n")

	b.WriteString(BoldStyle.Render("Expenses by Category"))
	b.WriteString("\n")
	if len(s.Categories) == 0 {
		b.WriteString(SubtleStyle.Render("No expenses recorded."))
		b.WriteString("\n")
	} else {
		bars := make([]Bar, 0, len(s.Categories))
		for _, c := range s.Categories {
			bars = append(bars, Bar{Label: c.Category, Amount: c.Amount})
		}
		b.WriteString(RenderBars(bars, currency, ExpenseColor))
	}

	if len(s.ExpenseTrend) > 0 {
		b.WriteString("\n")
		b.WriteString(BoldStyle.Render("Monthly Expenses"))
		b.WriteString("\n")
		bars := make([]Bar, 0, len(s.ExpenseTrend))
		for _, m := range s.ExpenseTrend {
			bars = append(bars, Bar{Label: m.Label, Amount: m.Amount})
		}
		b.WriteString(RenderBars(bars, currency, PrimaryColor))
	}

	if s.Undated > 0 {
		b.WriteString("\n")
		b.WriteString(FormatWarning(fmt.Sprintf("%d record(s) have no valid date and are left out of the monthly trend.", s.Undated)))
		b.WriteString("\n")
	}

	return b.String()
}

func totalsContent(s report.Summary, currency string) string {
	lines := make([]string, 0, len(model.RecordTypes)+2)
	for _, t := range model.RecordTypes {
		label := TypeStyle(t).Render(fmt.Sprintf("%-11s", string(t)))
		lines = append(lines, fmt.Sprintf("%s %15s  %s",
			label,
			report.FormatAmount(s.Totals[t], currency),
			SubtleStyle.Render(fmt.Sprintf("(%d)", s.Counts[t]))))
	}

	balanceStyle := SuccessStyle
	if s.Balance.IsNegative() {
		balanceStyle = ErrorStyle
	}
	lines = append(lines, "", fmt.Sprintf("%s %15s",
		BoldStyle.Render(fmt.Sprintf("%-11s", "Balance")),
		balanceStyle.Render(report.FormatAmount(s.Balance, currency))))

	return strings.Join(lines, "\n")
}

// RenderBars draws one bar per item scaled to the largest amount.
func RenderBars(bars []Bar, currency string, color lipgloss.Color) string {
	if len(bars) == 0 {
		return ""
	}

	maxAmount := decimal.Zero
	labelWidth := 0
	for _, bar := range bars {
		if bar.Amount.GreaterThan(maxAmount) {
			maxAmount = bar.Amount
		}
		if w := lipgloss.Width(bar.Label); w > labelWidth {
			labelWidth = w
		}
	}

	style := lipgloss.NewStyle().Foreground(color)
	var b strings.Builder
	for _, bar := range bars {
		n := barLength(bar.Amount, maxAmount)
		pad := strings.Repeat(" ", labelWidth-lipgloss.Width(bar.Label))
		fmt.Fprintf(&b, "%s%s %s %s\n",
			bar.Label, pad,
			style.Render(strings.Repeat("█", n)),
			report.FormatAmount(bar.Amount, currency))
	}
	return b.String()
}

// barLength scales amount against maxAmount to at most BarWidth cells. Any
// positive amount gets at least one cell.
func barLength(amount, maxAmount decimal.Decimal) int {
	if !maxAmount.IsPositive() || !amount.IsPositive() {
		return 0
	}
	n := int(amount.Div(maxAmount).Mul(decimal.NewFromInt(BarWidth)).Round(0).IntPart())
	return max(n, 1)
}
