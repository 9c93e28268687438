package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/report"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderTabs(), ""}
	switch m.tab {
	case TabOverview:
		sections = append(sections, m.renderOverview())
	case TabRecords:
		sections = append(sections, m.renderRecords())
	case TabCategories:
		sections = append(sections, m.renderCategories())
	case TabTrend:
		sections = append(sections, m.renderTrend())
	}

	if m.status != "" {
		style := m.theme.StatusSuccess
		if m.statusFailed {
			style = m.theme.StatusError
		}
		sections = append(sections, "", style.Render(m.status))
	}
	sections = append(sections, "", m.help.View(m.keymap))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs = append(tabs, m.theme.TabActive.Render(name))
		} else {
			tabs = append(tabs, m.theme.TabInactive.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) typeColor(t model.RecordType) lipgloss.Color {
	switch t {
	case model.TypeIncome:
		return m.theme.Income
	case model.TypeExpense:
		return m.theme.Expense
	default:
		return m.theme.Investment
	}
}

func (m Model) renderOverview() string {
	cards := make([]string, 0, len(model.RecordTypes)+1)
	for _, t := range model.RecordTypes {
		title := lipgloss.NewStyle().Foreground(m.typeColor(t)).Bold(true).Render(string(t))
		body := fmt.Sprintf("%s\n%s",
			m.theme.Bold.Render(report.FormatAmount(m.summary.Totals[t], m.currency)),
			m.theme.Subtitle.Render(fmt.Sprintf("%d records", m.summary.Counts[t])))
		cards = append(cards, m.theme.RoundedBox.Render(title+"\n"+body))
	}

	balanceColor := m.theme.Success
	if m.summary.Balance.IsNegative() {
		balanceColor = m.theme.Error
	}
	balance := lipgloss.NewStyle().Foreground(balanceColor).Bold(true).
		Render(report.FormatAmount(m.summary.Balance, m.currency))
	cards = append(cards, m.theme.RoundedBox.Render(m.theme.Bold.Render("Balance")+"\n"+balance+"\n"))

	overview := lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	if m.summary.Undated > 0 {
		overview += "\n" + m.theme.Subtitle.Render(
			fmt.Sprintf("%d record(s) without a valid date are left out of the monthly view.", m.summary.Undated))
	}
	return overview
}

func (m Model) renderRecords() string {
	filter := "all types"
	if m.filter != "" {
		filter = string(m.filter)
	}
	header := m.theme.Subtitle.Render(fmt.Sprintf("Showing %s (%d records)", filter, len(m.records)))
	if len(m.records) == 0 {
		return header + "\n\n" + m.theme.Subtitle.Render("No records.")
	}
	return header + "\n" + m.table.View()
}

func (m Model) renderCategories() string {
	if len(m.summary.Categories) == 0 {
		return m.theme.Subtitle.Render("No expenses recorded.")
	}

	total := m.summary.Totals[model.TypeExpense]
	bar := progress.New(
		progress.WithSolidFill(string(m.theme.Expense)),
		progress.WithoutPercentage(),
		progress.WithWidth(max(min(m.width-50, 40), 10)),
	)

	labelWidth := 0
	for _, c := range m.summary.Categories {
		labelWidth = max(labelWidth, lipgloss.Width(c.Category))
	}

	lines := make([]string, 0, len(m.summary.Categories))
	for _, c := range m.summary.Categories {
		share := report.Share(c.Amount, total)
		lines = append(lines, fmt.Sprintf("%-*s %s %6s%%  %s",
			labelWidth, c.Category,
			bar.ViewAs(share.InexactFloat64()/100),
			share.StringFixed(1),
			report.FormatAmount(c.Amount, m.currency)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTrend() string {
	order := monthOrder(m.summary)
	if len(order) == 0 {
		return m.theme.Subtitle.Render("No dated records yet.")
	}

	cells := map[model.RecordType]map[string]string{}
	for t, trend := range map[model.RecordType][]report.MonthTotal{
		model.TypeIncome:     m.summary.IncomeTrend,
		model.TypeExpense:    m.summary.ExpenseTrend,
		model.TypeInvestment: m.summary.InvestmentTrend,
	} {
		cells[t] = map[string]string{}
		for _, mt := range trend {
			cells[t][mt.Label] = report.FormatAmount(mt.Amount, m.currency)
		}
	}

	lines := []string{m.theme.Bold.Render(fmt.Sprintf("%-6s %16s %16s %16s", "Month", "Income", "Expenses", "Investments"))}
	for _, label := range order {
		line := fmt.Sprintf("%-6s", label)
		for _, t := range model.RecordTypes {
			cell := fmt.Sprintf(" %16s", cells[t][label])
			line += lipgloss.NewStyle().Foreground(m.typeColor(t)).Render(cell)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// monthOrder lists the month labels present in any trend, January first.
func monthOrder(s report.Summary) []string {
	var seen [13]string
	for _, trend := range [][]report.MonthTotal{s.IncomeTrend, s.ExpenseTrend, s.InvestmentTrend} {
		for _, mt := range trend {
			seen[mt.Month] = mt.Label
		}
	}
	labels := []string{}
	for _, label := range seen {
		if label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}
