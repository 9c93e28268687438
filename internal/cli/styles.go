// Package cli renders ledger output for the terminal with lipgloss.
package cli

import (
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Palette. Record types reuse the status colors: income reads as success and
// expenses as errors.
var (
	PrimaryColor    = lipgloss.Color("#7D56F4")
	IncomeColor     = lipgloss.Color("#4ECDC4")
	ExpenseColor    = lipgloss.Color("#FF6B6B")
	InvestmentColor = lipgloss.Color("#FFA94D")
	NoticeColor     = lipgloss.Color("#FFE66D")
	InfoColor       = lipgloss.Color("#95E1D3")
	SubtleColor     = lipgloss.Color("#666666")
)

var (
	TitleStyle       = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)
	SubtitleStyle    = lipgloss.NewStyle().Foreground(SubtleColor).MarginBottom(1)
	SuccessStyle     = lipgloss.NewStyle().Foreground(IncomeColor)
	WarningStyle     = lipgloss.NewStyle().Foreground(NoticeColor)
	ErrorStyle       = lipgloss.NewStyle().Foreground(ExpenseColor)
	InfoStyle        = lipgloss.NewStyle().Foreground(InfoColor)
	SubtleStyle      = lipgloss.NewStyle().Foreground(SubtleColor)
	BoldStyle        = lipgloss.NewStyle().Bold(true)
	PromptStyle      = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).Padding(0, 1)
	TableCellStyle   = lipgloss.NewStyle().Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	ChartIcon   = "📊"
	MoneyIcon   = "💰"
	UserIcon    = "👤"
)

// TypeStyle returns the foreground style for a record type.
func TypeStyle(t model.RecordType) lipgloss.Style {
	switch t {
	case model.TypeIncome:
		return SuccessStyle
	case model.TypeExpense:
		return ErrorStyle
	case model.TypeInvestment:
		return lipgloss.NewStyle().Foreground(InvestmentColor)
	default:
		return SubtleStyle
	}
}

// FormatSuccess, FormatError, FormatWarning and FormatInfo prefix a status
// line with its icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle prefixes a section title with the chart icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(ChartIcon + " " + title)
}

// FormatPrompt renders a question waiting for input.
func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// RenderBox draws content under a title inside a rounded border.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
