// Package themes holds the color palettes of the dashboard.
package themes

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Selected      lipgloss.Style
	TabActive     lipgloss.Style
	TabInactive   lipgloss.Style
	RoundedBox    lipgloss.Style
	StatusError   lipgloss.Style
	StatusSuccess lipgloss.Style
	Help          lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
	Foreground    lipgloss.Color
	Success       lipgloss.Color
	Error         lipgloss.Color
	Income        lipgloss.Color
	Expense       lipgloss.Color
	Investment    lipgloss.Color
}

// Palette is the set of colors a Theme is derived from.
type Palette struct {
	Primary    string
	Foreground string
	Subtle     string
	Muted      string
	Border     string
	Success    string
	Error      string
	Income     string
	Expense    string
	Investment string
}

// New derives every style of a Theme from a palette.
func New(p Palette) Theme {
	c := func(hex string) lipgloss.Color { return lipgloss.Color(hex) }

	return Theme{
		Primary:    c(p.Primary),
		Muted:      c(p.Muted),
		Border:     c(p.Border),
		Foreground: c(p.Foreground),
		Success:    c(p.Success),
		Error:      c(p.Error),
		Income:     c(p.Income),
		Expense:    c(p.Expense),
		Investment: c(p.Investment),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.Foreground)).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(c(p.Subtle)),
		Normal: lipgloss.NewStyle().
			Foreground(c(p.Foreground)),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.Foreground)),
		Selected: lipgloss.NewStyle().
			Background(c(p.Primary)).
			Foreground(c(p.Foreground)).
			Bold(true),
		TabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.Foreground)).
			Background(c(p.Primary)).
			Padding(0, 2),
		TabInactive: lipgloss.NewStyle().
			Foreground(c(p.Muted)).
			Padding(0, 2),
		RoundedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c(p.Border)).
			Padding(0, 1),
		StatusSuccess: lipgloss.NewStyle().
			Foreground(c(p.Success)).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(c(p.Error)).
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(c(p.Muted)),
	}
}

// Default is the default theme.
var Default = New(Palette{
	Primary:    "#7c3aed",
	Foreground: "#fafafa",
	Subtle:     "#a3a3a3",
	Muted:      "#737373",
	Border:     "#404040",
	Success:    "#10b981",
	Error:      "#ef4444",
	Income:     "#10b981",
	Expense:    "#ef4444",
	Investment: "#f59e0b",
})

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = New(Palette{
	Primary:    "#cba6f7",
	Foreground: "#cdd6f4",
	Subtle:     "#a6adc8",
	Muted:      "#6c7086",
	Border:     "#45475a",
	Success:    "#a6e3a1",
	Error:      "#f38ba8",
	Income:     "#a6e3a1",
	Expense:    "#f38ba8",
	Investment: "#fab387",
})

var byName = map[string]Theme{
	"default":          Default,
	"catppuccin-mocha": CatppuccinMocha,
}

// ByName looks up a theme by its configuration name. An empty name is the
// default theme.
func ByName(name string) (Theme, bool) {
	if name == "" {
		return Default, true
	}
	t, ok := byName[name]
	return t, ok
}

// Names lists the available theme names.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
