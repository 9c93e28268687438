// Package tui implements the interactive dashboard.
package tui

import (
	"github.com/Veraticus/smart-finance/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme     themes.Theme
	Currency  string
	Width     int
	Height    int
	AltScreen bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:     themes.Default,
		Currency:  "INR",
		Width:     100,
		Height:    30,
		AltScreen: true,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithCurrency sets the ISO currency used to format amounts.
func WithCurrency(currency string) Option {
	return func(c *Config) {
		c.Currency = currency
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithAltScreen toggles the alternate screen buffer.
func WithAltScreen(enabled bool) Option {
	return func(c *Config) {
		c.AltScreen = enabled
	}
}
