// Package sheets exports the record ledger and its summary to Google Sheets.
package sheets

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/Veraticus/smart-finance/internal/common"
)

// Config controls where and how a report is written.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	Currency           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		SpreadsheetName:  "Finance Tracker",
		TimeZone:         "UTC",
		Currency:         "USD",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// AuthMethod names the credentials the writer will use: "service-account",
// "oauth", or "" when neither is complete.
func (c *Config) AuthMethod() string {
	switch {
	case c.ServiceAccountPath != "":
		return "service-account"
	case c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != "":
		return "oauth"
	default:
		return ""
	}
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	oauth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	switch {
	case c.AuthMethod() == "":
		return fmt.Errorf("%w: no authentication method configured", common.ErrMissingConfig)
	case oauth && c.ServiceAccountPath != "":
		return fmt.Errorf("%w: both a service account and OAuth credentials are configured", common.ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", common.ErrInvalidConfig)
	case c.RetryAttempts < 0 || c.RetryDelay < 0:
		return fmt.Errorf("%w: retry settings cannot be negative", common.ErrInvalidConfig)
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("%w: unknown time zone %q", common.ErrInvalidConfig, c.TimeZone)
	}
	if c.Currency != "" && money.GetCurrency(strings.ToUpper(c.Currency)) == nil {
		return fmt.Errorf("%w: unknown currency %q", common.ErrInvalidConfig, c.Currency)
	}
	return nil
}
