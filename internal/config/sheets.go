package config

import (
	"os"

	"github.com/Veraticus/smart-finance/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig loads Google Sheets configuration. Viper keys take
// precedence over GOOGLE_SHEETS_* environment variables, which take
// precedence over defaults.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	cfg.ServiceAccountPath = ExpandPath(firstNonEmpty(
		v.GetString("sheets.service_account_path"),
		os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")))
	cfg.ClientID = firstNonEmpty(v.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
	cfg.ClientSecret = firstNonEmpty(v.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
	cfg.RefreshToken = firstNonEmpty(v.GetString("sheets.refresh_token"), os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN"))
	cfg.SpreadsheetID = firstNonEmpty(v.GetString("sheets.spreadsheet_id"), os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	cfg.SpreadsheetName = firstNonEmpty(
		v.GetString("sheets.spreadsheet_name"),
		os.Getenv("GOOGLE_SHEETS_SPREADSHEET_NAME"),
		cfg.SpreadsheetName)
	if tz := v.GetString("sheets.timezone"); tz != "" {
		cfg.TimeZone = tz
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
