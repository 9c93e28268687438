package config

import (
	"os"

	"github.com/Veraticus/smart-finance/internal/importer"
	"github.com/spf13/viper"
)

// LoadPlaidConfig loads Plaid credentials from viper with PLAID_* fallbacks.
func LoadPlaidConfig(v *viper.Viper) (*importer.PlaidConfig, error) {
	cfg := importer.PlaidConfig{
		ClientID:    firstNonEmpty(v.GetString("plaid.client_id"), os.Getenv("PLAID_CLIENT_ID")),
		Secret:      firstNonEmpty(v.GetString("plaid.secret"), os.Getenv("PLAID_SECRET")),
		Environment: firstNonEmpty(v.GetString("plaid.environment"), os.Getenv("PLAID_ENV"), "sandbox"),
		AccessToken: firstNonEmpty(v.GetString("plaid.access_token"), os.Getenv("PLAID_ACCESS_TOKEN")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
