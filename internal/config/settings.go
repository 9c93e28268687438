package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/storage"
	"github.com/spf13/viper"
)

// Settings is the resolved application configuration.
type Settings struct {
	Store        storage.Options
	DataDir      string
	AccountsPath string
	SessionPath  string
	Currency     string
	Theme        string
	SessionTTL   time.Duration
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", "$HOME/.local/share/finance")
	v.SetDefault("store.backend", storage.BackendCSV)
	v.SetDefault("store.path", "")
	v.SetDefault("accounts.path", "accounts.json")
	v.SetDefault("session.path", "session.json")
	v.SetDefault("session.ttl", 30*24*time.Hour)
	v.SetDefault("display.currency", "INR")
	v.SetDefault("display.theme", "default")
}

// Load reads settings from v, applying defaults for anything unset.
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	dataDir := ExpandPath(v.GetString("data.dir"))
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data.dir", common.ErrMissingConfig)
	}

	backend := strings.ToLower(v.GetString("store.backend"))
	store := storage.Options{
		Backend: backend,
		DSN:     v.GetString("store.dsn"),
	}

	switch backend {
	case storage.BackendCSV:
		store.Path = resolve(dataDir, firstNonEmpty(v.GetString("store.path"), "expenses.csv"))
	case storage.BackendSQLite:
		store.Path = resolve(dataDir, firstNonEmpty(v.GetString("store.path"), "finance.db"))
	case storage.BackendPostgres:
		if store.DSN == "" {
			return nil, fmt.Errorf("%w: store.dsn is required for the postgres backend", common.ErrMissingConfig)
		}
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownBackend, backend)
	}

	ttl := v.GetDuration("session.ttl")
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: session.ttl must be positive", common.ErrInvalidConfig)
	}

	currency := strings.ToUpper(strings.TrimSpace(v.GetString("display.currency")))
	if currency == "" {
		currency = "INR"
	}

	return &Settings{
		DataDir:      dataDir,
		Store:        store,
		AccountsPath: resolve(dataDir, v.GetString("accounts.path")),
		SessionPath:  resolve(dataDir, v.GetString("session.path")),
		SessionTTL:   ttl,
		Currency:     currency,
		Theme:        strings.ToLower(strings.TrimSpace(v.GetString("display.theme"))),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
