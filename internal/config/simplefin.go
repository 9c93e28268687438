package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadSimpleFINToken returns the configured SimpleFIN setup token, falling
// back to SIMPLEFIN_TOKEN. It may be empty once access has been claimed.
func LoadSimpleFINToken(v *viper.Viper) string {
	return strings.TrimSpace(firstNonEmpty(v.GetString("simplefin.token"), os.Getenv("SIMPLEFIN_TOKEN")))
}
