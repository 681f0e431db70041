package emulator

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "WEBOSCTL_EMULATOR_"

// LoadConfig reads a Config from WEBOSCTL_EMULATOR_* variables, applying
// the envDefault values for anything unset.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse emulator environment: %w", err)
	}
	return cfg, nil
}
