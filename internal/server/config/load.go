package config

import (
	"fmt"

	"github.com/yndnr/tradegate-go/internal/infra/confloader"
)

// Load builds the configuration from defaults, the optional YAML file,
// .env files and TRADEGATE_* environment variables, then verifies it.
func Load(path string, dotEnv ...string) (*ServerConfig, error) {
	cfg, err := Read(path, dotEnv...)
	if err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Read is Load without verification. Offline tools use it when they only
// need a few sections, such as storage.
func Read(path string, dotEnv ...string) (*ServerConfig, error) {
	cfg := Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithDotEnv(dotEnv...),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
