package cli

import (
	"fmt"

	"github.com/glorpus-work/pkgorigin/internal/logger"
	"github.com/glorpus-work/pkgorigin/pkg/config"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "pkgorigin.yaml"

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	OutputFormat *string
)

// loadConfig loads the configuration, applies CLI flag overrides and
// initializes logging. Every command goes through here first.
func loadConfig() (*config.Config, error) {
	configPath := DefaultConfigPath
	if ConfigPath != nil && *ConfigPath != "" {
		configPath = *ConfigPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with CLI flags if provided
	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	logger.InitLogger(cfg.Settings.LogLevel)
	return cfg, nil
}
