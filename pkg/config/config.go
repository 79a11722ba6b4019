// Package config provides configuration management for pkgorigin. It handles
// loading and validating the YAML configuration file that names the
// repositories to index and the network settings used while building. URL
// variable substitution ($releasever, $basearch) happens here, before any
// URL reaches the fetcher.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/pkgorigin/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Repositories to build indexes for.
	Repositories []*RepositoryConfig `yaml:"repositories"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// RepositoryConfig represents a single repository configuration.
type RepositoryConfig struct {
	// ID is the repository identifier recorded in built indexes.
	ID string `yaml:"id"`
	// BaseURL is the repository base location. It may contain $releasever
	// and $basearch placeholders.
	BaseURL string `yaml:"baseurl"`
	Enabled bool   `yaml:"enabled"`
}

// Vars holds values substituted into repository URLs.
type Vars struct {
	Releasever string `yaml:"releasever,omitempty"`
	Basearch   string `yaml:"basearch,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// IndexDir is where built indexes are written by default.
	IndexDir string `yaml:"index_dir,omitempty"`

	// Network settings
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
	MaxRetries          int           `yaml:"max_retries"`
	MaxConcurrentBuilds int           `yaml:"max_concurrent_builds"`

	// URL variable substitution
	Vars Vars `yaml:"vars,omitempty"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // table, csv
	LogLevel     string `yaml:"log_level"`     // error, warn, info, debug
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultMaxRetries is the default retry budget per fetch.
	DefaultMaxRetries = 3

	// DefaultMaxConcurrentBuilds bounds how many repositories build at once.
	DefaultMaxConcurrentBuilds = 4
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Repositories: []*RepositoryConfig{},
		Settings: Settings{
			IndexDir:            "indexes",
			HTTPTimeout:         DefaultHTTPTimeout,
			MaxRetries:          DefaultMaxRetries,
			MaxConcurrentBuilds: DefaultMaxConcurrentBuilds,
			OutputFormat:        "table",
			LogLevel:            "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration, not an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config file path %s", path)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Repositories))
	for _, repo := range c.Repositories {
		if repo.ID == "" {
			return fmt.Errorf("repository with baseurl %q has no id", repo.BaseURL)
		}
		if repo.BaseURL == "" {
			return fmt.Errorf("repository %s has no baseurl", repo.ID)
		}
		if seen[repo.ID] {
			return fmt.Errorf("repository id %s is configured twice", repo.ID)
		}
		seen[repo.ID] = true
	}
	if c.Settings.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.Settings.MaxConcurrentBuilds < 1 {
		c.Settings.MaxConcurrentBuilds = DefaultMaxConcurrentBuilds
	}
	if c.Settings.HTTPTimeout <= 0 {
		c.Settings.HTTPTimeout = DefaultHTTPTimeout
	}
	return nil
}

// GetRepository returns the repository configuration with the given ID, or
// nil if not configured.
func (c *Config) GetRepository(id string) *RepositoryConfig {
	for _, repo := range c.Repositories {
		if repo.ID == id {
			return repo
		}
	}
	return nil
}

// EnabledRepositories returns the enabled repositories with URL variables
// substituted. Repositories whose URL still contains unsubstituted variables
// are returned too; callers decide whether to warn or fail.
func (c *Config) EnabledRepositories() []*RepositoryConfig {
	repos := make([]*RepositoryConfig, 0, len(c.Repositories))
	for _, repo := range c.Repositories {
		if !repo.Enabled {
			continue
		}
		substituted := *repo
		substituted.BaseURL = c.Settings.Vars.Substitute(repo.BaseURL)
		repos = append(repos, &substituted)
	}
	return repos
}

// Substitute replaces $releasever and $basearch placeholders in a URL.
func (v Vars) Substitute(url string) string {
	if v.Releasever != "" {
		url = strings.ReplaceAll(url, "$releasever", v.Releasever)
	}
	if v.Basearch != "" {
		url = strings.ReplaceAll(url, "$basearch", v.Basearch)
	}
	return url
}

// HasUnsubstitutedVars reports whether a URL still contains $-variables
// after substitution.
func HasUnsubstitutedVars(url string) bool {
	return strings.Contains(url, "$")
}
