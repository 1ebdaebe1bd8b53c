package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for InFusion Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Panel    PanelConfig    `yaml:"panel"`
	Naming   NamingConfig   `yaml:"naming"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PanelConfig contains connection settings for the InFusion controller.
type PanelConfig struct {
	// Host is the controller's hostname or IP address.
	Host string `yaml:"host"`

	// CommandPort is the line-protocol command port. Default: 3001.
	CommandPort int `yaml:"command_port"`

	// FilePort is the project-file retrieval port. Default: 2001.
	FilePort int `yaml:"file_port"`

	// Connections is the number of command sockets to hold open.
	// Commands are distributed round-robin across them. Default: 3.
	Connections int `yaml:"connections"`

	// Auth contains the controller login credentials.
	Auth PanelAuthConfig `yaml:"auth"`

	// DisableCache forces a live project-file fetch even when a cached
	// copy for this host exists.
	DisableCache bool `yaml:"disable_cache"`

	// QueryTimeoutMs bounds how long a cached-value read waits for the
	// panel's reply before returning the last known value. Default: 30.
	QueryTimeoutMs int `yaml:"query_timeout_ms"`
}

// PanelAuthConfig contains controller login credentials.
type PanelAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NamingConfig controls hierarchical device-name construction.
type NamingConfig struct {
	// AreaAbbreviations maps a lowercased area name to the abbreviation
	// used when building device names. Mapping an area to the empty
	// string drops that lineage segment entirely.
	AreaAbbreviations map[string]string `yaml:"area_abbreviations"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for level history.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// HistoryConfig controls local state-change recording.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: INFUSION_SECTION_KEY
// For example: INFUSION_PANEL_HOST, INFUSION_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Panel: PanelConfig{
			CommandPort:    3001,
			FilePort:       2001,
			Connections:    3,
			QueryTimeoutMs: 30,
		},
		Database: DatabaseConfig{
			Path:        "./data/infusion.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: INFUSION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Panel
	if v := os.Getenv("INFUSION_PANEL_HOST"); v != "" {
		cfg.Panel.Host = v
	}
	if v := os.Getenv("INFUSION_PANEL_USERNAME"); v != "" {
		cfg.Panel.Auth.Username = v
	}
	if v := os.Getenv("INFUSION_PANEL_PASSWORD"); v != "" {
		cfg.Panel.Auth.Password = v
	}

	// Database
	if v := os.Getenv("INFUSION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("INFUSION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Panel.Host == "" {
		errs = append(errs, "panel.host is required (set INFUSION_PANEL_HOST environment variable)")
	}
	if c.Panel.CommandPort < 1 || c.Panel.CommandPort > 65535 {
		errs = append(errs, "panel.command_port must be between 1 and 65535")
	}
	if c.Panel.FilePort < 1 || c.Panel.FilePort > 65535 {
		errs = append(errs, "panel.file_port must be between 1 and 65535")
	}
	if c.Panel.Connections < 1 {
		errs = append(errs, "panel.connections must be at least 1")
	}
	if c.Panel.QueryTimeoutMs < 1 {
		errs = append(errs, "panel.query_timeout_ms must be at least 1")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set INFUSION_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// QueryTimeout returns the bounded cached-value read timeout as a Duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Panel.QueryTimeoutMs) * time.Millisecond
}
