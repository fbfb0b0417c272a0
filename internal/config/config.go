// Package config provides Viper-based configuration loading for vmftool.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ParserConfig holds VMF parser limits.
type ParserConfig struct {
	// MaxDepth bounds block nesting; deeper input is a syntax error.
	MaxDepth int `mapstructure:"max_depth"`
}

// IngestConfig holds batch ingestion settings.
type IngestConfig struct {
	// Workers is the number of files parsed concurrently.
	Workers int `mapstructure:"workers"`
	// Extensions lists the file suffixes picked up when walking a directory.
	Extensions []string `mapstructure:"extensions"`
	// OutputDir receives one YAML summary per map when non-empty.
	OutputDir string `mapstructure:"output_dir"`
	// Persist records every ingested map in the database catalog.
	Persist bool `mapstructure:"persist"`
	// Debounce is how long the watcher waits for writes to settle.
	Debounce time.Duration `mapstructure:"debounce"`
}

// LintConfig holds Lua lint rule settings.
type LintConfig struct {
	// ScriptDir holds the *.lua rule files. Empty disables linting.
	ScriptDir string `mapstructure:"script_dir"`
	// InstructionLimit caps VM instructions per rule call; 0 uses the built-in default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Addr is the "host:port" the /metrics handler listens on.
	Addr string `mapstructure:"addr"`
}

// Config is the top-level application configuration.
type Config struct {
	Parser   ParserConfig   `mapstructure:"parser"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Lint     LintConfig     `mapstructure:"lint"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateParser(c.Parser); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateIngest(c.Ingest); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLint(c.Lint); err != nil {
		errs = append(errs, err.Error())
	}
	// The catalog is only dialled when ingestion persists.
	if c.Ingest.Persist {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMetrics(c.Metrics); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateParser(p ParserConfig) error {
	if p.MaxDepth < 1 || p.MaxDepth > 4096 {
		return fmt.Errorf("parser.max_depth must be 1-4096, got %d", p.MaxDepth)
	}
	return nil
}

func validateIngest(i IngestConfig) error {
	var errs []string
	if i.Workers < 1 {
		errs = append(errs, fmt.Sprintf("ingest.workers must be >= 1, got %d", i.Workers))
	}
	if len(i.Extensions) == 0 {
		errs = append(errs, "ingest.extensions must not be empty")
	}
	for _, ext := range i.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("ingest.extensions entries must start with '.', got %q", ext))
		}
	}
	if i.Debounce < 0 {
		errs = append(errs, "ingest.debounce must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLint(l LintConfig) error {
	if l.InstructionLimit < 0 {
		return fmt.Errorf("lint.instruction_limit must be >= 0, got %d", l.InstructionLimit)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateMetrics(m MetricsConfig) error {
	if !m.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Addr); err != nil {
		return fmt.Errorf("metrics.addr must be host:port, got %q", m.Addr)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and VMF_ environment
// overrides applied, for callers that bind flags before loading.
func NewViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with VMF_ prefix
	v.SetEnvPrefix("VMF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() Config {
	cfg, err := LoadFromViper(NewViper())
	if err != nil {
		panic(fmt.Sprintf("config: defaults are invalid: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("parser.max_depth", 64)

	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.extensions", []string{".vmf"})
	v.SetDefault("ingest.output_dir", "")
	v.SetDefault("ingest.persist", false)
	v.SetDefault("ingest.debounce", "250ms")

	v.SetDefault("lint.script_dir", "")
	v.SetDefault("lint.instruction_limit", 100000)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "vmf")
	v.SetDefault("database.password", "vmf")
	v.SetDefault("database.name", "vmf")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "127.0.0.1:9464")
}
