package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// PostgreSQL drivers.
const (
	DriverPGXPool = "pgxpool"
	DriverSQLDB   = "sqldb"
	DriverSQLX    = "sqlx"
)

const envPrefix = "BOOKSTORE_"

var (
	ErrUnknownStoreKind = errors.New("unknown store kind")
	ErrUnknownDriver    = errors.New("unknown postgres driver")
	ErrMissingDSN       = errors.New("postgres store needs a dsn")
	ErrEmptyAddress     = errors.New("empty listen address")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidEnvValue  = errors.New("invalid environment value")
)

// Config is the configuration of the bookstore server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Contracts ContractsConfig `yaml:"contracts"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP listener and the documentation routes.
type ServerConfig struct {
	Address string `yaml:"address"`
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
	// OAuth2Redirect enables the Swagger UI OAuth2 redirect page.
	OAuth2Redirect bool `yaml:"oauth2_redirect"`
}

// StoreConfig selects and configures the book store.
type StoreConfig struct {
	Kind       string `yaml:"kind"`
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	ReplicaDSN string `yaml:"replica_dsn"`
	TableName  string `yaml:"table_name"`
	Seed       bool   `yaml:"seed"`
}

// ContractsConfig configures contract enforcement.
type ContractsConfig struct {
	// SlowChecks enforces the post-conditions that query the store again.
	// Typically on in test environments and off in production, where they stay documented.
	SlowChecks bool `yaml:"slow_checks"`
	// ValidateExtensions validates the x-contracts output against its JSON Schema.
	ValidateExtensions bool `yaml:"validate_extensions"`
}

// TelemetryConfig configures the OpenTelemetry exporters.
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ServiceName    string `yaml:"service_name"`
	TraceEndpoint  string `yaml:"trace_endpoint"`
	MetricEndpoint string `yaml:"metric_endpoint"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing else is configured.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address: ":8000",
			Title:   "Bookstore",
			Version: "0.1.0",
		},
		Store: StoreConfig{
			Kind:      StoreMemory,
			Driver:    DriverPGXPool,
			TableName: "books",
			Seed:      true,
		},
		Contracts: ContractsConfig{
			SlowChecks:         true,
			ValidateExtensions: true,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "bookstore",
			TraceEndpoint:  JaegerEndpoint(),
			MetricEndpoint: OTELCollectorEndpoint(),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, applies the environment overrides and validates.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from BOOKSTORE_* variables found by lookup,
// e.g. BOOKSTORE_STORE_KIND or BOOKSTORE_CONTRACTS_SLOW_CHECKS.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	stringFields := map[string]*string{
		"SERVER_ADDRESS":            &c.Server.Address,
		"SERVER_TITLE":              &c.Server.Title,
		"SERVER_VERSION":            &c.Server.Version,
		"STORE_KIND":                &c.Store.Kind,
		"STORE_DRIVER":              &c.Store.Driver,
		"STORE_DSN":                 &c.Store.DSN,
		"STORE_REPLICA_DSN":         &c.Store.ReplicaDSN,
		"STORE_TABLE_NAME":          &c.Store.TableName,
		"TELEMETRY_SERVICE_NAME":    &c.Telemetry.ServiceName,
		"TELEMETRY_TRACE_ENDPOINT":  &c.Telemetry.TraceEndpoint,
		"TELEMETRY_METRIC_ENDPOINT": &c.Telemetry.MetricEndpoint,
		"LOG_LEVEL":                 &c.Log.Level,
	}

	for name, field := range stringFields {
		if value, ok := lookup(envPrefix + name); ok {
			*field = value
		}
	}

	boolFields := map[string]*bool{
		"SERVER_OAUTH2_REDIRECT":        &c.Server.OAuth2Redirect,
		"STORE_SEED":                    &c.Store.Seed,
		"CONTRACTS_SLOW_CHECKS":         &c.Contracts.SlowChecks,
		"CONTRACTS_VALIDATE_EXTENSIONS": &c.Contracts.ValidateExtensions,
		"TELEMETRY_ENABLED":             &c.Telemetry.Enabled,
	}

	for name, field := range boolFields {
		value, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}

		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidEnvValue, envPrefix, name, value)
		}

		*field = parsed
	}

	return nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Server.Address == "" {
		return ErrEmptyAddress
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	switch c.Store.Kind {
	case StoreMemory:
		return nil
	case StorePostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreKind, c.Store.Kind)
	}

	switch c.Store.Driver {
	case DriverPGXPool, DriverSQLDB, DriverSQLX:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}

	if c.Store.DSN == "" {
		return ErrMissingDSN
	}

	return nil
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}
