// Package config provides configuration types for authgate.
//
// Configuration is file-based (authgate.yaml) with environment overrides.
// Every field has a usable default, so authgate runs without a config file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Storage backends for the durable session record.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageNone   = "none"
)

// DefaultBaseURL is the API base URL used when none is configured.
const DefaultBaseURL = "http://localhost:8080/api/v1"

// AuthgateConfig is the top-level configuration for authgate.
type AuthgateConfig struct {
	// LogLevel sets the minimum log level: debug, info, warn, error.
	// Default: "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// API configures the SecureVibes API client.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Session configures where the session is persisted.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Gateway configures the request hooks.
	Gateway GatewayConfig `yaml:"gateway" mapstructure:"gateway"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	// Metrics configures Prometheus metric export.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// APIConfig configures the API client.
type APIConfig struct {
	// BaseURL is the API root including the version prefix.
	// Default: $SECUREVIBES_API_URL, else "http://localhost:8080/api/v1".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds every request (e.g., "30s").
	// Default: "30s".
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,duration"`
}

// TimeoutDuration returns Timeout parsed, or 30s if unset or invalid.
func (c APIConfig) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	// Storage selects the backend: file, sqlite, memory, none.
	// Default: "file".
	Storage string `yaml:"storage" mapstructure:"storage" validate:"omitempty,oneof=file sqlite memory none"`

	// Path is the file (file) or database (sqlite) location.
	// Default: ~/.authgate/session.json or ~/.authgate/session.db.
	Path string `yaml:"path" mapstructure:"path" validate:"omitempty,storage_path"`

	// Key names the durable record.
	// Default: "auth".
	Key string `yaml:"key" mapstructure:"key"`
}

// GatewayConfig configures the request hooks.
type GatewayConfig struct {
	// LoginPath is where the client navigates after a 401.
	// Default: "/login".
	LoginPath string `yaml:"login_path" mapstructure:"login_path" validate:"omitempty,startswith=/"`

	// RequestID attaches an X-Request-ID header to every request.
	// Default: true.
	RequestID bool `yaml:"request_id" mapstructure:"request_id"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled writes one span per request to stderr.
	// Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Textfile, when set, receives all metrics in the Prometheus text format
	// when the command exits.
	Textfile string `yaml:"textfile" mapstructure:"textfile" validate:"omitempty,storage_path"`
}

// SetDefaults applies default values for every unset field.
func (c *AuthgateConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
		if env := os.Getenv("SECUREVIBES_API_URL"); env != "" {
			c.API.BaseURL = env
		}
	}
	if c.API.Timeout == "" {
		c.API.Timeout = "30s"
	}

	if c.Session.Storage == "" {
		c.Session.Storage = StorageFile
	}
	if c.Session.Key == "" {
		c.Session.Key = "auth"
	}
	if c.Session.Path == "" {
		switch c.Session.Storage {
		case StorageFile:
			c.Session.Path = filepath.Join(defaultDir(), "session.json")
		case StorageSQLite:
			c.Session.Path = filepath.Join(defaultDir(), "session.db")
		}
	}

	if c.Gateway.LoginPath == "" {
		c.Gateway.LoginPath = "/login"
	}
	// viper.IsSet distinguishes "not set" from "explicitly false".
	if !viper.IsSet("gateway.request_id") {
		c.Gateway.RequestID = true
	}
}

// defaultDir is the per-user authgate directory.
func defaultDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".authgate")
	}
	return ".authgate"
}
