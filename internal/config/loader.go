// Package config provides configuration loading for authgate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for authgate.yaml/.yml in standard locations.
// The search requires an explicit YAML extension so the authgate binary
// itself is never matched.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found. ReadInConfig then returns
		// ConfigFileNotFoundError, which callers tolerate.
		viper.SetConfigName("authgate")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: AUTHGATE_API_BASE_URL
	viper.SetEnvPrefix("AUTHGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for an authgate config file.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".authgate"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "authgate"))
		}
	} else {
		paths = append(paths, "/etc/authgate")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for authgate.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "authgate"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds every config key for environment variable support.
// Example: AUTHGATE_SESSION_STORAGE overrides session.storage
func bindNestedEnvKeys() {
	_ = viper.BindEnv("log_level")

	_ = viper.BindEnv("api.base_url")
	_ = viper.BindEnv("api.timeout")

	_ = viper.BindEnv("session.storage")
	_ = viper.BindEnv("session.path")
	_ = viper.BindEnv("session.key")

	_ = viper.BindEnv("gateway.login_path")
	_ = viper.BindEnv("gateway.request_id")

	_ = viper.BindEnv("tracing.enabled")
	_ = viper.BindEnv("metrics.textfile")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, validates, and returns the AuthgateConfig.
func LoadConfig() (*AuthgateConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only
	}

	var cfg AuthgateConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
