package config

import (
	"strings"
	"testing"
)

// minimalValidConfig returns a minimal valid AuthgateConfig for testing.
func minimalValidConfig() *AuthgateConfig {
	return &AuthgateConfig{
		LogLevel: "info",
		API:      APIConfig{BaseURL: DefaultBaseURL, Timeout: "30s"},
		Session:  SessionConfig{Storage: StorageFile, Path: "/tmp/authgate/session.json", Key: "auth"},
		Gateway:  GatewayConfig{LoginPath: "/login", RequestID: true},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_EphemeralStorageNeedsNoPath(t *testing.T) {
	t.Parallel()

	for _, storage := range []string{StorageMemory, StorageNone} {
		cfg := minimalValidConfig()
		cfg.Session.Storage = storage
		cfg.Session.Path = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() with %s storage unexpected error: %v", storage, err)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*AuthgateConfig)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *AuthgateConfig) { c.LogLevel = "verbose" },
			wantErr: "LogLevel must be one of",
		},
		{
			name:    "bad base url",
			mutate:  func(c *AuthgateConfig) { c.API.BaseURL = "not a url" },
			wantErr: "BaseURL must be a valid URL",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *AuthgateConfig) { c.API.Timeout = "soon" },
			wantErr: "Timeout must be a positive duration",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *AuthgateConfig) { c.API.Timeout = "-5s" },
			wantErr: "Timeout must be a positive duration",
		},
		{
			name:    "unknown storage",
			mutate:  func(c *AuthgateConfig) { c.Session.Storage = "redis" },
			wantErr: "Storage must be one of",
		},
		{
			name:    "directory path",
			mutate:  func(c *AuthgateConfig) { c.Session.Path = "/tmp/authgate/" },
			wantErr: "Path must be a file path",
		},
		{
			name:    "file storage without path",
			mutate:  func(c *AuthgateConfig) { c.Session.Path = "" },
			wantErr: "session.path is required for file storage",
		},
		{
			name:    "login path without slash",
			mutate:  func(c *AuthgateConfig) { c.Gateway.LoginPath = "login" },
			wantErr: `LoginPath must start with "/"`,
		},
		{
			name:    "metrics textfile directory",
			mutate:  func(c *AuthgateConfig) { c.Metrics.Textfile = "/var/lib/node_exporter/" },
			wantErr: "Textfile must be a file path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := minimalValidConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}
