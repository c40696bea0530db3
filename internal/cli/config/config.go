// Package config loads tidechat-cli configuration.
//
// Sources are merged with priority flag > environment > file > default.
// Environment variables use the TIDECHAT_ prefix with underscores for
// nesting, e.g. TIDECHAT_SERVER_URL.
package config

import (
	"errors"
	"os"
	"path/filepath"
)

// DefaultEnvPrefix is the environment variable prefix.
const DefaultEnvPrefix = "TIDECHAT_"

// Config is the tidechat-cli configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Auth    AuthConfig    `koanf:"auth" yaml:"auth"`
	Storage StorageConfig `koanf:"storage" yaml:"storage"`
	Log     LogConfig     `koanf:"log" yaml:"log"`

	// Output is the default output format: table, json, yaml.
	Output string `koanf:"output" yaml:"output"`
}

// ServerConfig points the CLI at a backend.
type ServerConfig struct {
	// URL is the backend root, e.g. https://chat.example.com.
	URL string `koanf:"url" yaml:"url"`

	// APIKey identifies the application.
	APIKey string `koanf:"api_key" yaml:"api_key"`

	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `koanf:"timeout_seconds" yaml:"timeout_seconds"`
}

// AuthConfig carries login defaults.
type AuthConfig struct {
	// UserID is the default user to authenticate as.
	UserID string `koanf:"user_id" yaml:"user_id"`

	// RefreshThresholdSeconds overrides the proactive refresh window.
	RefreshThresholdSeconds int `koanf:"refresh_threshold_seconds" yaml:"refresh_threshold_seconds"`
}

// StorageConfig selects the credential store.
type StorageConfig struct {
	// Backend is one of memory, file, badger.
	Backend string `koanf:"backend" yaml:"backend"`

	// Path is the credential file path (file backend) or directory
	// (badger backend). Defaults under the config directory.
	Path string `koanf:"path" yaml:"path"`

	// Passphrase seals the file backend at rest. Empty stores plaintext.
	Passphrase string `koanf:"passphrase" yaml:"passphrase"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// ConfigDir returns the tidechat config directory.
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".tidechat")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "cli.yaml")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "http://localhost:8080",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    filepath.Join(ConfigDir(), "credentials.json"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Output: "table",
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	switch c.Storage.Backend {
	case "memory", "file", "badger":
	default:
		return errors.New("storage.backend must be one of memory, file, badger")
	}
	switch c.Output {
	case "table", "json", "yaml":
	default:
		return errors.New("output must be one of table, json, yaml")
	}
	return nil
}
