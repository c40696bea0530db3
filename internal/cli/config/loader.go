package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// Loader merges configuration sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option configures the Loader.
type Option func(*Loader)

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the configuration file path. An empty path uses
// the default location; a missing file at the default location is not
// an error.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// NewLoader creates a configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges defaults, file, environment, and flag overrides, in that
// order, and returns the resulting configuration.
func (l *Loader) Load(flagOverrides map[string]any) (*Config, error) {
	if err := l.k.Load(mapProvider(defaultMap()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := l.filePath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	// The default file is optional; an explicitly named one is not.
	if _, err := os.Stat(path); err == nil || explicit {
		if err := l.k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// TIDECHAT_SERVER_URL -> server.url
	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if len(flagOverrides) > 0 {
		if err := l.k.Load(mapProvider(flagOverrides), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaultMap flattens Default() into koanf keys.
func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"server.url":             d.Server.URL,
		"server.timeout_seconds": d.Server.TimeoutSeconds,
		"storage.backend":        d.Storage.Backend,
		"storage.path":           d.Storage.Path,
		"log.level":              d.Log.Level,
		"log.format":             d.Log.Format,
		"output":                 d.Output,
	}
}

// Save writes the configuration as YAML with owner-only permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// mapProvider is a koanf provider backed by an in-memory map. Keys use
// dot notation.
type mapProvider map[string]any

// ReadBytes is unsupported; map providers implement Read.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: ReadBytes not supported by map provider")
}

// Read returns the nested configuration map.
func (m mapProvider) Read() (map[string]any, error) {
	nested := make(map[string]any)
	for key, value := range m {
		parts := strings.Split(key, ".")
		node := nested
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return nested, nil
}
