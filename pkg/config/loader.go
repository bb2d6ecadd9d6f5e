package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile parses a single file without merging or validation.
	LoadFromFile(path string) (*Config, error)

	// Source returns the config file Load would read, or "" for defaults only.
	Source() string
}

type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, SESSION_ANALYTICS_CONFIG is consulted and then
// SearchPaths in order.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	explicit := l.explicitPath()
	configPath := l.Source()

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// An explicitly requested file must load; a discovered one may not exist anymore.
			if explicit != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = l.mergeConfigs(cfg, fileCfg)
		}
	}

	cfg = l.applyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// Source implements Loader.Source.
func (l *loader) Source() string {
	if p := l.explicitPath(); p != "" {
		return p
	}

	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func (l *loader) explicitPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	return os.Getenv("SESSION_ANALYTICS_CONFIG")
}

// mergeConfigs overlays non-zero file values onto base.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	// Server
	if override.Server.Addr != "" {
		result.Server.Addr = override.Server.Addr
	}
	if override.Server.ReadTimeout > 0 {
		result.Server.ReadTimeout = override.Server.ReadTimeout
	}
	if override.Server.WriteTimeout > 0 {
		result.Server.WriteTimeout = override.Server.WriteTimeout
	}
	if override.Server.ShutdownTimeout > 0 {
		result.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}
	if len(override.Server.AllowedOrigins) > 0 {
		result.Server.AllowedOrigins = override.Server.AllowedOrigins
	}
	if len(override.Server.TrustedProxies) > 0 {
		result.Server.TrustedProxies = override.Server.TrustedProxies
	}

	// Storage
	if override.Storage.SessionsDir != "" {
		result.Storage.SessionsDir = override.Storage.SessionsDir
		// Keep the index beside a relocated shard directory unless set explicitly.
		if override.Storage.IndexPath == "" {
			result.Storage.IndexPath = filepath.Join(override.Storage.SessionsDir, "index.db")
		}
	}
	if override.Storage.IndexPath != "" {
		result.Storage.IndexPath = override.Storage.IndexPath
	}
	if override.Storage.Retention > 0 {
		result.Storage.Retention = override.Storage.Retention
	}
	if override.Storage.CleanupInterval > 0 {
		result.Storage.CleanupInterval = override.Storage.CleanupInterval
	}

	// Query
	if override.Query.DefaultLimit > 0 {
		result.Query.DefaultLimit = override.Query.DefaultLimit
	}
	if override.Query.MaxExport > 0 {
		result.Query.MaxExport = override.Query.MaxExport
	}
	if override.Query.MaxSummary > 0 {
		result.Query.MaxSummary = override.Query.MaxSummary
	}
	if override.Query.ActiveWindow > 0 {
		result.Query.ActiveWindow = override.Query.ActiveWindow
	}
	if override.Query.TopN > 0 {
		result.Query.TopN = override.Query.TopN
	}

	// Auth
	if override.Auth.JWTSecret != "" {
		result.Auth.JWTSecret = override.Auth.JWTSecret
	}
	if override.Auth.Issuer != "" {
		result.Auth.Issuer = override.Auth.Issuer
	}
	if override.Auth.TokenTTL > 0 {
		result.Auth.TokenTTL = override.Auth.TokenTTL
	}
	if override.Auth.APIKey != "" {
		result.Auth.APIKey = override.Auth.APIKey
	}

	// Watcher
	if override.Watcher.DebounceInterval > 0 {
		result.Watcher.DebounceInterval = override.Watcher.DebounceInterval
	}

	// Logging
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - SESSION_ANALYTICS_DIR: Sessions directory (index follows unless set in file)
//   - SESSION_ANALYTICS_ADDR: HTTP listen address
//   - SESSION_ANALYTICS_LOG_LEVEL: Log level
//   - SESSION_ANALYTICS_JWT_SECRET: Admin JWT secret
//   - SESSION_ANALYTICS_API_KEY: Admin API key
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if dir := os.Getenv("SESSION_ANALYTICS_DIR"); dir != "" {
		if result.Storage.IndexPath == filepath.Join(result.Storage.SessionsDir, "index.db") {
			result.Storage.IndexPath = filepath.Join(dir, "index.db")
		}
		result.Storage.SessionsDir = dir
	}

	if addr := os.Getenv("SESSION_ANALYTICS_ADDR"); addr != "" {
		result.Server.Addr = addr
	}

	if logLevel := os.Getenv("SESSION_ANALYTICS_LOG_LEVEL"); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	if secret := os.Getenv("SESSION_ANALYTICS_JWT_SECRET"); secret != "" {
		result.Auth.JWTSecret = secret
	}

	if key := os.Getenv("SESSION_ANALYTICS_API_KEY"); key != "" {
		result.Auth.APIKey = key
	}

	return &result
}

// Load creates a loader for configPath ("" to search) and loads.
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
