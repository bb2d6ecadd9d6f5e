// Package config provides configuration management for session-analytics.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file
// 3. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Sessions dir: %s\n", cfg.Storage.SessionsDir)
package config

import (
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Storage.SessionsDir must not be empty
// - Storage.Retention must be > 0
// - Query limits must be > 0
// - Server.Addr must not be empty.
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Shard storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Query and aggregation limits
	Query QueryConfig `yaml:"query" json:"query"`

	// Admin authentication
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Shard directory watcher
	Watcher WatcherConfig `yaml:"watcher" json:"watcher"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Listen address, e.g. ":8080"
	Addr string `yaml:"addr" json:"addr"`

	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Origins allowed by CORS. Empty allows all origins.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	// Proxies whose forwarding headers gin trusts for ClientIP.
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`
}

// StorageConfig contains shard storage settings.
type StorageConfig struct {
	// Directory holding sessions_<YYYY-MM-DD>.json shards
	SessionsDir string `yaml:"sessions_dir" json:"sessions_dir"`

	// BoltDB file for the session-id index
	IndexPath string `yaml:"index_path" json:"index_path"`

	// Shards older than this are deleted by cleanup
	Retention time.Duration `yaml:"retention" json:"retention"`

	// How often serve triggers cleanup; 0 disables the trigger
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// QueryConfig contains query and aggregation limits.
type QueryConfig struct {
	DefaultLimit int           `yaml:"default_limit" json:"default_limit"`
	MaxExport    int           `yaml:"max_export" json:"max_export"`
	MaxSummary   int           `yaml:"max_summary" json:"max_summary"`
	ActiveWindow time.Duration `yaml:"active_window" json:"active_window"`
	TopN         int           `yaml:"top_n" json:"top_n"`
}

// AuthConfig contains admin authentication settings.
type AuthConfig struct {
	// HMAC secret for admin JWTs. Empty disables JWT auth.
	JWTSecret string `yaml:"jwt_secret" json:"-"`

	Issuer   string        `yaml:"issuer" json:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl" json:"token_ttl"`

	// Static key accepted in the X-API-Key header. Empty disables it.
	APIKey string `yaml:"api_key" json:"-"`
}

// WatcherConfig contains shard watcher settings.
type WatcherConfig struct {
	DebounceInterval time.Duration `yaml:"debounce_interval" json:"debounce_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrEmptyAddr
	}
	if c.Server.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if c.Storage.SessionsDir == "" {
		return ErrEmptySessionsDir
	}
	if c.Storage.IndexPath == "" {
		return ErrEmptyIndexPath
	}
	if c.Storage.Retention <= 0 {
		return ErrInvalidRetention
	}
	if c.Storage.CleanupInterval < 0 {
		return ErrInvalidCleanupInterval
	}

	if c.Query.DefaultLimit <= 0 || c.Query.MaxExport <= 0 || c.Query.MaxSummary <= 0 || c.Query.TopN <= 0 {
		return ErrInvalidQueryLimit
	}
	if c.Query.ActiveWindow <= 0 {
		return ErrInvalidActiveWindow
	}

	if c.Auth.TokenTTL <= 0 {
		return ErrInvalidTokenTTL
	}

	if c.Watcher.DebounceInterval <= 0 {
		return ErrInvalidDebounce
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with the stock values: shards under
// data/sessions, 30 day retention, 50 rows per page.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			SessionsDir:     defaultSessionsDir,
			IndexPath:       defaultIndexPath(),
			Retention:       720 * time.Hour, // 30 days
			CleanupInterval: time.Hour,
		},
		Query: QueryConfig{
			DefaultLimit: 50,
			MaxExport:    10000,
			MaxSummary:   10000,
			ActiveWindow: 30 * time.Minute,
			TopN:         10,
		},
		Auth: AuthConfig{
			Issuer:   "session-analytics",
			TokenTTL: 12 * time.Hour,
		},
		Watcher: WatcherConfig{
			DebounceInterval: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
