package config

import (
	"os"
	"path/filepath"
)

// defaultSessionsDir is relative to the working directory, matching the
// data/sessions layout the shard files have always used.
const defaultSessionsDir = "data/sessions"

// defaultIndexPath places the index next to the shards it covers.
func defaultIndexPath() string {
	return filepath.Join(defaultSessionsDir, "index.db")
}

// defaultConfigPath returns ~/.config/session-analytics/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "session-analytics", "config.yaml")
}

// SearchPaths returns the config file locations checked by Load, in order.
func SearchPaths() []string {
	return []string{
		"./config.yaml",
		defaultConfigPath(),
		"/etc/session-analytics/config.yaml",
	}
}

// DefaultPath returns the per-user config file location that
// "config reset" writes to.
func DefaultPath() string {
	return defaultConfigPath()
}
