package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrEmptyAddr is returned when the server listen address is empty.
	ErrEmptyAddr = errors.New("server address cannot be empty")

	// ErrInvalidShutdownTimeout is returned when shutdown timeout is <= 0.
	ErrInvalidShutdownTimeout = errors.New("invalid shutdown timeout: must be > 0")

	// ErrEmptySessionsDir is returned when no sessions directory is set.
	ErrEmptySessionsDir = errors.New("sessions directory cannot be empty")

	// ErrEmptyIndexPath is returned when no index path is set.
	ErrEmptyIndexPath = errors.New("index path cannot be empty")

	// ErrInvalidRetention is returned when retention is <= 0.
	ErrInvalidRetention = errors.New("invalid retention: must be > 0")

	// ErrInvalidCleanupInterval is returned when cleanup interval is negative.
	ErrInvalidCleanupInterval = errors.New("invalid cleanup interval: must be >= 0")

	// ErrInvalidQueryLimit is returned when any query limit is <= 0.
	ErrInvalidQueryLimit = errors.New("invalid query limit: must be > 0")

	// ErrInvalidActiveWindow is returned when the active window is <= 0.
	ErrInvalidActiveWindow = errors.New("invalid active window: must be > 0")

	// ErrInvalidTokenTTL is returned when token TTL is <= 0.
	ErrInvalidTokenTTL = errors.New("invalid token ttl: must be > 0")

	// ErrInvalidDebounce is returned when the watcher debounce is <= 0.
	ErrInvalidDebounce = errors.New("invalid debounce interval: must be > 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
