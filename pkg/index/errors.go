package index

import "errors"

// Common errors returned by the index.
var (
	// ErrClosed is returned when using a closed index.
	ErrClosed = errors.New("index is closed")

	// ErrCorruptEntry is returned when a stored shard date cannot be parsed.
	ErrCorruptEntry = errors.New("corrupt index entry")

	// ErrLocked is returned by Open when another process holds the database.
	ErrLocked = errors.New("index is locked by another process")
)
