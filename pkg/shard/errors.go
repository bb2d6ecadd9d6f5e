package shard

import "errors"

// Common errors returned by the shard package.
var (
	// ErrNotDirectory is returned when the shard path exists but is a file.
	ErrNotDirectory = errors.New("shard path is not a directory")

	// ErrInvalidFileName is returned when a file name is not a shard name.
	ErrInvalidFileName = errors.New("not a shard file name")

	// ErrTooManyBackups is returned when a corrupted shard cannot be backed
	// up without overwriting an earlier backup.
	ErrTooManyBackups = errors.New("too many corrupted shard backups")
)
