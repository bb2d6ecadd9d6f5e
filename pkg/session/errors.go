package session

import "errors"

// Common errors returned by the session manager.
var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStorage wraps shard and index failures so callers can tell
	// "no data" apart from "could not read or write data".
	ErrStorage = errors.New("session storage failure")

	// ErrInvalidEvent is returned when an event is malformed.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidFilter is returned when filters are contradictory or out of
	// range.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrEmptySessionID is returned when an operation is given an empty ID.
	ErrEmptySessionID = errors.New("session ID cannot be empty")
)
