// Package watcher reports changes to shard files in a sessions directory.
//
// It uses fsnotify to watch the directory, ignores everything that is not a
// sessions_<YYYY-MM-DD>.json shard (temp files, .corrupted backups, the
// index database), and debounces bursts of events per shard.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    DebounceInterval: 100 * time.Millisecond,
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, "data/sessions"); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range w.Events() {
//	    fmt.Printf("Shard %s: %s\n", event.Date, event.Op)
//	}
package watcher

import (
	"context"
	"time"

	"github.com/0xmhha/session-analytics/pkg/shard"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota // File created (including atomic rename into place)
	OpWrite                 // File modified
	OpRemove                // File deleted
	OpRename                // File renamed/moved away
	OpChmod                 // File permissions changed
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Event represents a change to one shard file.
type Event struct {
	// Path is the path of the shard file.
	Path string

	// Date is the shard date parsed from the file name.
	Date shard.Date

	// Op is the last operation seen within the debounce interval.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Watcher provides shard directory monitoring.
type Watcher interface {
	// Start begins watching dir and returns once the watch is registered.
	// Events are processed in the background until ctx is cancelled or
	// Stop is called.
	Start(ctx context.Context, dir string) error

	// Stop stops event processing.
	Stop() error

	// Events returns the channel for receiving shard events.
	//
	// Events are debounced per shard. The channel is closed by Close.
	Events() <-chan Event

	// Errors returns the channel for receiving non-fatal watcher errors.
	// The channel is closed by Close.
	Errors() <-chan error

	// Close stops the watcher and releases resources.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval is the time to wait before emitting an event.
	// Multiple events for the same shard within this interval are coalesced.
	// Default: 100ms.
	DebounceInterval time.Duration

	// CircuitBreakerThreshold is the number of consecutive fsnotify errors
	// after which the watcher reports ErrCircuitBreakerOpen and stops
	// processing.
	// Default: 5.
	CircuitBreakerThreshold int

	// BufferSize is the capacity of the events channel. Events that do not
	// fit are dropped with a warning.
	// Default: 100.
	BufferSize int
}
