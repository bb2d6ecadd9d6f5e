// Package monitor keeps a live analytics summary of a sessions directory.
//
// It recomputes the summary whenever the watcher reports a shard change and
// on a fixed refresh interval, and publishes each result as an Update.
package monitor

import (
	"context"
	"time"

	"github.com/0xmhha/session-analytics/pkg/session"
	"github.com/0xmhha/session-analytics/pkg/shard"
)

// Source computes summaries and refreshes the index for a shard.
// session.Manager satisfies it.
type Source interface {
	Summary(ctx context.Context, from, to time.Time) (*session.Summary, error)
	Reindex(ctx context.Context, date shard.Date) (int, error)
}

// Config holds the configuration for the live monitor.
type Config struct {
	// Dir is the sessions directory to watch.
	Dir string

	// RefreshInterval is the interval between periodic updates.
	// Default: 1s.
	RefreshInterval time.Duration

	// Window limits the summary to sessions started within the last Window.
	// Zero summarizes every stored session.
	Window time.Duration

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

// LiveMonitor provides real-time session analytics.
type LiveMonitor interface {
	// Start computes the initial summary, starts the watcher and returns.
	// Updates are produced in the background until ctx is cancelled or
	// Stop is called.
	Start(ctx context.Context) error

	// Stop stops the monitor gracefully.
	Stop() error

	// Summary returns the most recent summary, or nil before Start.
	Summary() *session.Summary

	// Updates returns the channel of live updates. It is closed by Close.
	Updates() <-chan Update

	// Close stops the monitor and closes the updates channel.
	Close() error
}

// Trigger names what caused an update.
type Trigger string

// Update triggers.
const (
	TriggerInitial Trigger = "initial"
	TriggerChange  Trigger = "change"
	TriggerTick    Trigger = "tick"
)

// Update represents a live monitoring update event.
type Update struct {
	// Timestamp of the update
	Timestamp time.Time

	// Summary is the freshly computed summary.
	Summary session.Summary

	// Delta contains the change since the last update.
	Delta DeltaStats

	// Trigger is what caused the update.
	Trigger Trigger

	// Date is the changed shard for TriggerChange updates.
	Date shard.Date
}

// DeltaStats represents changes since the last update.
type DeltaStats struct {
	NewSessions  int `json:"newSessions"`
	NewPageViews int `json:"newPageViews"`
	NewEvents    int `json:"newEvents"`

	// ActiveChange may be negative as sessions leave the active window.
	ActiveChange int `json:"activeChange"`
}

// IsZero reports whether nothing changed.
func (d DeltaStats) IsZero() bool {
	return d == DeltaStats{}
}
