// Package display provides output formatting for session analytics.
//
// It supports multiple output formats (table, JSON, simple text) for
// summaries, session listings, single sessions and live monitor updates.
package display

import (
	"io"

	"github.com/0xmhha/session-analytics/pkg/monitor"
	"github.com/0xmhha/session-analytics/pkg/session"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays data in formatted tables.
	FormatTable Format = "table"

	// FormatJSON displays data as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays data in simple text format.
	FormatSimple Format = "simple"
)

// Formatter formats and displays session analytics.
type Formatter interface {
	// FormatSummary formats an analytics summary.
	FormatSummary(w io.Writer, summary *session.Summary) error

	// FormatSessions formats one page of a session listing.
	FormatSessions(w io.Writer, page session.Page, offset int) error

	// FormatSession formats a single session with its events.
	FormatSession(w io.Writer, rec *session.Record) error

	// FormatUpdate formats a live monitor update.
	FormatUpdate(w io.Writer, update monitor.Update) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool

	// Color enables ANSI colors in table output. See ColorEnabled.
	// Default: false.
	Color bool
}
