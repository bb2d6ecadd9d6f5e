package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/session-analytics/pkg/monitor"
	"github.com/0xmhha/session-analytics/pkg/session"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

func (f *jsonFormatter) encode(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// FormatSummary implements Formatter.FormatSummary.
func (f *jsonFormatter) FormatSummary(w io.Writer, s *session.Summary) error {
	return f.encode(w, s)
}

// FormatSessions implements Formatter.FormatSessions.
func (f *jsonFormatter) FormatSessions(w io.Writer, page session.Page, offset int) error {
	return f.encode(w, struct {
		session.Page
		Offset int `json:"offset"`
	}{page, offset})
}

// FormatSession implements Formatter.FormatSession.
func (f *jsonFormatter) FormatSession(w io.Writer, rec *session.Record) error {
	return f.encode(w, rec)
}

// FormatUpdate implements Formatter.FormatUpdate.
func (f *jsonFormatter) FormatUpdate(w io.Writer, u monitor.Update) error {
	out := struct {
		Timestamp string             `json:"timestamp"`
		Trigger   monitor.Trigger    `json:"trigger"`
		Shard     string             `json:"shard,omitempty"`
		Summary   session.Summary    `json:"summary"`
		Delta     monitor.DeltaStats `json:"delta"`
	}{
		Timestamp: u.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Trigger:   u.Trigger,
		Summary:   u.Summary,
		Delta:     u.Delta,
	}
	if u.Trigger == monitor.TriggerChange {
		out.Shard = u.Date.String()
	}

	// Updates stream one object per line.
	encoder := json.NewEncoder(w)
	return encoder.Encode(out)
}
