package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/session-analytics/pkg/monitor"
	"github.com/0xmhha/session-analytics/pkg/session"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatSummary implements Formatter.FormatSummary.
func (f *simpleFormatter) FormatSummary(w io.Writer, s *session.Summary) error {
	if _, err := fmt.Fprintf(w, "Sessions: %s | Active: %s | Page views: %s | Events: %s | Avg duration: %s\n",
		formatNumber(s.TotalSessions),
		formatNumber(s.ActiveSessions),
		formatNumber(s.TotalPageViews),
		formatNumber(s.TotalEvents),
		formatDuration(s.AverageSessionDuration)); err != nil {
		return err
	}

	for _, list := range topLists(s) {
		if len(list.rows) == 0 {
			continue
		}
		parts := make([]string, len(list.rows))
		for i, r := range list.rows {
			parts[i] = fmt.Sprintf("%s=%d", r.name, r.count)
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", list.title, strings.Join(parts, ", ")); err != nil {
			return err
		}
	}

	return nil
}

// FormatSessions implements Formatter.FormatSessions.
func (f *simpleFormatter) FormatSessions(w io.Writer, page session.Page, offset int) error {
	for i := range page.Sessions {
		rec := &page.Sessions[i]
		if _, err := fmt.Fprintf(w, "%s %s %s/%s/%s pages=%d events=%d duration=%s\n",
			rec.SessionID,
			formatTimestamp(rec.Timestamp),
			rec.Country,
			rec.DeviceType,
			rec.Browser,
			len(rec.PagesVisited),
			len(rec.Events),
			formatDuration(rec.SessionDuration)); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%d of %d sessions (offset %d)\n", len(page.Sessions), page.Total, offset)
	return err
}

// FormatSession implements Formatter.FormatSession.
func (f *simpleFormatter) FormatSession(w io.Writer, rec *session.Record) error {
	if _, err := fmt.Fprintf(w, "%s started %s, %s, %s/%s/%s, pages: %s\n",
		rec.SessionID,
		formatTimestamp(rec.Timestamp),
		formatDuration(rec.SessionDuration),
		rec.Country,
		rec.DeviceType,
		rec.Browser,
		strings.Join(rec.PagesVisited, " > ")); err != nil {
		return err
	}

	for _, e := range rec.Events {
		if _, err := fmt.Fprintf(w, "  %s %s %s\n", formatTimestamp(e.Timestamp), e.Type, e.Page); err != nil {
			return err
		}
	}

	return nil
}

// FormatUpdate implements Formatter.FormatUpdate.
func (f *simpleFormatter) FormatUpdate(w io.Writer, u monitor.Update) error {
	s := u.Summary
	_, err := fmt.Fprintf(w, "[%s] sessions=%d (%+d) active=%d (%+d) pageViews=%d (%+d) events=%d (%+d)\n",
		u.Timestamp.Format("15:04:05"),
		s.TotalSessions, u.Delta.NewSessions,
		s.ActiveSessions, u.Delta.ActiveChange,
		s.TotalPageViews, u.Delta.NewPageViews,
		s.TotalEvents, u.Delta.NewEvents)
	return err
}
