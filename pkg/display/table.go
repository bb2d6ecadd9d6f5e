package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/session-analytics/pkg/monitor"
	"github.com/0xmhha/session-analytics/pkg/session"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// namedCount is one row of a top-N list.
type namedCount struct {
	name  string
	count int
}

// topList is one titled top-N list of a summary.
type topList struct {
	title, column string
	rows          []namedCount
}

// topLists flattens the top-N lists of a summary in display order.
func topLists(s *session.Summary) []topList {
	countries := make([]namedCount, len(s.TopCountries))
	for i, c := range s.TopCountries {
		countries[i] = namedCount{c.Country, c.Count}
	}
	devices := make([]namedCount, len(s.TopDevices))
	for i, c := range s.TopDevices {
		devices[i] = namedCount{c.Device, c.Count}
	}
	systems := make([]namedCount, len(s.TopOperatingSystems))
	for i, c := range s.TopOperatingSystems {
		systems[i] = namedCount{c.OS, c.Count}
	}
	browsers := make([]namedCount, len(s.TopBrowsers))
	for i, c := range s.TopBrowsers {
		browsers[i] = namedCount{c.Browser, c.Count}
	}
	pages := make([]namedCount, len(s.TopPages))
	for i, c := range s.TopPages {
		pages[i] = namedCount{c.Page, c.Count}
	}
	referrers := make([]namedCount, len(s.TopReferrers))
	for i, c := range s.TopReferrers {
		referrers[i] = namedCount{c.Referrer, c.Count}
	}

	return []topList{
		{"Top Countries", "Country", countries},
		{"Top Devices", "Device", devices},
		{"Top Operating Systems", "OS", systems},
		{"Top Browsers", "Browser", browsers},
		{"Top Pages", "Page", pages},
		{"Top Referrers", "Referrer", referrers},
	}
}

// FormatSummary implements Formatter.FormatSummary.
func (f *tableFormatter) FormatSummary(w io.Writer, s *session.Summary) error {
	if err := writeHeader(w, "Session Analytics Summary", f.config.Compact, f.config.Color); err != nil {
		return err
	}

	rows := [][]string{
		{"Total Sessions", formatNumber(s.TotalSessions)},
		{"Active Sessions", formatNumber(s.ActiveSessions)},
		{"Total Page Views", formatNumber(s.TotalPageViews)},
		{"Total Events", formatNumber(s.TotalEvents)},
		{"Avg Duration", formatDuration(s.AverageSessionDuration)},
	}
	if err := f.writeTable(w, []string{"Metric", "Value"}, rows); err != nil {
		return err
	}

	for _, list := range topLists(s) {
		if len(list.rows) == 0 {
			continue
		}
		if err := writeHeader(w, list.title, f.config.Compact, f.config.Color); err != nil {
			return err
		}

		rows := make([][]string, len(list.rows))
		for i, r := range list.rows {
			rows[i] = []string{fmt.Sprintf("#%d", i+1), truncate(r.name, 60), formatNumber(r.count)}
		}
		if err := f.writeTable(w, []string{"Rank", list.column, "Sessions"}, rows); err != nil {
			return err
		}
	}

	return nil
}

// FormatSessions implements Formatter.FormatSessions.
func (f *tableFormatter) FormatSessions(w io.Writer, page session.Page, offset int) error {
	if err := writeHeader(w, "Sessions", f.config.Compact, f.config.Color); err != nil {
		return err
	}

	header := []string{"Session ID", "Started (UTC)", "Country", "Device", "Browser", "Pages", "Events", "Duration", "User"}

	rows := make([][]string, len(page.Sessions))
	for i := range page.Sessions {
		rec := &page.Sessions[i]
		rows[i] = []string{
			rec.SessionID,
			formatTimestamp(rec.Timestamp),
			truncate(rec.Country, 20),
			rec.DeviceType,
			truncate(strings.TrimSpace(rec.Browser+" "+rec.BrowserVersion), 24),
			formatNumber(len(rec.PagesVisited)),
			formatNumber(len(rec.Events)),
			formatDuration(rec.SessionDuration),
			truncate(rec.UserID, 20),
		}
	}

	if err := f.writeTable(w, header, rows); err != nil {
		return err
	}

	if len(page.Sessions) > 0 {
		_, err := fmt.Fprintf(w, "Showing %d-%d of %s sessions\n",
			offset+1, offset+len(page.Sessions), formatNumber(page.Total))
		return err
	}
	return nil
}

// FormatSession implements Formatter.FormatSession.
func (f *tableFormatter) FormatSession(w io.Writer, rec *session.Record) error {
	if err := writeHeader(w, "Session "+rec.SessionID, f.config.Compact, f.config.Color); err != nil {
		return err
	}

	rows := [][]string{
		{"User ID", rec.UserID},
		{"Started (UTC)", formatTimestamp(rec.Timestamp)},
		{"Duration", formatDuration(rec.SessionDuration)},
		{"IP Address", rec.IPAddress},
		{"Location", strings.Join([]string{rec.City, rec.Region, rec.Country}, ", ")},
		{"Timezone", rec.Timezone},
		{"Device", rec.DeviceType},
		{"Operating System", strings.TrimSpace(rec.OperatingSystem + " " + rec.OSVersion)},
		{"Browser", strings.TrimSpace(rec.Browser + " " + rec.BrowserVersion)},
		{"Language", rec.Language},
		{"Referrer", rec.Referrer},
		{"Landing Page", rec.LandingPage},
		{"Current Page", rec.CurrentPage},
		{"Pages Visited", strings.Join(rec.PagesVisited, " → ")},
		{"Logged In", fmt.Sprintf("%t", rec.LoginStatus)},
		{"Source", rec.SessionSource},
	}
	if err := f.writeTable(w, []string{"Field", "Value"}, rows); err != nil {
		return err
	}

	if err := writeHeader(w, fmt.Sprintf("Events (%d)", len(rec.Events)), f.config.Compact, f.config.Color); err != nil {
		return err
	}

	events := make([][]string, len(rec.Events))
	for i, e := range rec.Events {
		events[i] = []string{
			formatTimestamp(e.Timestamp),
			string(e.Type),
			truncate(e.Page, 40),
			truncate(e.Element, 30),
		}
	}
	return f.writeTable(w, []string{"Time (UTC)", "Type", "Page", "Element"}, events)
}

// FormatUpdate implements Formatter.FormatUpdate.
func (f *tableFormatter) FormatUpdate(w io.Writer, u monitor.Update) error {
	title := fmt.Sprintf("Live Session Monitor - %s", u.Timestamp.Format("2006-01-02 15:04:05"))
	if err := writeHeader(w, title, f.config.Compact, f.config.Color); err != nil {
		return err
	}

	s := u.Summary
	rows := [][]string{
		{"Sessions", formatNumber(s.TotalSessions), paint(f.config.Color, ansiGreen, formatDelta(u.Delta.NewSessions))},
		{"Active", formatNumber(s.ActiveSessions), paint(f.config.Color, ansiGreen, formatDelta(u.Delta.ActiveChange))},
		{"Page Views", formatNumber(s.TotalPageViews), paint(f.config.Color, ansiGreen, formatDelta(u.Delta.NewPageViews))},
		{"Events", formatNumber(s.TotalEvents), paint(f.config.Color, ansiGreen, formatDelta(u.Delta.NewEvents))},
		{"Avg Duration", formatDuration(s.AverageSessionDuration), ""},
	}
	if err := f.writeTable(w, []string{"Metric", "Total", "Change"}, rows); err != nil {
		return err
	}

	top := topLists(&s)
	for _, list := range top[:4] {
		if len(list.rows) == 0 {
			continue
		}
		names := make([]string, 0, 3)
		for i, r := range list.rows {
			if i == 3 {
				break
			}
			names = append(names, fmt.Sprintf("%s (%d)", r.name, r.count))
		}
		if _, err := fmt.Fprintf(w, "%-22s %s\n", list.title+":", strings.Join(names, ", ")); err != nil {
			return err
		}
	}

	if u.Trigger == monitor.TriggerChange {
		_, err := fmt.Fprintf(w, "%s\n", paint(f.config.Color, ansiDim, "changed shard: "+u.Date.String()))
		return err
	}
	return nil
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Column widths ignore ANSI styling.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = visibleLen(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && visibleLen(cell) > widths[i] {
				widths[i] = visibleLen(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths, f.config.Color); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths, false); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths, false); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int, bold bool) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(gap)
		}
		padded := cell
		if i < len(cells)-1 {
			padded += strings.Repeat(" ", widths[i]-visibleLen(cell))
		}
		b.WriteString(paint(bold, ansiBold, padded))
	}

	_, err := fmt.Fprintln(w, b.String())
	return err
}

// visibleLen is the rune length of s without ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\033':
			inEscape = true
		default:
			n++
		}
	}
	return n
}
