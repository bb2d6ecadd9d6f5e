package session

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// NoSessionsFound is returned by ExportCSV instead of CSV when no session
// matches.
const NoSessionsFound = "No sessions found"

// CSVHeader lists the export columns in order.
var CSVHeader = []string{
	"Session ID",
	"User ID",
	"Timestamp",
	"IP Address",
	"Country",
	"Region",
	"City",
	"Device Type",
	"Operating System",
	"Browser",
	"Browser Version",
	"Language",
	"Referrer",
	"Landing Page",
	"Current Page",
	"Pages Visited",
	"Session Duration",
	"Login Status",
	"Events",
	"Screen Resolution",
}

// ExportCSV implements Manager.ExportCSV.
func (m *manager) ExportCSV(ctx context.Context, filters Filters) (string, error) {
	if filters.Limit == 0 || filters.Limit > m.config.MaxExport {
		filters.Limit = m.config.MaxExport
	}

	page, err := m.List(ctx, filters)
	if err != nil {
		return "", err
	}

	if len(page.Sessions) == 0 {
		return NoSessionsFound, nil
	}

	var b strings.Builder
	writeCSVRow(&b, CSVHeader)
	for i := range page.Sessions {
		writeCSVRow(&b, csvRow(&page.Sessions[i]))
	}

	m.logger.Info("sessions exported", "rows", len(page.Sessions), "total", page.Total)
	return b.String(), nil
}

func csvRow(rec *Record) []string {
	return []string{
		rec.SessionID,
		rec.UserID,
		rec.StartTime().Format(time.RFC3339Nano),
		rec.IPAddress,
		rec.Country,
		rec.Region,
		rec.City,
		rec.DeviceType,
		rec.OperatingSystem,
		rec.Browser,
		rec.BrowserVersion,
		rec.Language,
		rec.Referrer,
		rec.LandingPage,
		rec.CurrentPage,
		strings.Join(rec.PagesVisited, "; "),
		strconv.FormatInt(rec.SessionDuration, 10),
		strconv.FormatBool(rec.LoginStatus),
		strconv.Itoa(len(rec.Events)),
		rec.ScreenResolution,
	}
}

// writeCSVRow writes fields with every field quoted and embedded quotes
// doubled. encoding/csv only quotes fields that need it.
func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
