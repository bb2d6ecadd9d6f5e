// Package session records visitor browsing sessions in day-sharded JSON
// files and answers queries, summaries and exports over them.
//
// A Manager is constructed once at process start and handed to whatever
// needs it (HTTP handlers, CLI commands, the cleaner). Each session lives in
// the shard of its creation day (UTC) for its whole life; a bbolt index maps
// session IDs to shards so updates touch a single file.
//
// Example usage:
//
//	dir, _ := shard.Open("data/sessions", log)
//	idx, _ := index.Open("data/sessions/index.db", log)
//	mgr := session.New(session.Config{}, dir, idx, log)
//
//	id, err := mgr.Create(ctx, r, "")
//	if err != nil {
//	    log.Error("session not recorded", "error", err)
//	}
//
//	page := "/movies/550"
//	_, err = mgr.Update(ctx, id, session.Patch{CurrentPage: &page})
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/0xmhha/session-analytics/pkg/shard"
)

// Record is one browsing session as stored in a shard file.
type Record struct {
	// Identity.
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`

	// Timestamp is the session start in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	// SessionDuration is last write minus Timestamp, in milliseconds.
	SessionDuration int64 `json:"sessionDuration"`

	// Network and geo.
	IPAddress   string   `json:"ipAddress"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode"`
	Region      string   `json:"region"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	ISP         string   `json:"isp,omitempty"`
	Timezone    string   `json:"timezone"`

	// Device.
	DeviceType      string   `json:"deviceType"`
	DeviceVendor    string   `json:"deviceVendor,omitempty"`
	DeviceModel     string   `json:"deviceModel,omitempty"`
	OperatingSystem string   `json:"operatingSystem"`
	OSVersion       string   `json:"osVersion,omitempty"`
	CPUCores        *int     `json:"cpuCores,omitempty"`
	DeviceMemory    *float64 `json:"deviceMemory,omitempty"`
	BatteryLevel    *float64 `json:"batteryLevel,omitempty"`

	// Browser and display.
	Browser          string `json:"browser"`
	BrowserVersion   string `json:"browserVersion"`
	BrowserEngine    string `json:"browserEngine"`
	UserAgent        string `json:"userAgent"`
	ScreenResolution string `json:"screenResolution"`
	ViewportSize     string `json:"viewportSize"`
	ColorDepth       int    `json:"colorDepth"`

	// Capabilities and preferences.
	Language            string   `json:"language"`
	CookiesEnabled      bool     `json:"cookiesEnabled"`
	LocalStorageSupport bool     `json:"localStorageSupport"`
	JavascriptEnabled   bool     `json:"javascriptEnabled"`
	Plugins             []string `json:"plugins,omitempty"`

	// Navigation. PagesVisited is append-only.
	Referrer     string   `json:"referrer"`
	LandingPage  string   `json:"landingPage"`
	CurrentPage  string   `json:"currentPage"`
	PagesVisited []string `json:"pagesVisited"`

	// Auth and source.
	LoginStatus   bool   `json:"loginStatus"`
	GeoSource     string `json:"geoSource"`
	SessionSource string `json:"sessionSource"`

	// Events is append-only.
	Events []Event `json:"events"`

	// Opaque caller-populated scores.
	CustomField1 string `json:"customField1"`
	CustomField2 string `json:"customField2"`
	CustomField3 string `json:"customField3"`
}

// StartTime returns Timestamp as a time.Time.
func (r *Record) StartTime() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// Shard returns the shard the record belongs to.
func (r *Record) Shard() shard.Date {
	return shard.DateOf(r.StartTime())
}

// Patch holds the fields a caller may replace on an existing session.
// Nil fields are left untouched. Identity, timestamps, PagesVisited and
// Events cannot be patched; a CurrentPage change appends to PagesVisited.
type Patch struct {
	UserID      *string `json:"userId,omitempty"`
	CurrentPage *string `json:"currentPage,omitempty"`

	Country     *string  `json:"country,omitempty"`
	CountryCode *string  `json:"countryCode,omitempty"`
	Region      *string  `json:"region,omitempty"`
	City        *string  `json:"city,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	ISP         *string  `json:"isp,omitempty"`
	Timezone    *string  `json:"timezone,omitempty"`

	DeviceVendor *string  `json:"deviceVendor,omitempty"`
	DeviceModel  *string  `json:"deviceModel,omitempty"`
	CPUCores     *int     `json:"cpuCores,omitempty"`
	DeviceMemory *float64 `json:"deviceMemory,omitempty"`
	BatteryLevel *float64 `json:"batteryLevel,omitempty"`

	ScreenResolution *string `json:"screenResolution,omitempty"`
	ViewportSize     *string `json:"viewportSize,omitempty"`
	ColorDepth       *int    `json:"colorDepth,omitempty"`

	Language            *string  `json:"language,omitempty"`
	CookiesEnabled      *bool    `json:"cookiesEnabled,omitempty"`
	LocalStorageSupport *bool    `json:"localStorageSupport,omitempty"`
	JavascriptEnabled   *bool    `json:"javascriptEnabled,omitempty"`
	Plugins             []string `json:"plugins,omitempty"`

	LoginStatus   *bool   `json:"loginStatus,omitempty"`
	SessionSource *string `json:"sessionSource,omitempty"`

	CustomField1 *string `json:"customField1,omitempty"`
	CustomField2 *string `json:"customField2,omitempty"`
	CustomField3 *string `json:"customField3,omitempty"`
}

// Filters select sessions for List and ExportCSV. Zero values do not filter.
type Filters struct {
	// DateFrom and DateTo are inclusive bounds on the session start.
	DateFrom time.Time
	DateTo   time.Time

	// Country and Browser match case-insensitive substrings.
	Country string
	Browser string

	// DeviceType, UserID and IPAddress match exactly.
	DeviceType string
	UserID     string
	IPAddress  string

	// Limit defaults to Config.DefaultLimit; Offset defaults to 0.
	Limit  int
	Offset int
}

// Page is one page of a filtered, newest-first session listing.
type Page struct {
	Sessions []Record `json:"sessions"`

	// Total is the number of matching sessions before pagination.
	Total int `json:"total"`
}

// CountryCount, DeviceCount, OSCount, BrowserCount, PageCount and
// ReferrerCount are top-N entries of a Summary.
type (
	CountryCount struct {
		Country string `json:"country"`
		Count   int    `json:"count"`
	}

	DeviceCount struct {
		Device string `json:"device"`
		Count  int    `json:"count"`
	}

	OSCount struct {
		OS    string `json:"os"`
		Count int    `json:"count"`
	}

	BrowserCount struct {
		Browser string `json:"browser"`
		Count   int    `json:"count"`
	}

	PageCount struct {
		Page  string `json:"page"`
		Count int    `json:"count"`
	}

	ReferrerCount struct {
		Referrer string `json:"referrer"`
		Count    int    `json:"count"`
	}
)

// Summary aggregates the sessions of a date range.
type Summary struct {
	TotalSessions  int `json:"totalSessions"`
	ActiveSessions int `json:"activeSessions"`

	TopCountries        []CountryCount  `json:"topCountries"`
	TopDevices          []DeviceCount   `json:"topDevices"`
	TopOperatingSystems []OSCount       `json:"topOperatingSystems"`
	TopBrowsers         []BrowserCount  `json:"topBrowsers"`
	TopPages            []PageCount     `json:"topPages"`
	TopReferrers        []ReferrerCount `json:"topReferrers"`

	// AverageSessionDuration is in milliseconds.
	AverageSessionDuration int64 `json:"averageSessionDuration"`
	TotalPageViews         int   `json:"totalPageViews"`
	TotalEvents            int   `json:"totalEvents"`
}

// CleanupResult reports what a retention pass removed.
type CleanupResult struct {
	// Cutoff is the oldest shard date kept.
	Cutoff        shard.Date `json:"-"`
	ShardsRemoved []string   `json:"shardsRemoved"`
	IndexRemoved  int        `json:"indexEntriesRemoved"`
}

// Manager records and queries sessions.
type Manager interface {
	// Create records a new session built from the request and returns its
	// ID. On a storage failure the ID is empty and the error is returned.
	Create(ctx context.Context, r *http.Request, userID string) (string, error)

	// Update applies a patch and recomputes the duration.
	//
	// Returns ErrSessionNotFound if the session does not exist.
	Update(ctx context.Context, id string, patch Patch) (*Record, error)

	// AddEvent appends an event and recomputes the duration.
	//
	// Returns ErrSessionNotFound if the session does not exist and
	// ErrInvalidEvent if the event is malformed.
	AddEvent(ctx context.Context, id string, event Event) (*Record, error)

	// Get returns one session.
	//
	// Returns ErrSessionNotFound if the session does not exist.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns the sessions matching filters, newest first.
	List(ctx context.Context, filters Filters) (Page, error)

	// Summary aggregates the sessions created between from and to
	// (inclusive; zero values leave the range open).
	Summary(ctx context.Context, from, to time.Time) (*Summary, error)

	// Cleanup deletes shards older than the retention window.
	Cleanup(ctx context.Context) (CleanupResult, error)

	// ExportCSV renders the sessions matching filters as CSV. It returns
	// NoSessionsFound when nothing matches.
	ExportCSV(ctx context.Context, filters Filters) (string, error)

	// Reindex rebuilds the index entries of one shard.
	Reindex(ctx context.Context, date shard.Date) (int, error)

	// ReindexAll rebuilds the index entries of every shard.
	ReindexAll(ctx context.Context) (int, error)
}

// Config contains session manager configuration.
type Config struct {
	// Retention is how long shards are kept (default: 30 days).
	Retention time.Duration

	// DefaultLimit is the page size when Filters.Limit is unset (default: 50).
	DefaultLimit int

	// MaxExport caps the sessions written by ExportCSV (default: 10000).
	MaxExport int

	// MaxSummary caps the sessions loaded by Summary (default: 10000).
	MaxSummary int

	// ActiveWindow is how recently a session must have started to count as
	// active (default: 30 minutes).
	ActiveWindow time.Duration

	// TopN is the length of each Summary top list (default: 10).
	TopN int

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// NewID generates session IDs (default: NewSessionID).
	NewID func(now time.Time) string
}

func (c Config) withDefaults() Config {
	if c.Retention <= 0 {
		c.Retention = 30 * 24 * time.Hour
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 50
	}
	if c.MaxExport <= 0 {
		c.MaxExport = 10000
	}
	if c.MaxSummary <= 0 {
		c.MaxSummary = 10000
	}
	if c.ActiveWindow <= 0 {
		c.ActiveWindow = 30 * time.Minute
	}
	if c.TopN <= 0 {
		c.TopN = 10
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = NewSessionID
	}
	return c
}
