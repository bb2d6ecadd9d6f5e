package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/0xmhha/session-analytics/pkg/aggregator"
	"github.com/0xmhha/session-analytics/pkg/index"
	"github.com/0xmhha/session-analytics/pkg/logger"
	"github.com/0xmhha/session-analytics/pkg/shard"
)

// errStaleIndex means the index pointed at a shard that no longer holds the
// session.
var errStaleIndex = errors.New("stale index entry")

// manager implements the Manager interface on top of a shard directory and
// a session index.
type manager struct {
	config Config
	shards shard.Dir
	index  index.Index
	logger logger.Logger
}

// New creates a session manager.
//
// Parameters:
//   - cfg: Manager configuration; zero fields take defaults
//   - shards: Shard directory holding the session records
//   - idx: Session ID to shard index
//   - log: Logger instance
//
// Returns a configured Manager.
func New(cfg Config, shards shard.Dir, idx index.Index, log logger.Logger) Manager {
	cfg = cfg.withDefaults()

	log.Info("session manager initialized",
		"sessions_dir", shards.Path(),
		"retention", cfg.Retention,
		"default_limit", cfg.DefaultLimit)

	return &manager{
		config: cfg,
		shards: shards,
		index:  idx,
		logger: log,
	}
}

// Create implements Manager.Create.
func (m *manager) Create(ctx context.Context, r *http.Request, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := m.config.Now()

	rec := ExtractClientInfo(r)
	rec.SessionID = m.config.NewID(now)
	rec.UserID = userID
	rec.Timestamp = now.UnixMilli()
	rec.SessionDuration = 0

	path := requestPath(r)
	rec.LandingPage = path
	rec.CurrentPage = path
	rec.PagesVisited = []string{path}

	date := rec.Shard()
	if err := m.insert(date, &rec); err != nil {
		m.logger.Error("failed to create session",
			"session_id", rec.SessionID,
			"shard", date.String(),
			"error", err)
		return "", err
	}

	if err := m.index.Put(rec.SessionID, date); err != nil {
		// The shard holds the record; lookups fall back to a scan.
		m.logger.Warn("failed to index session",
			"session_id", rec.SessionID,
			"error", err)
	}

	m.logger.Debug("session created",
		"session_id", rec.SessionID,
		"shard", date.String(),
		"ip", rec.IPAddress,
		"device", rec.DeviceType,
		"browser", rec.Browser)

	return rec.SessionID, nil
}

// Update implements Manager.Update.
func (m *manager) Update(ctx context.Context, id string, patch Patch) (*Record, error) {
	return m.mutate(ctx, id, func(rec *Record) error {
		applyPatch(rec, patch)
		return nil
	})
}

// AddEvent implements Manager.AddEvent.
func (m *manager) AddEvent(ctx context.Context, id string, event Event) (*Record, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if !event.Type.Known() {
		m.logger.Debug("recording event of unknown type", "session_id", id, "type", string(event.Type))
	}

	return m.mutate(ctx, id, func(rec *Record) error {
		if event.Timestamp == 0 {
			event.Timestamp = m.config.Now().UnixMilli()
		}
		if event.Page == "" {
			event.Page = rec.CurrentPage
		}
		rec.Events = append(rec.Events, event)
		return nil
	})
}

// Get implements Manager.Get.
func (m *manager) Get(ctx context.Context, id string) (*Record, error) {
	date, err := m.locate(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := m.find(date, id)
	if errors.Is(err, errStaleIndex) {
		if date, err = m.scanFor(ctx, id); err != nil {
			return nil, err
		}
		rec, err = m.find(date, id)
	}
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// List implements Manager.List.
func (m *manager) List(ctx context.Context, filters Filters) (Page, error) {
	if err := validateFilters(filters); err != nil {
		return Page{}, err
	}

	records, err := m.load(ctx, filters.DateFrom, filters.DateTo)
	if err != nil {
		return Page{}, err
	}

	matched := records[:0]
	for _, rec := range records {
		if filters.match(&rec) {
			matched = append(matched, rec)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})

	limit := filters.Limit
	if limit == 0 {
		limit = m.config.DefaultLimit
	}

	return Page{
		Sessions: paginate(matched, filters.Offset, limit),
		Total:    len(matched),
	}, nil
}

// Summary implements Manager.Summary.
func (m *manager) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	page, err := m.List(ctx, Filters{
		DateFrom: from,
		DateTo:   to,
		Limit:    m.config.MaxSummary,
	})
	if err != nil {
		return nil, err
	}

	now := m.config.Now()
	agg := aggregator.New(aggregator.Config{})

	for i := range page.Sessions {
		rec := &page.Sessions[i]
		agg.Add(aggregator.Sample{
			Country:    rec.Country,
			DeviceType: rec.DeviceType,
			OS:         rec.OperatingSystem,
			Browser:    rec.Browser,
			Referrer:   rec.Referrer,
			Pages:      rec.PagesVisited,
			Timestamp:  rec.StartTime(),
			Duration:   rec.SessionDuration,
			Events:     len(rec.Events),
			// Active by creation time, not last activity.
			Active: now.Sub(rec.StartTime()) < m.config.ActiveWindow,
		})
	}

	return buildSummary(agg, m.config.TopN), nil
}

// Cleanup implements Manager.Cleanup.
func (m *manager) Cleanup(ctx context.Context) (CleanupResult, error) {
	cutoff := shard.DateOf(m.config.Now().Add(-m.config.Retention))
	result := CleanupResult{Cutoff: cutoff, ShardsRemoved: []string{}}

	shards, err := m.shards.List()
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	var errs []error
	for _, s := range shards {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !s.Date.Before(cutoff) {
			continue
		}

		unlock := m.shards.Lock(s.Date)
		err := m.shards.Remove(s.Date)
		unlock()
		if err != nil {
			m.logger.Error("failed to remove expired shard", "shard", s.Date.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		result.ShardsRemoved = append(result.ShardsRemoved, s.Date.FileName())

		removed, err := m.index.DeleteShard(s.Date)
		if err != nil {
			m.logger.Warn("failed to drop index entries", "shard", s.Date.String(), "error", err)
		}
		result.IndexRemoved += removed

		m.logger.Info("expired shard removed", "shard", s.Date.FileName(), "index_entries", removed)
	}

	sort.Strings(result.ShardsRemoved)

	if len(errs) > 0 {
		return result, fmt.Errorf("%w: %w", ErrStorage, errors.Join(errs...))
	}

	m.logger.Info("cleanup complete",
		"cutoff", cutoff.String(),
		"shards_removed", len(result.ShardsRemoved))

	return result, nil
}

// Reindex implements Manager.Reindex.
func (m *manager) Reindex(ctx context.Context, date shard.Date) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	unlock := m.shards.Lock(date)
	items, err := m.shards.ReadLocked(date)
	unlock()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	ids := make([]string, 0, len(items))
	for _, raw := range items {
		if id := sessionIDOf(raw); id != "" {
			ids = append(ids, id)
		}
	}

	if err := m.index.PutMany(ids, date); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	m.logger.Debug("shard reindexed", "shard", date.String(), "sessions", len(ids))
	return len(ids), nil
}

// ReindexAll implements Manager.ReindexAll.
func (m *manager) ReindexAll(ctx context.Context) (int, error) {
	shards, err := m.shards.List()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	total := 0
	for _, s := range shards {
		n, err := m.Reindex(ctx, s.Date)
		if err != nil {
			return total, err
		}
		total += n
	}

	m.logger.Info("index rebuilt", "shards", len(shards), "sessions", total)
	return total, nil
}

// insert appends a new record to a shard.
func (m *manager) insert(date shard.Date, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	unlock := m.shards.Lock(date)
	defer unlock()

	items, err := m.shards.ReadLocked(date)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if err := m.shards.Write(date, append(items, raw)); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// mutate runs fn on one record under its shard lock, recomputes the
// duration and writes the shard back.
func (m *manager) mutate(ctx context.Context, id string, fn func(*Record) error) (*Record, error) {
	date, err := m.locate(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := m.mutateIn(date, id, fn)
	if errors.Is(err, errStaleIndex) {
		if date, err = m.scanFor(ctx, id); err != nil {
			return nil, err
		}
		rec, err = m.mutateIn(date, id, fn)
	}
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			m.logger.Error("failed to update session", "session_id", id, "error", err)
		}
		return nil, err
	}

	return rec, nil
}

func (m *manager) mutateIn(date shard.Date, id string, fn func(*Record) error) (*Record, error) {
	unlock := m.shards.Lock(date)
	defer unlock()

	items, err := m.shards.ReadLocked(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	i := indexOf(items, id)
	if i < 0 {
		return nil, errStaleIndex
	}

	var rec Record
	if err := json.Unmarshal(items[i], &rec); err != nil {
		return nil, fmt.Errorf("%w: failed to decode session %s: %w", ErrStorage, id, err)
	}

	if err := fn(&rec); err != nil {
		return nil, err
	}
	rec.SessionDuration = durationSince(m.config.Now(), rec.Timestamp)

	raw, err := json.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	items[i] = raw

	if err := m.shards.Write(date, items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &rec, nil
}

// find reads one record from a shard.
func (m *manager) find(date shard.Date, id string) (*Record, error) {
	items, err := m.shards.Read(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	i := indexOf(items, id)
	if i < 0 {
		return nil, errStaleIndex
	}

	var rec Record
	if err := json.Unmarshal(items[i], &rec); err != nil {
		return nil, fmt.Errorf("%w: failed to decode session %s: %w", ErrStorage, id, err)
	}
	return &rec, nil
}

// locate returns the shard holding id, consulting the index first.
func (m *manager) locate(ctx context.Context, id string) (shard.Date, error) {
	if id == "" {
		return shard.Date{}, ErrEmptySessionID
	}
	if err := ctx.Err(); err != nil {
		return shard.Date{}, err
	}

	date, ok, err := m.index.Get(id)
	if err != nil {
		m.logger.Warn("index lookup failed, scanning shards", "session_id", id, "error", err)
	}
	if ok {
		return date, nil
	}

	return m.scanFor(ctx, id)
}

// scanFor searches every shard for id and backfills the index on a hit.
func (m *manager) scanFor(ctx context.Context, id string) (shard.Date, error) {
	shards, err := m.shards.List()
	if err != nil {
		return shard.Date{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	for _, s := range shards {
		if err := ctx.Err(); err != nil {
			return shard.Date{}, err
		}

		items, err := m.shards.Read(s.Date)
		if err != nil {
			m.logger.Warn("failed to read shard", "shard", s.Date.String(), "error", err)
			continue
		}

		if indexOf(items, id) >= 0 {
			if err := m.index.Put(id, s.Date); err != nil {
				m.logger.Warn("failed to backfill index", "session_id", id, "error", err)
			}
			return s.Date, nil
		}
	}

	return shard.Date{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

// load decodes every record in the shards overlapping [from, to].
func (m *manager) load(ctx context.Context, from, to time.Time) ([]Record, error) {
	shards, err := m.shards.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	var records []Record
	for _, s := range shards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !from.IsZero() && s.Date.Before(shard.DateOf(from)) {
			continue
		}
		if !to.IsZero() && shard.DateOf(to).Before(s.Date) {
			continue
		}

		items, err := m.shards.Read(s.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}

		for _, raw := range items {
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				m.logger.Warn("skipping undecodable session",
					"shard", s.Date.String(),
					"error", err)
				continue
			}
			records = append(records, rec)
		}
	}

	return records, nil
}

// applyPatch merges non-nil patch fields into rec.
func applyPatch(rec *Record, p Patch) {
	// Every navigation is recorded, reloads of the current page included.
	if p.CurrentPage != nil {
		rec.CurrentPage = *p.CurrentPage
		rec.PagesVisited = append(rec.PagesVisited, *p.CurrentPage)
	}

	setString(&rec.UserID, p.UserID)
	setString(&rec.Country, p.Country)
	setString(&rec.CountryCode, p.CountryCode)
	setString(&rec.Region, p.Region)
	setString(&rec.City, p.City)
	setString(&rec.ISP, p.ISP)
	setString(&rec.Timezone, p.Timezone)
	setString(&rec.DeviceVendor, p.DeviceVendor)
	setString(&rec.DeviceModel, p.DeviceModel)
	setString(&rec.ScreenResolution, p.ScreenResolution)
	setString(&rec.ViewportSize, p.ViewportSize)
	setString(&rec.Language, p.Language)
	setString(&rec.SessionSource, p.SessionSource)
	setString(&rec.CustomField1, p.CustomField1)
	setString(&rec.CustomField2, p.CustomField2)
	setString(&rec.CustomField3, p.CustomField3)

	if p.Latitude != nil {
		rec.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		rec.Longitude = p.Longitude
	}
	if p.CPUCores != nil {
		rec.CPUCores = p.CPUCores
	}
	if p.DeviceMemory != nil {
		rec.DeviceMemory = p.DeviceMemory
	}
	if p.BatteryLevel != nil {
		rec.BatteryLevel = p.BatteryLevel
	}
	if p.ColorDepth != nil {
		rec.ColorDepth = *p.ColorDepth
	}
	if p.CookiesEnabled != nil {
		rec.CookiesEnabled = *p.CookiesEnabled
	}
	if p.LocalStorageSupport != nil {
		rec.LocalStorageSupport = *p.LocalStorageSupport
	}
	if p.JavascriptEnabled != nil {
		rec.JavascriptEnabled = *p.JavascriptEnabled
	}
	if p.LoginStatus != nil {
		rec.LoginStatus = *p.LoginStatus
	}
	if p.Plugins != nil {
		rec.Plugins = p.Plugins
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func validateFilters(f Filters) error {
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidFilter, f.Limit)
	}
	if f.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidFilter, f.Offset)
	}
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && f.DateTo.Before(f.DateFrom) {
		return fmt.Errorf("%w: dateTo before dateFrom", ErrInvalidFilter)
	}
	return nil
}

// match reports whether rec satisfies every set filter.
func (f Filters) match(rec *Record) bool {
	ts := rec.StartTime()

	switch {
	case !f.DateFrom.IsZero() && ts.Before(f.DateFrom):
		return false
	case !f.DateTo.IsZero() && ts.After(f.DateTo):
		return false
	case f.Country != "" && !containsFold(rec.Country, f.Country):
		return false
	case f.DeviceType != "" && rec.DeviceType != f.DeviceType:
		return false
	case f.Browser != "" && !containsFold(rec.Browser, f.Browser):
		return false
	case f.UserID != "" && rec.UserID != f.UserID:
		return false
	case f.IPAddress != "" && rec.IPAddress != f.IPAddress:
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func paginate(records []Record, offset, limit int) []Record {
	if offset >= len(records) {
		return []Record{}
	}
	// Clamp before adding so a huge limit cannot overflow.
	if limit > len(records)-offset {
		limit = len(records) - offset
	}
	end := offset + limit

	page := make([]Record, end-offset)
	copy(page, records[offset:end])
	return page
}

func buildSummary(agg aggregator.Aggregator, n int) *Summary {
	stats := agg.Stats()

	s := &Summary{
		TotalSessions:          stats.Sessions,
		ActiveSessions:         stats.Active,
		TopCountries:           []CountryCount{},
		TopDevices:             []DeviceCount{},
		TopOperatingSystems:    []OSCount{},
		TopBrowsers:            []BrowserCount{},
		TopPages:               []PageCount{},
		TopReferrers:           []ReferrerCount{},
		AverageSessionDuration: int64(stats.AvgDuration),
		TotalPageViews:         stats.PageViews,
		TotalEvents:            stats.Events,
	}

	for _, e := range agg.Top(aggregator.DimCountry, n) {
		s.TopCountries = append(s.TopCountries, CountryCount{Country: e.Key, Count: e.Count})
	}
	for _, e := range agg.Top(aggregator.DimDevice, n) {
		s.TopDevices = append(s.TopDevices, DeviceCount{Device: e.Key, Count: e.Count})
	}
	for _, e := range agg.Top(aggregator.DimOS, n) {
		s.TopOperatingSystems = append(s.TopOperatingSystems, OSCount{OS: e.Key, Count: e.Count})
	}
	for _, e := range agg.Top(aggregator.DimBrowser, n) {
		s.TopBrowsers = append(s.TopBrowsers, BrowserCount{Browser: e.Key, Count: e.Count})
	}
	for _, e := range agg.Top(aggregator.DimPage, n) {
		s.TopPages = append(s.TopPages, PageCount{Page: e.Key, Count: e.Count})
	}
	for _, e := range agg.Top(aggregator.DimReferrer, n) {
		s.TopReferrers = append(s.TopReferrers, ReferrerCount{Referrer: e.Key, Count: e.Count})
	}

	return s
}

// indexOf returns the position of the record with id in a shard, or -1.
func indexOf(items []json.RawMessage, id string) int {
	for i, raw := range items {
		if sessionIDOf(raw) == id {
			return i
		}
	}
	return -1
}

func sessionIDOf(raw json.RawMessage) string {
	var head struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	return head.SessionID
}

func durationSince(now time.Time, startMillis int64) int64 {
	d := now.UnixMilli() - startMillis
	if d < 0 {
		return 0
	}
	return d
}
