package aggregator

import (
	"sort"
	"sync"
)

// aggregator implements the Aggregator interface.
type aggregator struct {
	config Config

	mu        sync.RWMutex
	durations []int64 // All durations for percentile calculation
	stats     Statistics
	counters  map[Dimension]*counter
}

// counter counts values of one dimension, remembering first-seen order.
type counter struct {
	index   map[string]int
	entries []Entry
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) inc(key string) {
	if i, ok := c.index[key]; ok {
		c.entries[i].Count++
		return
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, Entry{Key: key, Count: 1})
}

// New creates a new aggregator.
//
// Parameters:
//   - cfg: Aggregator configuration
//
// Returns a configured Aggregator.
func New(cfg Config) Aggregator {
	a := &aggregator{config: cfg}
	a.reset()
	return a
}

// Add implements Aggregator.Add.
func (a *aggregator) Add(s Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.updateStats(s)

	if a.config.TrackPercentiles {
		a.durations = append(a.durations, s.Duration)
	}

	a.counters[DimCountry].inc(s.Country)
	a.counters[DimDevice].inc(s.DeviceType)
	a.counters[DimOS].inc(s.OS)
	a.counters[DimBrowser].inc(s.Browser)
	if s.Referrer != "" {
		a.counters[DimReferrer].inc(s.Referrer)
	}
	for _, page := range s.Pages {
		a.counters[DimPage].inc(page)
	}
	if !s.Timestamp.IsZero() {
		a.counters[DimDate].inc(s.Timestamp.UTC().Format("2006-01-02"))
	}
}

// Stats implements Aggregator.Stats.
func (a *aggregator) Stats() Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats

	if a.config.TrackPercentiles && len(a.durations) > 0 {
		sorted := make([]int64, len(a.durations))
		copy(sorted, a.durations)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		stats.P50Duration = percentile(sorted, 50)
		stats.P95Duration = percentile(sorted, 95)
		stats.P99Duration = percentile(sorted, 99)
	}

	return stats
}

// Top implements Aggregator.Top.
func (a *aggregator) Top(dim Dimension, n int) []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	c, ok := a.counters[dim]
	if !ok {
		return []Entry{}
	}

	result := make([]Entry, len(c.entries))
	copy(result, c.entries)

	// Entries are in first-seen order, so a stable sort keeps ties that way.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})

	if n > 0 && n < len(result) {
		result = result[:n]
	}

	return result
}

// Reset implements Aggregator.Reset.
func (a *aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reset()
}

func (a *aggregator) reset() {
	a.durations = make([]int64, 0)
	a.stats = Statistics{}
	a.counters = make(map[Dimension]*counter, len(Dimensions))
	for _, dim := range Dimensions {
		a.counters[dim] = newCounter()
	}
}

// updateStats folds a sample into the overall statistics.
func (a *aggregator) updateStats(s Sample) {
	stats := &a.stats

	stats.Sessions++
	stats.PageViews += len(s.Pages)
	stats.Events += s.Events
	stats.TotalDuration += s.Duration
	if s.Active {
		stats.Active++
	}

	stats.AvgDuration = float64(stats.TotalDuration) / float64(stats.Sessions)

	if stats.Sessions == 1 {
		stats.MinDuration = s.Duration
		stats.MaxDuration = s.Duration
	} else {
		if s.Duration < stats.MinDuration {
			stats.MinDuration = s.Duration
		}
		if s.Duration > stats.MaxDuration {
			stats.MaxDuration = s.Duration
		}
	}

	if s.Timestamp.IsZero() {
		return
	}
	if stats.FirstSeen.IsZero() || s.Timestamp.Before(stats.FirstSeen) {
		stats.FirstSeen = s.Timestamp
	}
	if stats.LastSeen.IsZero() || s.Timestamp.After(stats.LastSeen) {
		stats.LastSeen = s.Timestamp
	}
}

// percentile calculates the pth percentile of a sorted slice.
func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between closest ranks.
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return int64(float64(sorted[lower])*(1-fraction) + float64(sorted[upper])*fraction)
}
