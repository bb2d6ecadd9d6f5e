// Package aggregator provides session analytics aggregation.
//
// It counts sessions along fixed dimensions (country, device, browser, ...)
// and keeps overall statistics such as session duration percentiles.
//
// Example usage:
//
//	agg := aggregator.New(aggregator.Config{TrackPercentiles: true})
//
//	for _, s := range samples {
//	    agg.Add(s)
//	}
//
//	for _, e := range agg.Top(aggregator.DimCountry, 10) {
//	    fmt.Printf("%s: %d\n", e.Key, e.Count)
//	}
//	fmt.Printf("Sessions: %d\n", agg.Stats().Sessions)
package aggregator

import "time"

// Dimension represents an aggregation dimension.
type Dimension string

const (
	// DimCountry counts sessions by country.
	DimCountry Dimension = "country"

	// DimDevice counts sessions by device type.
	DimDevice Dimension = "device"

	// DimOS counts sessions by operating system.
	DimOS Dimension = "os"

	// DimBrowser counts sessions by browser.
	DimBrowser Dimension = "browser"

	// DimPage counts page visits. Every occurrence in a session's visited
	// pages counts once.
	DimPage Dimension = "page"

	// DimReferrer counts sessions by referrer. Empty referrers are ignored.
	DimReferrer Dimension = "referrer"

	// DimDate counts sessions by creation day (YYYY-MM-DD, UTC).
	DimDate Dimension = "date"
)

// Dimensions lists every supported dimension.
var Dimensions = []Dimension{DimCountry, DimDevice, DimOS, DimBrowser, DimPage, DimReferrer, DimDate}

// Sample is the slice of a session record the aggregator needs.
type Sample struct {
	Country    string
	DeviceType string
	OS         string
	Browser    string
	Referrer   string
	Pages      []string

	// Timestamp is the session creation time.
	Timestamp time.Time

	// Duration is the session duration in milliseconds.
	Duration int64

	// Events is the number of events recorded in the session.
	Events int

	// Active marks sessions the caller considers active.
	Active bool
}

// Entry is one counted value of a dimension.
type Entry struct {
	Key   string
	Count int
}

// Aggregator computes session statistics.
type Aggregator interface {
	// Add adds a session sample to the aggregator.
	Add(s Sample)

	// Stats returns overall statistics across all samples.
	Stats() Statistics

	// Top returns the n most frequent values of dim, sorted by count
	// descending. Ties keep the order in which values were first seen.
	// n <= 0 returns every value.
	Top(dim Dimension, n int) []Entry

	// Reset clears all aggregated data.
	Reset()
}

// Statistics contains aggregated session statistics.
type Statistics struct {
	// Sessions is the number of samples.
	Sessions int

	// Active is the number of samples marked active.
	Active int

	// PageViews is the total number of visited pages.
	PageViews int

	// Events is the total number of events.
	Events int

	// TotalDuration is the sum of session durations in milliseconds.
	TotalDuration int64

	// AvgDuration is the mean session duration in milliseconds.
	AvgDuration float64

	// MinDuration and MaxDuration bound the session durations.
	MinDuration int64
	MaxDuration int64

	// P50Duration, P95Duration and P99Duration are duration percentiles.
	// They stay zero unless percentile tracking is enabled.
	P50Duration int64
	P95Duration int64
	P99Duration int64

	// FirstSeen is the earliest session creation time.
	FirstSeen time.Time

	// LastSeen is the latest session creation time.
	LastSeen time.Time
}

// Config contains aggregator configuration.
type Config struct {
	// TrackPercentiles enables duration percentile calculation.
	//
	// Percentile calculation stores every duration in memory.
	TrackPercentiles bool
}
