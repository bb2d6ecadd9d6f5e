// Package shard manages the day-sharded JSON files that hold session records.
//
// Each shard is a JSON array stored as sessions_<YYYY-MM-DD>.json inside a
// single directory, one file per UTC calendar day. The package knows nothing
// about the records themselves: callers decode the raw array elements.
//
// A shard that fails to parse is preserved as <name>.json.corrupted and
// reset to an empty array, so one bad file never blocks reads of the rest.
//
// Example usage:
//
//	dir, err := shard.Open("data/sessions", logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	unlock := dir.Lock(day)
//	items, err := dir.ReadLocked(day)
//	// ... modify items ...
//	err = dir.Write(day, items)
//	unlock()
package shard

import (
	"encoding/json"
	"time"
)

const (
	// FilePrefix and FileSuffix frame the date in a shard file name.
	FilePrefix = "sessions_"
	FileSuffix = ".json"

	// CorruptedSuffix is appended to a shard that failed to parse. Later
	// corruptions of the same shard add .1, .2, ... after it.
	CorruptedSuffix = ".corrupted"

	// DateLayout is the date format embedded in shard file names.
	DateLayout = "2006-01-02"

	maxBackups = 100
)

// Date identifies one shard: a UTC calendar day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the UTC day containing t.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// Before reports whether d is an earlier day than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// AddDays returns the day n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// FileName returns the shard file name for d.
func (d Date) FileName() string {
	return FilePrefix + d.String() + FileSuffix
}

// Info describes a shard file found on disk.
type Info struct {
	Date Date
	Path string
	Size int64
}

// Dir is a directory of shard files.
type Dir interface {
	// Path returns the directory path.
	Path() string

	// List returns every shard in the directory in directory-listing order.
	// Files whose names do not match sessions_<YYYY-MM-DD>.json are skipped.
	List() ([]Info, error)

	// Read returns the array elements of a shard. A missing shard reads as
	// empty. A corrupted shard is preserved, reset, and reads as empty; the
	// reset takes the shard lock, so Read must not be called while holding
	// it.
	Read(date Date) ([]json.RawMessage, error)

	// ReadLocked is Read for callers that already hold Lock(date).
	ReadLocked(date Date) ([]json.RawMessage, error)

	// Write replaces a shard atomically.
	Write(date Date, items []json.RawMessage) error

	// Remove deletes a shard. Removing a missing shard is not an error.
	Remove(date Date) error

	// Lock serialises read-modify-write cycles on one shard within this
	// process. The returned function releases the lock.
	Lock(date Date) (unlock func())
}
