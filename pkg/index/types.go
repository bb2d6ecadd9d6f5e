// Package index maps session IDs to the shard that holds them.
//
// Shards are keyed by creation day, but a session ID alone does not reveal
// that day. The index answers "which shard?" so lookups and updates touch a
// single file instead of scanning the whole directory. The shard files stay
// the source of truth: a missing entry means "scan and backfill", never
// "session does not exist".
//
// Example usage:
//
//	idx, err := index.Open("data/sessions/index.db", logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
//	date, ok, err := idx.Get("sess_1714560000000_abc123xyz")
package index

import "github.com/0xmhha/session-analytics/pkg/shard"

// Index provides persistence for the session ID to shard mapping.
type Index interface {
	// Get returns the shard date for a session ID. ok is false when the ID
	// is not indexed.
	Get(id string) (date shard.Date, ok bool, err error)

	// Put records that a session lives in the shard for date.
	Put(id string, date shard.Date) error

	// PutMany records several sessions of one shard in a single transaction.
	PutMany(ids []string, date shard.Date) error

	// DeleteShard drops every entry that points at the shard for date and
	// returns how many were removed.
	DeleteShard(date shard.Date) (int, error)

	// Len returns the number of indexed sessions.
	Len() (int, error)

	// Close releases resources held by the index.
	Close() error
}
