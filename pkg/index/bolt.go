package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/session-analytics/pkg/logger"
	"github.com/0xmhha/session-analytics/pkg/shard"
)

// Bucket names.
var (
	bucketSessions = []byte("sessions") // Session ID -> shard date
	bucketShards   = []byte("shards")   // Shard date -> {Session ID -> nil}
)

// boltIndex implements Index using BoltDB.
type boltIndex struct {
	db     *bolt.DB
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) a BoltDB-backed index at path.
//
// Parameters:
//   - path: Database file path; parent directories are created
//   - log: Logger instance
//
// Returns:
//   - Configured Index
//   - Error if the database cannot be opened
func Open(path string, log logger.Logger) (Index, error) {
	path = expandHome(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: time.Second,
	})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	idx, err := NewBolt(db, log)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close index after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Info("session index opened", "path", path)
	return idx, nil
}

// NewBolt wraps an already open database. Close closes db.
func NewBolt(db *bolt.DB, log logger.Logger) (Index, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketSessions); createErr != nil {
			return fmt.Errorf("failed to create sessions bucket: %w", createErr)
		}
		if _, createErr := tx.CreateBucketIfNotExists(bucketShards); createErr != nil {
			return fmt.Errorf("failed to create shards bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &boltIndex{
		db:     db,
		logger: log,
	}, nil
}

// Get implements Index.Get.
func (x *boltIndex) Get(id string) (shard.Date, bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return shard.Date{}, false, ErrClosed
	}

	var raw string
	err := x.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(bucketSessions).Get([]byte(id)); data != nil {
			raw = string(data)
		}
		return nil
	})
	if err != nil {
		return shard.Date{}, false, err
	}

	if raw == "" {
		return shard.Date{}, false, nil
	}

	date, err := shard.ParseDate(raw)
	if err != nil {
		return shard.Date{}, false, fmt.Errorf("%w: %s -> %q", ErrCorruptEntry, id, raw)
	}

	return date, true, nil
}

// Put implements Index.Put.
func (x *boltIndex) Put(id string, date shard.Date) error {
	return x.PutMany([]string{id}, date)
}

// PutMany implements Index.PutMany.
func (x *boltIndex) PutMany(ids []string, date shard.Date) error {
	if len(ids) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return ErrClosed
	}

	key := []byte(date.String())

	return x.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)

		members, err := tx.Bucket(bucketShards).CreateBucketIfNotExists(key)
		if err != nil {
			return fmt.Errorf("failed to create shard bucket %s: %w", date, err)
		}

		for _, id := range ids {
			if putErr := sessions.Put([]byte(id), key); putErr != nil {
				return fmt.Errorf("failed to store index entry: %w", putErr)
			}
			if putErr := members.Put([]byte(id), nil); putErr != nil {
				return fmt.Errorf("failed to store shard member: %w", putErr)
			}
		}

		return nil
	})
}

// DeleteShard implements Index.DeleteShard.
func (x *boltIndex) DeleteShard(date shard.Date) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return 0, ErrClosed
	}

	key := []byte(date.String())
	removed := 0

	err := x.db.Update(func(tx *bolt.Tx) error {
		shards := tx.Bucket(bucketShards)
		members := shards.Bucket(key)
		if members == nil {
			return nil
		}

		sessions := tx.Bucket(bucketSessions)
		if err := members.ForEach(func(id, _ []byte) error {
			// The entry may have been re-pointed by a later Put.
			if string(sessions.Get(id)) == string(key) {
				if err := sessions.Delete(id); err != nil {
					return err
				}
				removed++
			}
			return nil
		}); err != nil {
			return fmt.Errorf("failed to drop index entries for %s: %w", date, err)
		}

		return shards.DeleteBucket(key)
	})
	if err != nil {
		return 0, err
	}

	x.logger.Debug("index entries dropped", "shard", date.String(), "removed", removed)
	return removed, nil
}

// Len implements Index.Len.
func (x *boltIndex) Len() (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return 0, ErrClosed
	}

	var n int
	err := x.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketSessions).Stats().KeyN
		return nil
	})
	return n, err
}

// Close implements Index.Close.
func (x *boltIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true

	if err := x.db.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}

	x.logger.Info("session index closed")
	return nil
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
