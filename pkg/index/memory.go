package index

import (
	"sync"

	"github.com/0xmhha/session-analytics/pkg/shard"
)

// memoryIndex implements Index using an in-memory map.
type memoryIndex struct {
	mu      sync.RWMutex
	entries map[string]shard.Date
}

// NewMemory creates an in-memory index.
// Useful for testing or when persistence is not needed.
func NewMemory() Index {
	return &memoryIndex{
		entries: make(map[string]shard.Date),
	}
}

// Get implements Index.Get.
func (x *memoryIndex) Get(id string) (shard.Date, bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	date, ok := x.entries[id]
	return date, ok, nil
}

// Put implements Index.Put.
func (x *memoryIndex) Put(id string, date shard.Date) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.entries[id] = date
	return nil
}

// PutMany implements Index.PutMany.
func (x *memoryIndex) PutMany(ids []string, date shard.Date) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, id := range ids {
		x.entries[id] = date
	}
	return nil
}

// DeleteShard implements Index.DeleteShard.
func (x *memoryIndex) DeleteShard(date shard.Date) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	removed := 0
	for id, d := range x.entries {
		if d == date {
			delete(x.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len implements Index.Len.
func (x *memoryIndex) Len() (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return len(x.entries), nil
}

// Close implements Index.Close.
func (x *memoryIndex) Close() error {
	return nil
}
