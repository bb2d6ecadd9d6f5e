package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmhha/session-analytics/pkg/logger"
)

// Cleaner periodically runs the retention pass of a Manager.
type Cleaner struct {
	manager  Manager
	interval time.Duration
	logger   logger.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCleaner creates a Cleaner that calls mgr.Cleanup every interval.
// If interval is not positive the cleaner does nothing when started.
func NewCleaner(mgr Manager, interval time.Duration, log logger.Logger) *Cleaner {
	return &Cleaner{
		manager:  mgr,
		interval: interval,
		logger:   log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs one pass immediately, then launches the cleanup goroutine.
// It returns once the first pass completes.
func (c *Cleaner) Start(ctx context.Context) {
	if c.interval <= 0 || !c.started.CompareAndSwap(false, true) {
		return
	}

	c.run(ctx)
	go c.loop(ctx)
}

// Stop signals the cleanup goroutine to exit and waits for it.
func (c *Cleaner) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	if c.started.Load() {
		<-c.doneCh
	}
}

func (c *Cleaner) loop(ctx context.Context) {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.run(ctx)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Cleaner) run(ctx context.Context) {
	result, err := c.manager.Cleanup(ctx)
	if err != nil {
		c.logger.Warn("session cleanup failed", "error", err)
		return
	}

	if len(result.ShardsRemoved) > 0 {
		c.logger.Info("session cleanup removed shards",
			"shards", result.ShardsRemoved,
			"index_entries", result.IndexRemoved)
	}
}
