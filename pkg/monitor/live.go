package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xmhha/session-analytics/pkg/logger"
	"github.com/0xmhha/session-analytics/pkg/session"
	"github.com/0xmhha/session-analytics/pkg/shard"
	"github.com/0xmhha/session-analytics/pkg/watcher"
)

// liveMonitor implements the LiveMonitor interface.
type liveMonitor struct {
	config  Config
	logger  logger.Logger
	source  Source
	watcher watcher.Watcher

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}

	// refreshMu serializes summary computation so deltas are taken
	// against the previous published summary.
	refreshMu sync.Mutex
	last      *session.Summary

	// Update channel for consumers
	updates chan Update
}

// New creates a new live monitor.
//
// Parameters:
//   - cfg: Monitor configuration
//   - src: Summary source, usually a session.Manager
//   - w: Shard directory watcher
//   - log: Logger instance
//
// Returns:
//   - Configured LiveMonitor
//   - Error if configuration is invalid
func New(cfg Config, src Source, w watcher.Watcher, log logger.Logger) (LiveMonitor, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: directory is required", ErrInvalidConfig)
	}
	if cfg.RefreshInterval < 0 || cfg.Window < 0 {
		return nil, fmt.Errorf("%w: negative interval", ErrInvalidConfig)
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &liveMonitor{
		config:   cfg,
		logger:   log,
		source:   src,
		watcher:  w,
		stopChan: make(chan struct{}),
		updates:  make(chan Update, 10),
	}

	log.Info("live monitor created",
		"dir", cfg.Dir,
		"refresh_interval", cfg.RefreshInterval,
		"window", cfg.Window)

	return m, nil
}

// Start implements LiveMonitor.Start.
func (m *liveMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if m.running {
		m.mu.Unlock()
		return ErrMonitorRunning
	}
	m.running = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan
	m.mu.Unlock()

	if err := m.refresh(ctx, TriggerInitial, shard.Date{}); err != nil {
		m.setStopped()
		return fmt.Errorf("initial summary failed: %w", err)
	}

	if err := m.watcher.Start(ctx, m.config.Dir); err != nil {
		m.setStopped()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	go m.processEvents(ctx, stop)
	go m.periodicUpdates(ctx, stop)

	m.logger.Info("live monitor started")
	return nil
}

func (m *liveMonitor) setStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		close(m.stopChan)
		m.running = false
	}
}

// Stop implements LiveMonitor.Stop.
func (m *liveMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if !m.running {
		return ErrMonitorNotRunning
	}

	close(m.stopChan)
	m.running = false

	if err := m.watcher.Stop(); err != nil {
		m.logger.Warn("failed to stop watcher", "error", err)
	}

	m.logger.Info("live monitor stopped")
	return nil
}

// Summary implements LiveMonitor.Summary.
func (m *liveMonitor) Summary() *session.Summary {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	if m.last == nil {
		return nil
	}
	s := *m.last
	return &s
}

// Updates implements LiveMonitor.Updates.
func (m *liveMonitor) Updates() <-chan Update {
	return m.updates
}

// processEvents handles shard change events from the watcher.
func (m *liveMonitor) processEvents(ctx context.Context, stop <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return

		case <-stop:
			return

		case event, ok := <-m.watcher.Events():
			if !ok {
				m.logger.Info("watcher events channel closed")
				return
			}
			m.handleShardChange(ctx, event)

		case err, ok := <-m.watcher.Errors():
			if !ok {
				m.logger.Info("watcher errors channel closed")
				return
			}
			m.logger.Error("watcher error", "error", err)
		}
	}
}

// handleShardChange reindexes a changed shard and publishes a new summary.
func (m *liveMonitor) handleShardChange(ctx context.Context, event watcher.Event) {
	m.logger.Debug("shard change detected",
		"path", event.Path,
		"date", event.Date.String(),
		"op", event.Op.String())

	if event.Op != watcher.OpRemove && event.Op != watcher.OpRename {
		if n, err := m.source.Reindex(ctx, event.Date); err != nil {
			m.logger.Warn("failed to reindex shard",
				"date", event.Date.String(),
				"error", err)
		} else {
			m.logger.Debug("shard reindexed", "date", event.Date.String(), "sessions", n)
		}
	}

	if err := m.refresh(ctx, TriggerChange, event.Date); err != nil {
		m.logger.Warn("failed to refresh summary", "error", err)
	}
}

// periodicUpdates refreshes the summary even if no shard changes, so that
// active session counts age out.
func (m *liveMonitor) periodicUpdates(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-stop:
			return

		case <-ticker.C:
			if err := m.refresh(ctx, TriggerTick, shard.Date{}); err != nil {
				m.logger.Warn("failed to refresh summary", "error", err)
			}
		}
	}
}

// refresh recomputes the summary and sends it to the updates channel.
func (m *liveMonitor) refresh(ctx context.Context, trigger Trigger, date shard.Date) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	now := m.config.Now()
	var from time.Time
	if m.config.Window > 0 {
		from = now.Add(-m.config.Window)
	}

	current, err := m.source.Summary(ctx, from, time.Time{})
	if err != nil {
		return err
	}

	var prev session.Summary
	if m.last != nil {
		prev = *m.last
	}
	m.last = current

	update := Update{
		Timestamp: now,
		Summary:   *current,
		Delta: DeltaStats{
			NewSessions:  current.TotalSessions - prev.TotalSessions,
			NewPageViews: current.TotalPageViews - prev.TotalPageViews,
			NewEvents:    current.TotalEvents - prev.TotalEvents,
			ActiveChange: current.ActiveSessions - prev.ActiveSessions,
		},
		Trigger: trigger,
		Date:    date,
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil
	}

	select {
	case m.updates <- update:
	default:
		m.logger.Warn("updates channel full, dropping update", "trigger", string(trigger))
	}
	return nil
}

// Close implements LiveMonitor.Close.
func (m *liveMonitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.running {
		close(m.stopChan)
		m.running = false
	}

	close(m.updates)

	m.logger.Info("live monitor closed")
	return nil
}
