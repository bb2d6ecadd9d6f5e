package main

import (
	"errors"
	"fmt"

	"github.com/0xmhha/session-analytics/pkg/config"
	"github.com/0xmhha/session-analytics/pkg/index"
	"github.com/0xmhha/session-analytics/pkg/logger"
	"github.com/0xmhha/session-analytics/pkg/session"
	"github.com/0xmhha/session-analytics/pkg/shard"
)

// app holds the components every storage command needs.
type app struct {
	cfg *config.Config
	log logger.Logger
	dir shard.Dir
	idx index.Index
	mgr session.Manager
}

type appOptions struct {
	// logLevel overrides the configured level when set.
	logLevel string

	// exclusive requires the bbolt index. Otherwise a locked index (a
	// running server holds it) falls back to an in-memory one.
	exclusive bool
}

// openApp loads configuration and opens storage.
func openApp(configPath string, opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	log := logger.New(logger.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	dir, err := shard.Open(cfg.Storage.SessionsDir, log.Named("shard"))
	if err != nil {
		return nil, fmt.Errorf("failed to open sessions directory: %w", err)
	}

	idx, err := index.Open(cfg.Storage.IndexPath, log.Named("index"))
	if err != nil {
		if opts.exclusive || !errors.Is(err, index.ErrLocked) {
			return nil, fmt.Errorf("failed to open session index: %w", err)
		}
		log.Warn("session index in use, falling back to a memory index",
			"path", cfg.Storage.IndexPath)
		idx = index.NewMemory()
	}

	mgr := session.New(sessionConfig(cfg), dir, idx, log.Named("session"))

	return &app{cfg: cfg, log: log, dir: dir, idx: idx, mgr: mgr}, nil
}

// Close releases the index.
func (a *app) Close() {
	if err := a.idx.Close(); err != nil {
		a.log.Error("failed to close session index", "error", err)
	}
}

// sessionConfig maps file configuration onto the session manager.
func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Retention:    cfg.Storage.Retention,
		DefaultLimit: cfg.Query.DefaultLimit,
		MaxExport:    cfg.Query.MaxExport,
		MaxSummary:   cfg.Query.MaxSummary,
		ActiveWindow: cfg.Query.ActiveWindow,
		TopN:         cfg.Query.TopN,
	}
}
