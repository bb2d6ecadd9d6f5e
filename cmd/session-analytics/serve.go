package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/0xmhha/session-analytics/pkg/api"
	"github.com/0xmhha/session-analytics/pkg/session"
	"github.com/0xmhha/session-analytics/pkg/watcher"
	"github.com/gin-gonic/gin"
)

// serveCommand runs the HTTP collector and admin API.
type serveCommand struct {
	configPath string
	addr       string
	noWatch    bool
	out        io.Writer

	// listener replaces Addr when set. Tests listen on 127.0.0.1:0.
	listener net.Listener
}

func runServeCommand(configPath string, args []string, out io.Writer) error {
	cmd := &serveCommand{configPath: configPath, out: out}

	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	flags.StringVar(&cmd.addr, "addr", "", "listen address (default: server.addr)")
	flags.BoolVar(&cmd.noWatch, "no-watch", false, "do not reindex shards changed by other processes")
	if err := flags.Parse(args); err != nil {
		return err
	}

	return cmd.Execute()
}

// Execute runs until SIGINT or SIGTERM.
func (c *serveCommand) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.run(ctx)
}

func (c *serveCommand) run(ctx context.Context) error {
	a, err := openApp(c.configPath, appOptions{exclusive: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if !strings.EqualFold(a.cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := api.New(api.Config{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		TrustedProxies: a.cfg.Server.TrustedProxies,
		Auth:           authConfig(a.cfg),
	}, a.mgr, a.log.Named("api"))
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	cleaner := session.NewCleaner(a.mgr, a.cfg.Storage.CleanupInterval, a.log.Named("cleaner"))
	cleaner.Start(ctx)
	defer cleaner.Stop()

	if !c.noWatch {
		stopReindexer, err := startReindexer(ctx, a)
		if err != nil {
			return err
		}
		defer stopReindexer()
	}

	addr := a.cfg.Server.Addr
	if c.addr != "" {
		addr = c.addr
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if c.listener != nil {
			a.log.Info("listening", "addr", c.listener.Addr().String())
			err = srv.Serve(c.listener)
		} else {
			a.log.Info("listening", "addr", addr)
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// startReindexer keeps the index in step with shards written by other
// processes sharing the sessions directory.
func startReindexer(ctx context.Context, a *app) (func(), error) {
	w, err := watcher.New(watcher.Config{
		DebounceInterval: a.cfg.Watcher.DebounceInterval,
	}, a.log.Named("watcher"))
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Start(ctx, a.dir.Path()); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch sessions directory: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-w.Events():
				if !ok {
					return
				}
				if event.Op == watcher.OpRemove || event.Op == watcher.OpRename {
					continue
				}
				n, err := a.mgr.Reindex(ctx, event.Date)
				if err != nil {
					a.log.Warn("reindex failed", "shard", event.Date.String(), "error", err)
					continue
				}
				a.log.Debug("shard reindexed", "shard", event.Date.String(), "sessions", n)
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				a.log.Warn("watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		_ = w.Close()
		<-done
	}, nil
}
