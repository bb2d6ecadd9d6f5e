package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/0xmhha/session-analytics/pkg/display"
	"github.com/0xmhha/session-analytics/pkg/monitor"
	"github.com/0xmhha/session-analytics/pkg/watcher"
)

// watchCommand shows a live summary of the sessions directory.
type watchCommand struct {
	configPath string
	refresh    time.Duration
	window     time.Duration
	format     string
	history    bool
	out        io.Writer
}

func runWatchCommand(configPath string, args []string, out io.Writer) error {
	cmd := &watchCommand{configPath: configPath, out: out}

	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags.DurationVar(&cmd.refresh, "refresh", time.Second, "refresh interval")
	flags.DurationVar(&cmd.window, "window", 0, "only count sessions started within this window (0 for all)")
	flags.StringVar(&cmd.format, "format", "table", "output format (table, simple)")
	flags.BoolVar(&cmd.history, "history", false, "keep previous updates instead of redrawing")
	if err := flags.Parse(args); err != nil {
		return err
	}

	return cmd.Execute()
}

// Execute runs until SIGINT or SIGTERM.
func (c *watchCommand) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.run(ctx)
}

func (c *watchCommand) run(ctx context.Context) error {
	format, err := display.ParseFormat(c.format)
	if err != nil {
		return err
	}
	if format == display.FormatJSON {
		return fmt.Errorf("watch supports table and simple formats")
	}

	// Only errors are logged so they don't interleave with the display.
	a, err := openApp(c.configPath, appOptions{logLevel: "error"})
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := watcher.New(watcher.Config{
		DebounceInterval: a.cfg.Watcher.DebounceInterval,
	}, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}

	mon, err := monitor.New(monitor.Config{
		Dir:             a.dir.Path(),
		RefreshInterval: c.refresh,
		Window:          c.window,
	}, a.mgr, w, a.log)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	defer func() {
		if err := mon.Close(); err != nil {
			a.log.Error("failed to close monitor", "error", err)
		}
		if err := w.Close(); err != nil {
			a.log.Error("failed to close watcher", "error", err)
		}
	}()

	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}

	formatter := display.New(display.Config{
		Format: format,
		Color:  display.ColorEnabled(c.out),
	})
	redraw := !c.history && display.IsTerminal(c.out)

	c.printHeader(a.dir.Path())

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, "Stopping monitor...")
			if err := mon.Stop(); err != nil {
				a.log.Error("failed to stop monitor", "error", err)
			}
			return nil

		case update, ok := <-mon.Updates():
			if !ok {
				return nil
			}
			if redraw {
				fmt.Fprint(c.out, "\033[H\033[2J")
				c.printHeader(a.dir.Path())
			}
			if err := formatter.FormatUpdate(c.out, update); err != nil {
				return err
			}
			fmt.Fprintln(c.out)
		}
	}
}

func (c *watchCommand) printHeader(dir string) {
	fmt.Fprintln(c.out, "Live Session Monitor - Press Ctrl+C to stop")
	window := "all sessions"
	if c.window > 0 {
		window = "last " + c.window.String()
	}
	fmt.Fprintf(c.out, "Dir: %s | Window: %s | Refresh: %s\n", dir, window, c.refresh)
	fmt.Fprintln(c.out, strings.Repeat("─", 80))
	fmt.Fprintln(c.out)
}
