package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/0xmhha/session-analytics/pkg/api"
	"github.com/0xmhha/session-analytics/pkg/display"
	"github.com/0xmhha/session-analytics/pkg/session"
)

// filterFlags are the session filters shared by list and export. They are
// parsed through api.ParseFilters so the CLI and admin API agree.
type filterFlags struct {
	from, to      string
	country       string
	browser       string
	device        string
	user          string
	ip            string
	limit, offset int
}

func (f *filterFlags) register(flags *flag.FlagSet) {
	flags.StringVar(&f.from, "from", "", "start date (YYYY-MM-DD or RFC 3339)")
	flags.StringVar(&f.to, "to", "", "end date, inclusive")
	flags.StringVar(&f.country, "country", "", "country substring")
	flags.StringVar(&f.browser, "browser", "", "browser substring")
	flags.StringVar(&f.device, "device", "", "device type")
	flags.StringVar(&f.user, "user", "", "user ID")
	flags.StringVar(&f.ip, "ip", "", "IP address")
	flags.IntVar(&f.limit, "limit", 0, "page size or row cap (0 uses the configured default)")
	flags.IntVar(&f.offset, "offset", 0, "rows to skip")
}

// query renders the flags as admin API query parameters.
func (f *filterFlags) query() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("dateFrom", f.from)
	set("dateTo", f.to)
	set("country", f.country)
	set("browser", f.browser)
	set("deviceType", f.device)
	set("userId", f.user)
	set("ipAddress", f.ip)
	if f.limit != 0 {
		q.Set("limit", strconv.Itoa(f.limit))
	}
	if f.offset != 0 {
		q.Set("offset", strconv.Itoa(f.offset))
	}
	return q
}

func (f *filterFlags) filters() (session.Filters, error) {
	return api.ParseFilters(f.query())
}

// outputFlags select a display formatter.
type outputFlags struct {
	format  string
	compact bool
}

func (o *outputFlags) register(flags *flag.FlagSet) {
	flags.StringVar(&o.format, "format", "table", "output format (table, json, simple)")
	flags.BoolVar(&o.compact, "compact", false, "compact output")
}

func (o *outputFlags) formatter(out io.Writer) (display.Formatter, error) {
	format, err := display.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	return display.New(display.Config{
		Format:  format,
		Compact: o.compact,
		Color:   display.ColorEnabled(out),
	}), nil
}

// listCommand lists sessions matching filters.
type listCommand struct {
	configPath string
	filter     filterFlags
	output     outputFlags
	out        io.Writer
}

func runListCommand(configPath string, args []string, out io.Writer) error {
	cmd := &listCommand{configPath: configPath, out: out}

	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	cmd.filter.register(flags)
	cmd.output.register(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	return cmd.Execute()
}

// Execute runs the list command.
func (c *listCommand) Execute() error {
	filters, err := c.filter.filters()
	if err != nil {
		return err
	}
	formatter, err := c.output.formatter(c.out)
	if err != nil {
		return err
	}

	a, err := openApp(c.configPath, appOptions{logLevel: "error"})
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.mgr.List(context.Background(), filters)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	return formatter.FormatSessions(c.out, page, filters.Offset)
}

// showCommand shows one session.
type showCommand struct {
	configPath string
	sessionID  string
	output     outputFlags
	out        io.Writer
}

func runShowCommand(configPath string, args []string, out io.Writer) error {
	cmd := &showCommand{configPath: configPath, out: out}

	flags := flag.NewFlagSet("show", flag.ContinueOnError)
	cmd.output.register(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: session-analytics show [flags] <session-id>")
	}
	cmd.sessionID = flags.Arg(0)

	return cmd.Execute()
}

// Execute runs the show command.
func (c *showCommand) Execute() error {
	formatter, err := c.output.formatter(c.out)
	if err != nil {
		return err
	}

	a, err := openApp(c.configPath, appOptions{logLevel: "error"})
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.mgr.Get(context.Background(), c.sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return fmt.Errorf("session %s not found", c.sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	return formatter.FormatSession(c.out, rec)
}

// summaryCommand shows the analytics summary for a date range.
type summaryCommand struct {
	configPath string
	from, to   string
	output     outputFlags
	out        io.Writer
}

func runSummaryCommand(configPath string, args []string, out io.Writer) error {
	cmd := &summaryCommand{configPath: configPath, out: out}

	flags := flag.NewFlagSet("summary", flag.ContinueOnError)
	flags.StringVar(&cmd.from, "from", "", "start date (YYYY-MM-DD or RFC 3339)")
	flags.StringVar(&cmd.to, "to", "", "end date, inclusive")
	cmd.output.register(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	return cmd.Execute()
}

// Execute runs the summary command.
func (c *summaryCommand) Execute() error {
	rng := filterFlags{from: c.from, to: c.to}
	filters, err := rng.filters()
	if err != nil {
		return err
	}
	formatter, err := c.output.formatter(c.out)
	if err != nil {
		return err
	}

	a, err := openApp(c.configPath, appOptions{logLevel: "error"})
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.mgr.Summary(context.Background(), filters.DateFrom, filters.DateTo)
	if err != nil {
		return fmt.Errorf("failed to compute summary: %w", err)
	}

	return formatter.FormatSummary(c.out, summary)
}

// exportCommand writes matching sessions as CSV.
type exportCommand struct {
	configPath string
	filter     filterFlags
	output     string
	out        io.Writer
}

func runExportCommand(configPath string, args []string, out io.Writer) error {
	cmd := &exportCommand{configPath: configPath, out: out}

	flags := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.filter.register(flags)
	flags.StringVar(&cmd.output, "o", "", "output file (default: stdout)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	return cmd.Execute()
}

// Execute runs the export command.
func (c *exportCommand) Execute() error {
	filters, err := c.filter.filters()
	if err != nil {
		return err
	}

	a, err := openApp(c.configPath, appOptions{logLevel: "error"})
	if err != nil {
		return err
	}
	defer a.Close()

	csv, err := a.mgr.ExportCSV(context.Background(), filters)
	if err != nil {
		return fmt.Errorf("failed to export sessions: %w", err)
	}

	if csv == session.NoSessionsFound {
		_, err := fmt.Fprintln(c.out, csv)
		return err
	}

	if c.output == "" {
		_, err := io.WriteString(c.out, csv)
		return err
	}

	if err := os.WriteFile(c.output, []byte(csv), 0o644); err != nil { // nolint:gosec
		return fmt.Errorf("failed to write %s: %w", c.output, err)
	}
	fmt.Fprintf(c.out, "Exported sessions to %s\n", c.output)
	return nil
}
