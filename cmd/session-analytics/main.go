// Package main provides the session-analytics CLI application.
//
// Session Analytics records visitor browsing sessions into day-sharded JSON
// files. The serve command runs the HTTP collector; the other commands query
// and maintain the same sessions directory.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("session-analytics", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to configuration file")
	envFile := flags.String("env", ".env", "dotenv file loaded before configuration")
	showVersion := flags.Bool("version", false, "show version information")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(out, "session-analytics %s\n", version)
		return nil
	}

	if err := loadEnv(*envFile); err != nil {
		return err
	}

	rest := flags.Args()
	if len(rest) == 0 {
		return showUsage(out)
	}

	command, cmdArgs := rest[0], rest[1:]

	switch command {
	case "serve":
		return runServeCommand(*configPath, cmdArgs, out)
	case "list":
		return runListCommand(*configPath, cmdArgs, out)
	case "show":
		return runShowCommand(*configPath, cmdArgs, out)
	case "summary":
		return runSummaryCommand(*configPath, cmdArgs, out)
	case "export":
		return runExportCommand(*configPath, cmdArgs, out)
	case "cleanup":
		return runCleanupCommand(*configPath, cmdArgs, out)
	case "reindex":
		return runReindexCommand(*configPath, cmdArgs, out)
	case "watch":
		return runWatchCommand(*configPath, cmdArgs, out)
	case "token":
		return runTokenCommand(*configPath, cmdArgs, out)
	case "config":
		cmd := &configCommand{configPath: *configPath, out: out}
		return cmd.Execute(cmdArgs)
	case "help":
		return showUsage(out)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// loadEnv loads a dotenv file into the process environment. A missing file
// is fine; variables already set win over the file.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// showUsage displays usage information.
func showUsage(out io.Writer) error {
	usage := `Session Analytics - visitor session logger and analytics

Usage:
  session-analytics [flags] <command> [command flags]

Commands:
  serve       Run the HTTP collector and admin API
  list        List sessions matching filters
  show        Show one session with its events
  summary     Show the analytics summary
  export      Export sessions as CSV
  cleanup     Delete shards older than the retention period
  reindex     Rebuild the session index from the shards
  watch       Live summary of the sessions directory
  token       Mint an admin JWT for the admin API
  config      Configuration management (show, path, reset)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -env        Dotenv file loaded first (default: .env)
  -version    Show version information

Filter Flags (list, export):
  -from       Start date (YYYY-MM-DD or RFC 3339)
  -to         End date, inclusive
  -country    Country substring (case-insensitive)
  -browser    Browser substring (case-insensitive)
  -device     Device type (desktop, mobile, tablet)
  -user       User ID
  -ip         IP address
  -limit      Page size (list) or row cap (export)
  -offset     Rows to skip

Examples:
  # Start the collector on :8080
  session-analytics serve

  # Sessions from Canada on mobile, as JSON
  session-analytics list -country canada -device mobile -format json

  # Summary for May 2024
  session-analytics summary -from 2024-05-01 -to 2024-05-31

  # Export one user's sessions
  session-analytics export -user 42 -o sessions.csv

  # Live summary of the last hour
  session-analytics watch -window 1h

  # Token for the admin API
  session-analytics token -subject ops

Version: %s
`

	_, err := fmt.Fprintf(out, usage, version)
	return err
}
