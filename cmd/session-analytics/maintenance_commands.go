package main

import (
	"context"
	"flag"
	"fmt"
	"io"
)

func runCleanupCommand(configPath string, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	a, err := openApp(configPath, appOptions{logLevel: "error"})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.mgr.Cleanup(context.Background())
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if len(result.ShardsRemoved) == 0 {
		fmt.Fprintf(out, "No shards older than %s\n", result.Cutoff)
	} else {
		fmt.Fprintf(out, "Removed %d shard(s) older than %s:\n", len(result.ShardsRemoved), result.Cutoff)
		for _, name := range result.ShardsRemoved {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}
	fmt.Fprintf(out, "Index entries removed: %d\n", result.IndexRemoved)
	return nil
}

func runReindexCommand(configPath string, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("reindex", flag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Reindexing writes the index, so it must own the bolt file.
	a, err := openApp(configPath, appOptions{logLevel: "error", exclusive: true})
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.mgr.ReindexAll(context.Background())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Fprintf(out, "Indexed %d session(s)\n", n)
	return nil
}
