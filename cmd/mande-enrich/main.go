// mande-enrich reads mAnDE experiment logs, averages the mSPnDE statistics
// they report, and appends the means as four new columns to the matching
// result CSV files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/albacete-simd/mande-enrich/internal/config"
	"github.com/albacete-simd/mande-enrich/internal/enricher"
	"github.com/albacete-simd/mande-enrich/internal/reporter"
	"github.com/albacete-simd/mande-enrich/internal/source"
	"github.com/albacete-simd/mande-enrich/internal/store"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			runEnrich(os.Args[2:])
			return
		case "history":
			runHistory(os.Args[2:])
			return
		case "stats":
			runStats(os.Args[2:])
			return
		case "version":
			fmt.Println("mande-enrich", version)
			return
		}
	}

	// Default: run the enrichment pass.
	runEnrich(os.Args[1:])
}

func runEnrich(args []string) {
	fs := flag.NewFlagSet("mande-enrich", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	dir := fs.String("dir", "", "directory holding mAnDE.o* logs (results are read from <dir>/results)")
	dryRun := fs.Bool("dry-run", false, "compute means without writing result files")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Parse(args)

	if *showVersion {
		fmt.Println("mande-enrich", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.Input.Dir = *dir
	}

	setupLogging(cfg.Log.Level)

	slog.Info("mande-enrich starting",
		"version", version,
		"dir", cfg.Input.Dir,
		"results", cfg.ResultsDir(),
		"policy", cfg.DuplicatePolicy(),
	)

	if err := run(cfg, *dryRun); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, dryRun bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rec enricher.Recorder
	if cfg.Ledger.Enabled && !dryRun {
		db, err := store.Open(cfg.LedgerPath())
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer db.Close()
		rec = db

		slog.Debug("ledger opened", "path", cfg.LedgerPath())

		if cfg.Ledger.Retention.Duration > 0 {
			purged, err := db.Purge(cfg.Ledger.Retention.Duration)
			if err != nil {
				slog.Warn("failed to purge old ledger entries", "error", err)
			} else if purged > 0 {
				slog.Info("purged old ledger entries", "count", purged, "retention", cfg.Ledger.Retention.Duration)
			}
		}
	}

	enr := enricher.New(enricher.Options{
		Dir:     cfg.Input.Dir,
		Pattern: cfg.Input.Pattern,
		Columns: cfg.ResultColumns(),
		Policy:  cfg.DuplicatePolicy(),
		DryRun:  dryRun,
	}, rec)

	results, err := enr.Run(ctx)
	fmt.Print(reporter.FormatResults(results))
	if err != nil {
		return err
	}

	slog.Info("enrichment pass finished", "files", len(results), "run", enr.RunID())
	return nil
}

// --- history subcommand ---

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	last := fs.String("last", "", "time window (e.g. 24h, 7d); empty for all")
	target := fs.String("target", "", "filter by result CSV filename")
	runID := fs.String("run", "", "filter by run ID")
	limit := fs.Int("limit", 50, "max entries to show")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging("error") // quiet for CLI output

	db, err := store.Open(cfg.LedgerPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening ledger: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	filter := store.QueryFilter{
		Target: *target,
		RunID:  *runID,
		Limit:  *limit,
	}
	if *last != "" {
		d, err := parseDuration(*last)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --last value %q: %v\n", *last, err)
			os.Exit(1)
		}
		filter.Since = time.Now().Add(-d)
	}

	entries, err := db.Query(filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(reporter.FormatEntries(entries))
}

// --- stats subcommand ---

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: mande-enrich stats <logfile>...")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	setupLogging("error")

	for _, path := range fs.Args() {
		content, err := source.ReadAll(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		sum, err := enricher.Summarize(content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("%s -> %s\n   %s\n", path, sum.Target, reporter.FormatMeans(sum.Records, sum.Means.Values()))
	}
}

// parseDuration extends time.ParseDuration with support for "d" (days) suffix.
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		s = strings.TrimSuffix(s, "d")
		var days int
		if _, err := fmt.Sscanf(s, "%d", &days); err != nil {
			return 0, fmt.Errorf("invalid days format: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// --- utilities ---

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
