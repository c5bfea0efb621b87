package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"carpoolcal/internal/config"
	"carpoolcal/internal/ics"
	"carpoolcal/internal/ledger"
	appLog "carpoolcal/internal/log"
	"carpoolcal/internal/match"
	"carpoolcal/internal/normalize"
	"carpoolcal/internal/report"
)

type flagConfig struct {
	configPath string
	once       bool
	dryRun     bool
	debug      bool
}

func main() {
	appLog.Info("carpoolcal starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"trip_cost", conf.TripCost,
		"retention_days", conf.RetentionDays,
		"horizon_days", conf.HorizonDays,
		"ledger_file", conf.LedgerFile,
		"refresh", conf.RefreshCron,
		"once", flags.once,
		"dry_run", flags.dryRun,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, loc, flags.dryRun); err != nil {
		appLog.Error("run failed", err)
		if flags.once || conf.RefreshCron == "" {
			os.Exit(1)
		}
	}

	if flags.once || conf.RefreshCron == "" {
		appLog.Info("carpoolcal exiting")
		return
	}

	// Resident mode: re-run the pipeline on the configured schedule.
	// Runs never overlap: cron fires sequentially per entry and the
	// pipeline holds no state between runs besides the ledger file.
	c := cron.New()
	_, err = c.AddFunc(conf.RefreshCron, func() {
		if err := run(ctx, conf, loc, flags.dryRun); err != nil {
			appLog.Error("scheduled run failed", err)
		}
	})
	if err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	appLog.Info("scheduler started", "refresh", conf.RefreshCron)

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("carpoolcal exiting")
}

// run executes one full batch cycle: ingest the feed, normalize, match
// destinations, merge into the persisted ledger, compute balances and
// write the report. The ledger is only stored after everything else
// succeeded, so a failed run never persists a partial result.
func run(ctx context.Context, conf *config.Config, loc *time.Location, dryRun bool) error {
	body, err := loadFeed(ctx, conf)
	if err != nil {
		return fmt.Errorf("load feed: %w", err)
	}

	parsed, err := ics.Parse(body, loc)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	now := time.Now().In(loc)

	// Expand one day past the retention boundary so boundary events are
	// still seen by the merge.
	raw, err := ics.Expand(parsed, ics.ExpandConfig{
		Location:   loc,
		RangeStart: now.AddDate(0, 0, -(conf.RetentionDays + 1)),
		RangeEnd:   now.AddDate(0, 0, conf.HorizonDays),
	})
	if err != nil {
		return fmt.Errorf("expand feed: %w", err)
	}

	events, failures := normalize.NewNormalizer(conf).Events(raw)

	matchReport := match.Destinations(events)

	prev, _, err := ledger.Load(conf.LedgerFile)
	if err != nil {
		return err
	}

	merged := ledger.Merge(prev, events, conf.RetentionDays, now)
	balances := ledger.Balances(merged)

	if err := report.Write(conf.ReportFile, merged, balances, matchReport, failures); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if dryRun {
		appLog.Info("dry run, ledger not stored", "entries", merged.Len())
		return nil
	}
	return ledger.Store(conf.LedgerFile, merged)
}

// loadFeed reads the ICS payload from the configured local file, or fetches
// it over HTTP. A configured file takes precedence.
func loadFeed(ctx context.Context, conf *config.Config) ([]byte, error) {
	if conf.CalendarFile != "" {
		return os.ReadFile(conf.CalendarFile)
	}
	if conf.CalendarURL != "" {
		body, _, err := ics.NewFetcher(conf.CacheDir).Fetch(ctx, conf.CalendarURL)
		return body, err
	}
	return nil, errors.New("no calendar source configured (set calendar_file or calendar_url)")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./carpoolcal.yaml", "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Run one pipeline cycle and exit, ignoring the refresh schedule")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Compute and write the report but do not store the ledger")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
