package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/watch"
)

// runWatch handles the watch subcommand
func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file listing watch_targets")
	interval := fs.String("interval", "", "Re-diagnosis interval, e.g. 12h or 7d (default: watch_interval from config)")
	once := fs.Bool("once", false, "Diagnose due targets once and exit")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: aio-diagnoser watch [options]

Re-diagnose the sites listed under watch_targets on a schedule and
log how their scores change. Results are stored like 'analyze' results.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := doWatch(ctx, *configFile, *interval, *once, *logLevel, os.Stderr)
	os.Exit(exitCode)
}

// doWatch runs the watch scheduler until ctx is cancelled, or a single pass
// when once is set.
func doWatch(ctx context.Context, configPath, intervalStr string, once bool, logLevel string, stderr io.Writer) int {
	log := newLogger(logLevel, stderr)

	cfg, err := prepareConfig(configPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if len(cfg.WatchTargets) == 0 {
		fmt.Fprintln(stderr, "Error: no watch_targets configured")
		return 1
	}

	interval := cfg.WatchInterval
	if intervalStr != "" {
		interval, err = watch.ParseInterval(intervalStr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	a, err := newApp(cfg, log, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	targets := make([]models.DiagnosisRequest, 0, len(cfg.WatchTargets))
	for _, t := range cfg.WatchTargets {
		targets = append(targets, models.DiagnosisRequest{URL: t.URL, Industry: t.Industry, Region: t.Region})
	}

	scheduler := watch.NewScheduler(a.orchestrator, targets, interval, cfg.StateDir, log.WithField("component", "watch"))
	go func() {
		<-ctx.Done()
		scheduler.Stop()
	}()

	if once {
		failed, err := scheduler.RunOnce()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		printWatchStatus(stderr, scheduler.GetStatus())
		if failed > 0 {
			return 1
		}
		return 0
	}

	gcCtx, stopGC := context.WithCancel(context.Background())
	defer stopGC()
	go a.store.RunGC(gcCtx, cfg.DBGCInterval)

	if err := scheduler.Run(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printWatchStatus(w io.Writer, statuses []watch.TargetStatus) {
	for _, st := range statuses {
		switch {
		case st.NeverRun:
			fmt.Fprintf(w, "%-40s  never run\n", st.URL)
		case st.LastRunSuccess:
			fmt.Fprintf(w, "%-40s  %3d (%s)  %s  next %s\n", st.URL, st.LastScore, st.LastRank,
				st.LastDiagnosisID, st.NextRunTime.Format(time.RFC3339))
		default:
			fmt.Fprintf(w, "%-40s  failed: %s\n", st.URL, st.ErrorMessage)
		}
	}
}
