package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
	"github.com/Sriram-PR/aio-diagnoser/pkg/crawler"
	"github.com/Sriram-PR/aio-diagnoser/pkg/detect"
	"github.com/Sriram-PR/aio-diagnoser/pkg/fetch"
	"github.com/Sriram-PR/aio-diagnoser/pkg/llm"
	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/orchestrate"
	"github.com/Sriram-PR/aio-diagnoser/pkg/probe"
	"github.com/Sriram-PR/aio-diagnoser/pkg/process"
	"github.com/Sriram-PR/aio-diagnoser/pkg/report"
	"github.com/Sriram-PR/aio-diagnoser/pkg/storage"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

const (
	version = "1.0.0"

	// Applied when the config leaves analysis_timeout unset
	defaultAnalysisTimeout = 120 * time.Second
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(os.Args[2:])
	case "show":
		runShow(os.Args[2:])
	case "list":
		runList(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("aio-diagnoser %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `aio-diagnoser - AI search optimization (AIO) site diagnosis

Usage:
  aio-diagnoser <command> [options]

Commands:
  analyze     Crawl a site, score it and check AI citations
  show        Print a stored diagnosis
  list        List stored diagnoses
  stats       Show aggregate figures over stored diagnoses
  inspect     Inspect a single page (signals, page score, passages)
  watch       Re-diagnose configured sites on a schedule
  mcp-server  Start MCP server for AI tool integration
  validate    Validate configuration file
  version     Show version info

Run 'aio-diagnoser <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file. An empty path yields the
// default configuration.
func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		return config.Default(), nil
	}

	var cfg config.AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// prepareConfig loads and validates the config, logging warnings
func prepareConfig(path string, log *logrus.Logger) (*config.AppConfig, error) {
	if path != "" {
		log.Debugf("Loading configuration from %s", path)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the CLI logger; an unknown level falls back to info
func newLogger(levelStr string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", levelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// app holds the wired pipeline shared by analyze, inspect and mcp-server
type app struct {
	cfg          *config.AppConfig
	log          *logrus.Logger
	fetcher      *fetch.PageFetcher
	detector     *detect.ContentDetector
	store        *storage.BadgerStore // nil when persistence is disabled
	orchestrator *orchestrate.Orchestrator
}

// newApp wires fetcher, crawler, prober, store and orchestrator from cfg
func newApp(cfg *config.AppConfig, log *logrus.Logger, withStore bool) (*app, error) {
	entry := log.WithField("component", "main")

	if err := process.InitTokenizer(cfg.Preview.Encoding); err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrConfigValidation, err)
	}

	httpClient := fetch.NewClient(cfg.HTTPClientSettings, log.WithField("component", "http"))
	fetcher := fetch.NewPageFetcher(httpClient, fetch.Options{
		UserAgent:   cfg.UserAgent,
		PageTimeout: cfg.PageTimeout,
		CrawlDelay:  cfg.CrawlDelay,
	}, log.WithField("component", "fetch"))
	robots := fetch.NewRobotsHandler(httpClient, cfg.UserAgent, cfg.PageTimeout, log.WithField("component", "robots"))
	siteCrawler := crawler.New(fetcher, crawler.OptionsFromConfig(cfg, robots), log.WithField("component", "crawler"))

	var client llm.Client
	gemini, err := llm.NewGeminiClient(cfg.Gemini, cfg.Gemini.ResolveAPIKey(), nil, log.WithField("component", "llm"))
	switch {
	case err == nil:
		client = gemini
	case errors.Is(err, utils.ErrLLMUnavailable):
		entry.Warnf("AI citation check disabled: %v", err)
	default:
		return nil, err
	}
	prober := probe.New(client, probe.NewPolicy(cfg.Gemini), probe.OptionsFromConfig(cfg.Gemini), log.WithField("component", "probe"))

	a := &app{cfg: cfg, log: log, fetcher: fetcher, detector: detect.NewContentDetector(logrus.NewEntry(log))}

	var writer storage.DiagnosisWriter
	if withStore {
		store, err := storage.NewBadgerStore(cfg.StateDir, log.WithField("component", "storage"))
		if err != nil {
			return nil, err
		}
		a.store = store
		writer = store
	}

	timeout := cfg.AnalysisTimeout
	if timeout <= 0 {
		timeout = defaultAnalysisTimeout
	}
	a.orchestrator = orchestrate.NewOrchestrator(siteCrawler, prober, writer,
		log.WithField("component", "orchestrate"), orchestrate.WithAnalysisTimeout(timeout))

	return a, nil
}

// Close releases the store, if one was opened
func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Errorf("Error closing store: %v", err)
	}
}

// openStore opens the diagnosis store for the read-only subcommands
func openStore(configPath string, log *logrus.Logger) (*storage.BadgerStore, error) {
	cfg, err := prepareConfig(configPath, log)
	if err != nil {
		return nil, err
	}
	return storage.NewBadgerStore(cfg.StateDir, log.WithField("component", "storage"))
}

// --- analyze ---

type analyzeOptions struct {
	ConfigPath string
	LogLevel   string
	URL        string
	Industry   string
	Region     string
	Format     string
	OutDir     string // When set the report is written to a file here instead of stdout
	NoSave     bool
}

// runAnalyze handles the analyze subcommand
func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	opts := analyzeOptions{}
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to config file (defaults apply when empty)")
	fs.StringVar(&opts.URL, "url", "", "Site URL to diagnose")
	fs.StringVar(&opts.Industry, "industry", "", "Business category, e.g. 歯科医院")
	fs.StringVar(&opts.Region, "region", "", "Region, e.g. 渋谷区")
	fs.StringVar(&opts.Format, "format", "md", "Report format (md, json, yaml, html)")
	fs.StringVar(&opts.OutDir, "out", "", "Write the report into this directory instead of stdout")
	fs.BoolVar(&opts.NoSave, "no-save", false, "Do not persist the diagnosis")
	fs.StringVar(&opts.LogLevel, "loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aio-diagnoser analyze [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  aio-diagnoser analyze -url shibuya-dental.example -industry 歯科医院 -region 渋谷区\n")
		fmt.Fprintf(os.Stderr, "  aio-diagnoser analyze -url https://example.com -industry 美容室 -region 札幌市 -format json\n")
		fmt.Fprintf(os.Stderr, "  aio-diagnoser analyze -url https://example.com -industry 美容室 -region 札幌市 -format html -out reports\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := doAnalyze(ctx, opts, os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}

// doAnalyze runs one diagnosis and writes the report to stdout.
// Returns exit code (0 = success, 1 = error).
func doAnalyze(ctx context.Context, opts analyzeOptions, stdout, stderr io.Writer) int {
	log := newLogger(opts.LogLevel, stderr)

	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := prepareConfig(opts.ConfigPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return 1
	}

	a, err := newApp(cfg, log, !opts.NoSave)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	result, err := a.orchestrator.Diagnose(ctx, models.DiagnosisRequest{
		URL:      opts.URL,
		Industry: opts.Industry,
		Region:   opts.Region,
	})
	if err != nil {
		log.WithField("error_type", utils.CategorizeError(err)).Debugf("Diagnosis failed: %v", err)
		fmt.Fprintln(stderr, orchestrate.UserMessage(err))
		return 1
	}

	if opts.OutDir != "" {
		path, err := writeReportFile(opts.OutDir, format, result)
		if err != nil {
			fmt.Fprintf(stderr, "Error writing report: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, path)
	} else if err := report.Render(stdout, format, result); err != nil {
		fmt.Fprintf(stderr, "Error writing report: %v\n", err)
		return 1
	}
	if a.store != nil {
		log.Infof("Saved diagnosis %s", result.ID)
	}
	return 0
}

// writeReportFile renders result into dir and returns the file path
func writeReportFile(dir string, format report.Format, result *models.DiagnosisResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, report.FileName(result, format))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := report.Render(f, format, result); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// --- show ---

// runShow handles the show subcommand
func runShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (defaults apply when empty)")
	id := fs.String("id", "", "Diagnosis ID")
	format := fs.String("format", "md", "Report format (md, json, yaml, html)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aio-diagnoser show -id <diagnosis-id> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doShow(*configFile, *id, *format, *logLevel, os.Stdout, os.Stderr))
}

// doShow renders one stored diagnosis
func doShow(configPath, id, formatStr, logLevel string, stdout, stderr io.Writer) int {
	if id == "" {
		fmt.Fprintln(stderr, "Error: -id is required")
		return 1
	}
	format, err := report.ParseFormat(formatStr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	log := newLogger(logLevel, stderr)
	store, err := openStore(configPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	result, err := store.Get(context.Background(), id)
	if errors.Is(err, utils.ErrNotFound) {
		fmt.Fprintf(stderr, "Error: diagnosis '%s' not found\n", id)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := report.Render(stdout, format, result); err != nil {
		fmt.Fprintf(stderr, "Error writing report: %v\n", err)
		return 1
	}
	return 0
}

// --- list ---

// runList handles the list subcommand
func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (defaults apply when empty)")
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", storage.DefaultListLimit, fmt.Sprintf("Rows per page (max %d)", storage.MaxListLimit))
	search := fs.String("search", "", "Filter by URL, industry or region")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aio-diagnoser list [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	q := storage.ListQuery{Page: *page, Limit: *limit, Search: *search}
	os.Exit(doList(*configFile, q, *logLevel, os.Stdout, os.Stderr))
}

// doList prints one page of stored diagnoses, newest first
func doList(configPath string, q storage.ListQuery, logLevel string, stdout, stderr io.Writer) int {
	log := newLogger(logLevel, stderr)
	store, err := openStore(configPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	page, err := store.List(context.Background(), q)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Diagnoses: %d total\n\n", page.Total)
	for _, d := range page.Data {
		fmt.Fprintf(stdout, "  %s\n", d.ID)
		fmt.Fprintf(stdout, "    URL: %s\n", d.URL)
		fmt.Fprintf(stdout, "    Industry / Region: %s / %s\n", d.Industry, d.Region)
		fmt.Fprintf(stdout, "    Score: %d (%s), %d pages\n", d.TotalScore, d.Rank, d.PagesAnalyzed)
		fmt.Fprintf(stdout, "    Created: %s\n", d.CreatedAt.Format(time.RFC3339))
		fmt.Fprintln(stdout)
	}
	return 0
}

// --- stats ---

// runStats handles the stats subcommand
func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (defaults apply when empty)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aio-diagnoser stats [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doStats(*configFile, *logLevel, os.Stdout, os.Stderr))
}

// doStats prints aggregate figures over stored diagnoses
func doStats(configPath, logLevel string, stdout, stderr io.Writer) int {
	log := newLogger(logLevel, stderr)
	store, err := openStore(configPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	stats, err := store.Stats(context.Background(), time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Total diagnoses: %d\n", stats.TotalDiagnoses)
	fmt.Fprintf(stdout, "Average score:   %d\n", stats.AverageScore)
	fmt.Fprintf(stdout, "Last 30 days:    %d\n", stats.RecentCount)
	fmt.Fprintln(stdout, "Rank distribution:")
	for _, rank := range []models.Rank{models.RankA, models.RankB, models.RankC, models.RankD, models.RankE} {
		fmt.Fprintf(stdout, "  %s: %d\n", rank, stats.RankDistribution[rank])
	}
	return 0
}

// --- inspect ---

// runInspect handles the inspect subcommand
func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (defaults apply when empty)")
	pageURL := fs.String("url", "", "Page URL to inspect")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aio-diagnoser inspect -url <page-url> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := doInspect(ctx, *configFile, *pageURL, *logLevel, os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}

// doInspect prints the single-page inspection as JSON
func doInspect(ctx context.Context, configPath, pageURL, logLevel string, stdout, stderr io.Writer) int {
	log := newLogger(logLevel, stderr)
	cfg, err := prepareConfig(configPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return 1
	}

	a, err := newApp(cfg, log, false)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	inspection, err := orchestrate.Inspect(ctx, a.fetcher, a.detector, pageURL, cfg.Preview)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(inspection); err != nil {
		fmt.Fprintf(stderr, "Error writing output: %v\n", err)
		return 1
	}
	return 0
}

// --- validate ---

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aio-diagnoser validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	if err := process.InitTokenizer(cfg.Preview.Encoding); err != nil {
		fmt.Fprintf(stderr, "ERROR: preview.encoding: %v\n", err)
		return 1
	}

	if cfg.Gemini.ResolveAPIKey() == "" {
		fmt.Fprintf(stdout, "WARN: no Gemini API key (gemini.api_key or $%s); the AI citation check will be skipped\n", cfg.Gemini.APIKeyEnv)
	}
	fmt.Fprintf(stdout, "OK: model %s, max %d pages, state in %s\n", cfg.Gemini.Model, cfg.MaxPages, cfg.StateDir)

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}
