package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Sriram-PR/aio-diagnoser/pkg/mcp"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (defaults apply when empty)")
	transport := fs.String("transport", "stdio", "Transport type (stdio, sse)")
	port := fs.Int("port", 8080, "HTTP port (for sse transport)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: aio-diagnoser mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport (for desktop AI clients)
  aio-diagnoser mcp-server -config config.yaml

  # Start with SSE transport on port 8080
  aio-diagnoser mcp-server -config config.yaml -transport sse -port 8080

Available MCP Tools:
  diagnose_site    Start a background diagnosis (url, industry, region)
  get_job_status   Check a diagnosis job
  get_diagnosis    Fetch a finished diagnosis
  list_diagnoses   List stored diagnoses
  diagnosis_stats  Aggregate figures over stored diagnoses
  inspect_page     Signals, page score and passages of one URL
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doMcpServer(*configFile, *transport, *port, *logLevel, os.Stderr)
	os.Exit(exitCode)
}

// doMcpServer wires the pipeline behind the MCP server and blocks until it stops.
// stdout carries the protocol, so every log line goes to stderr.
func doMcpServer(configPath, transport string, port int, logLevel string, stderr io.Writer) int {
	if transport != "stdio" && transport != "sse" {
		fmt.Fprintf(stderr, "Unknown transport: %s (supported: stdio, sse)\n", transport)
		return 1
	}

	log := newLogger(logLevel, stderr)

	cfg, err := prepareConfig(configPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	a, err := newApp(cfg, log, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	gcCtx, stopGC := context.WithCancel(context.Background())
	defer stopGC()
	go a.store.RunGC(gcCtx, cfg.DBGCInterval)

	server, err := mcp.NewServer(&mcp.ServerConfig{
		AppConfig:  cfg,
		ConfigPath: configPath,
		Transport:  transport,
		Port:       port,
		Logger:     log,
		Diagnoser:  a.orchestrator,
		Fetcher:    a.fetcher,
		Store:      a.store,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	log.Infof("Starting MCP server (transport: %s)", transport)

	runErr := server.Run()
	_ = server.Shutdown(context.Background())
	if runErr != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", runErr)
		return 1
	}
	return 0
}
