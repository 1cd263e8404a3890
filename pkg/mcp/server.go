package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
	"github.com/Sriram-PR/aio-diagnoser/pkg/detect"
	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/orchestrate"
	"github.com/Sriram-PR/aio-diagnoser/pkg/storage"
)

const (
	serverName    = "aio-diagnoser"
	serverVersion = "1.0.0"
)

// Diagnoser runs one full site diagnosis
type Diagnoser interface {
	Diagnose(ctx context.Context, req models.DiagnosisRequest) (*models.DiagnosisResult, error)
}

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig  *config.AppConfig
	ConfigPath string
	Transport  string // "stdio" or "sse"
	Port       int
	Logger     *logrus.Logger

	Diagnoser Diagnoser
	Fetcher   orchestrate.PageFetcher
	Store     storage.DiagnosisReader // nil when persistence is disabled
}

// Server exposes the diagnosis pipeline as MCP tools
type Server struct {
	mcpServer  *server.MCPServer
	cfg        *ServerConfig
	log        *logrus.Entry
	jobManager *JobManager
	detector   *detect.ContentDetector
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Diagnoser == nil {
		return nil, fmt.Errorf("Diagnoser is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("Fetcher is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Transport == "" {
		cfg.Transport = "stdio"
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		cfg:        cfg,
		log:        cfg.Logger.WithField("component", "mcp"),
		jobManager: NewJobManager(cfg.AppConfig.MaxConcurrentDiagnoses),
		detector:   detect.NewContentDetector(logrus.NewEntry(cfg.Logger)),
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	diagnoseSiteTool := mcp.NewTool("diagnose_site",
		mcp.WithDescription("Start a background AIO diagnosis of a website. Returns immediately with a job ID."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Site URL to diagnose (scheme optional, https is assumed)"),
		),
		mcp.WithString("industry",
			mcp.Required(),
			mcp.Description("Business category used in citation queries (e.g. '歯科医院')"),
		),
		mcp.WithString("region",
			mcp.Required(),
			mcp.Description("Region used in citation queries (e.g. '渋谷区')"),
		),
	)
	s.mcpServer.AddTool(diagnoseSiteTool, s.handleDiagnoseSite)

	getJobStatusTool := mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status of a diagnosis job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by diagnose_site"),
		),
	)
	s.mcpServer.AddTool(getJobStatusTool, s.handleGetJobStatus)

	getDiagnosisTool := mcp.NewTool("get_diagnosis",
		mcp.WithDescription("Fetch a finished diagnosis by ID"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Diagnosis ID"),
		),
	)
	s.mcpServer.AddTool(getDiagnosisTool, s.handleGetDiagnosis)

	listDiagnosesTool := mcp.NewTool("list_diagnoses",
		mcp.WithDescription("List stored diagnoses, newest first"),
		mcp.WithNumber("page",
			mcp.Description("Page number starting at 1 (default: 1)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Rows per page (default: 20, max: 100)"),
		),
		mcp.WithString("search",
			mcp.Description("Case-insensitive filter over URL, industry and region"),
		),
	)
	s.mcpServer.AddTool(listDiagnosesTool, s.handleListDiagnoses)

	statsTool := mcp.NewTool("diagnosis_stats",
		mcp.WithDescription("Aggregate figures over all stored diagnoses"),
	)
	s.mcpServer.AddTool(statsTool, s.handleDiagnosisStats)

	inspectPageTool := mcp.NewTool("inspect_page",
		mcp.WithDescription("Fetch one URL and return its parsed signals, page score and passage preview"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to inspect"),
		),
	)
	s.mcpServer.AddTool(inspectPageTool, s.handleInspectPage)

	s.log.Infof("Registered %d MCP tools", 6)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		sseServer := server.NewSSEServer(s.mcpServer)
		return sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown cancels running diagnoses
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.jobManager.CancelAll()
	return nil
}
