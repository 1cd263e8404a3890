package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/orchestrate"
	"github.com/Sriram-PR/aio-diagnoser/pkg/storage"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

const msgStoreDisabled = "diagnosis storage is disabled"

// handleDiagnoseSite handles the diagnose_site tool
func (s *Server) handleDiagnoseSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := models.DiagnosisRequest{
		URL:      strings.TrimSpace(request.GetString("url", "")),
		Industry: strings.TrimSpace(request.GetString("industry", "")),
		Region:   strings.TrimSpace(request.GetString("region", "")),
	}
	if req.URL == "" || req.Industry == "" || req.Region == "" {
		return mcp.NewToolResultError(orchestrate.MsgInvalidRequest), nil
	}

	job, created := s.jobManager.CreateJob(req)
	if !created {
		result := map[string]interface{}{
			"status":  "already_running",
			"message": "A diagnosis with the same URL, industry and region is already in progress",
			"job_id":  job.ID,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	s.jobManager.Start(job.ID, func(jobCtx context.Context) (*models.DiagnosisResult, error) {
		return s.runDiagnosis(jobCtx, job.ID, req)
	})

	result := map[string]interface{}{
		"status":  "started",
		"message": "Diagnosis started successfully",
		"job_id":  job.ID,
		"url":     req.URL,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runDiagnosis executes one job; failures are reduced to their user-facing message
func (s *Server) runDiagnosis(ctx context.Context, jobID string, req models.DiagnosisRequest) (*models.DiagnosisResult, error) {
	jobLog := s.log.WithField("job_id", jobID)
	jobLog.WithField("url", req.URL).Info("Starting diagnosis job")

	result, err := s.cfg.Diagnoser.Diagnose(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		jobLog.WithField("error_type", utils.CategorizeError(err)).Errorf("Diagnosis job failed: %v", err)
		return nil, errors.New(orchestrate.UserMessage(err))
	}

	jobLog.WithFields(logrus.Fields{
		"diagnosis_id": result.ID,
		"score":        result.TotalScore,
	}).Info("Diagnosis job completed")
	return result, nil
}

// handleGetJobStatus handles the get_job_status tool
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := map[string]interface{}{
		"job_id":     job.ID,
		"url":        job.Request.URL,
		"industry":   job.Request.Industry,
		"region":     job.Request.Region,
		"status":     job.Status,
		"started_at": job.StartedAt.Format(time.RFC3339),
	}

	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	if job.result != nil {
		result["diagnosis_id"] = job.result.ID
		result["total_score"] = job.result.TotalScore
		result["rank"] = job.result.Rank
	}
	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetDiagnosis handles the get_diagnosis tool.
// The store is consulted first; results of this session's jobs are the fallback.
func (s *Server) handleGetDiagnosis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(request.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	if s.cfg.Store != nil {
		result, err := s.cfg.Store.Get(ctx, id)
		if err == nil {
			return mcp.NewToolResultText(formatJSON(result)), nil
		}
		if !errors.Is(err, utils.ErrNotFound) {
			s.log.WithField("error_type", utils.CategorizeError(err)).Errorf("Failed to load diagnosis %s: %v", id, err)
			return mcp.NewToolResultError(fmt.Sprintf("failed to load diagnosis: %v", err)), nil
		}
	}

	if result := s.jobManager.Result(id); result != nil {
		return mcp.NewToolResultText(formatJSON(result)), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("diagnosis '%s' not found", id)), nil
}

// handleListDiagnoses handles the list_diagnoses tool
func (s *Server) handleListDiagnoses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cfg.Store == nil {
		return mcp.NewToolResultError(msgStoreDisabled), nil
	}

	q := storage.ListQuery{
		Page:   request.GetInt("page", 1),
		Limit:  request.GetInt("limit", storage.DefaultListLimit),
		Search: request.GetString("search", ""),
	}
	page, err := s.cfg.Store.List(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list diagnoses: %v", err)), nil
	}

	result := map[string]interface{}{
		"data":  page.Data,
		"total": page.Total,
		"page":  max(q.Page, 1),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleDiagnosisStats handles the diagnosis_stats tool
func (s *Server) handleDiagnosisStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cfg.Store == nil {
		return mcp.NewToolResultError(msgStoreDisabled), nil
	}

	stats, err := s.cfg.Store.Stats(ctx, time.Now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute stats: %v", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(stats)), nil
}

// handleInspectPage handles the inspect_page tool
func (s *Server) handleInspectPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	if strings.TrimSpace(urlStr) == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	startTime := time.Now()
	inspection, err := orchestrate.Inspect(ctx, s.cfg.Fetcher, s.detector, urlStr, s.cfg.AppConfig.Preview)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidRequest):
			return mcp.NewToolResultError(fmt.Sprintf("invalid URL: %s", urlStr)), nil
		case errors.Is(err, utils.ErrFetchFailed):
			return mcp.NewToolResultError(fmt.Sprintf("failed to fetch %s", urlStr)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("failed to inspect page: %v", err)), nil
		}
	}

	result := map[string]interface{}{
		"inspection":    inspection,
		"fetch_time_ms": time.Since(startTime).Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// formatJSON formats data as an indented JSON string
func formatJSON(data interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
