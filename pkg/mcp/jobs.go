package mcp

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

// JobStatus represents the current state of a diagnosis job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) active() bool {
	return s == JobStatusPending || s == JobStatusRunning
}

// Job represents a background diagnosis
type Job struct {
	ID           string                  `json:"id"`
	Request      models.DiagnosisRequest `json:"request"`
	Status       JobStatus               `json:"status"`
	StartedAt    time.Time               `json:"started_at"`
	CompletedAt  time.Time               `json:"completed_at,omitempty"`
	DiagnosisID  string                  `json:"diagnosis_id,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`

	result *models.DiagnosisResult
	ctx    context.Context
	cancel context.CancelFunc
}

// JobManager tracks background diagnoses and bounds how many run at once
type JobManager struct {
	jobs      map[string]*Job
	mu        sync.RWMutex
	byRequest map[string]string // requestKey -> jobID for active jobs
	sem       *semaphore.Weighted
}

// NewJobManager creates a job manager running at most maxConcurrent jobs
func NewJobManager(maxConcurrent int) *JobManager {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &JobManager{
		jobs:      make(map[string]*Job),
		byRequest: make(map[string]string),
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// requestKey identifies equivalent requests so a repeated call joins the active job
func requestKey(req models.DiagnosisRequest) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(req.URL) + "\x00" + norm(req.Industry) + "\x00" + norm(req.Region)
}

// CreateJob registers a pending job for req. If an equivalent job is still
// active it is returned instead and created is false.
func (m *JobManager) CreateJob(req models.DiagnosisRequest) (job Job, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := requestKey(req)
	if existingID, exists := m.byRequest[key]; exists {
		if existing := m.jobs[existingID]; existing != nil && existing.Status.active() {
			return *existing, false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:        uuid.New().String(),
		Request:   req,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	m.jobs[j.ID] = j
	m.byRequest[key] = j.ID
	return *j, true
}

// Start runs fn for the job in a new goroutine once a concurrency slot is free.
// The job's status follows fn's outcome.
func (m *JobManager) Start(jobID string, fn func(ctx context.Context) (*models.DiagnosisResult, error)) {
	ctx := m.GetContext(jobID)
	go func() {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			m.finish(jobID, nil, err)
			return
		}
		defer m.sem.Release(1)

		if !m.UpdateStatus(jobID, JobStatusRunning, "") {
			return
		}
		result, err := fn(ctx)
		m.finish(jobID, result, err)
	}()
}

func (m *JobManager) finish(jobID string, result *models.DiagnosisResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || !job.Status.active() {
		return
	}
	switch {
	case err == nil:
		job.Status = JobStatusCompleted
		job.result = result
		if result != nil {
			job.DiagnosisID = result.ID
		}
	case job.ctx.Err() != nil:
		job.Status = JobStatusCancelled
	default:
		job.Status = JobStatusFailed
		job.ErrorMessage = err.Error()
	}
	job.CompletedAt = time.Now()
	job.cancel()
	delete(m.byRequest, requestKey(job.Request))
}

// GetJob returns a snapshot of the job, or false when the id is unknown
func (m *JobManager) GetJob(jobID string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, exists := m.jobs[jobID]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// Result returns the diagnosis produced by a completed job
func (m *JobManager) Result(diagnosisID string) *models.DiagnosisResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, job := range m.jobs {
		if job.result != nil && job.result.ID == diagnosisID {
			return job.result
		}
	}
	return nil
}

// IsRunning checks if an equivalent request is pending or running
func (m *JobManager) IsRunning(req models.DiagnosisRequest) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if jobID, exists := m.byRequest[requestKey(req)]; exists {
		job := m.jobs[jobID]
		return job != nil && job.Status.active()
	}
	return false
}

// UpdateStatus moves an active job to status. It reports false when the job
// is unknown or already finished.
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || !job.Status.active() {
		return false
	}
	job.Status = status
	if !status.active() {
		job.CompletedAt = time.Now()
		delete(m.byRequest, requestKey(job.Request))
	}
	if errorMsg != "" {
		job.ErrorMessage = errorMsg
	}
	return true
}

// CancelJob cancels a pending or running job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists && job.Status.active() {
		job.cancel()
		job.Status = JobStatusCancelled
		job.CompletedAt = time.Now()
		delete(m.byRequest, requestKey(job.Request))
		return true
	}
	return false
}

// CancelAll cancels all active jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.Status.active() {
			job.cancel()
			job.Status = JobStatusCancelled
			job.CompletedAt = time.Now()
		}
	}
	m.byRequest = make(map[string]string)
}

// ListJobs returns snapshots of all jobs
func (m *JobManager) ListJobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// GetContext returns the context a job's work runs under
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, exists := m.jobs[jobID]; exists {
		return job.ctx
	}
	return context.Background()
}
