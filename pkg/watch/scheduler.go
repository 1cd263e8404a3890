// Package watch re-diagnoses a fixed set of sites on an interval and tracks
// how their scores move between runs.
package watch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/orchestrate"
)

// Diagnoser runs one diagnosis
type Diagnoser interface {
	Diagnose(ctx context.Context, req models.DiagnosisRequest) (*models.DiagnosisResult, error)
}

// Scheduler manages periodic re-diagnosis of watched sites
type Scheduler struct {
	diagnoser    Diagnoser
	targets      []models.DiagnosisRequest
	interval     time.Duration
	log          *logrus.Entry
	stateManager *StateManager
	running      atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new watch scheduler persisting its state in stateDir
func NewScheduler(diagnoser Diagnoser, targets []models.DiagnosisRequest, interval time.Duration, stateDir string, log *logrus.Entry) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		diagnoser:    diagnoser,
		targets:      targets,
		interval:     interval,
		log:          log,
		stateManager: NewStateManager(stateDir),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Run starts the watch scheduler and blocks until stopped
func (s *Scheduler) Run() error {
	if err := s.stateManager.Load(); err != nil {
		s.log.Warnf("Failed to load watch state: %v (starting fresh)", err)
	}

	s.log.Infof("Starting watch mode for %d sites with interval %s", len(s.targets), FormatInterval(s.interval))
	s.logSchedule()

	s.startDueTargets()

	ticker := time.NewTicker(s.calculateTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info("Watch scheduler shutting down...")
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.startDueTargets()
		}
	}
}

// RunOnce loads state, diagnoses every due target and saves state.
// It returns the number of targets that failed.
func (s *Scheduler) RunOnce() (int, error) {
	if err := s.stateManager.Load(); err != nil {
		return 0, err
	}
	failed := s.runDueTargets()
	if err := s.stateManager.Save(); err != nil {
		return failed, err
	}
	return failed, nil
}

// Stop stops the watch scheduler and cancels any diagnosis in flight
func (s *Scheduler) Stop() {
	s.log.Info("Stopping watch scheduler...")
	s.cancel()
}

// startDueTargets runs due targets in the background unless a batch is
// still in progress.
func (s *Scheduler) startDueTargets() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("Previous watch batch still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		s.runDueTargets()
		if err := s.stateManager.Save(); err != nil {
			s.log.Errorf("Failed to save watch state: %v", err)
		}
		s.logNextRun()
	}()
}

// runDueTargets diagnoses due targets one after another
func (s *Scheduler) runDueTargets() int {
	due := s.getDueTargets()
	if len(due) == 0 {
		return 0
	}
	s.log.Infof("Running diagnosis for %d due sites", len(due))

	failed := 0
	for _, req := range due {
		if s.ctx.Err() != nil {
			break
		}
		if !s.runTarget(req) {
			failed++
		}
	}
	return failed
}

// runTarget diagnoses one target and records the outcome
func (s *Scheduler) runTarget(req models.DiagnosisRequest) bool {
	key := TargetKey(req)
	log := s.log.WithFields(logrus.Fields{"url": req.URL, "industry": req.Industry, "region": req.Region})

	result, err := s.diagnoser.Diagnose(s.ctx, req)
	if err != nil {
		if s.ctx.Err() != nil {
			log.Info("Diagnosis interrupted by shutdown")
			return false
		}
		log.Errorf("Watch diagnosis failed: %v", err)
		s.stateManager.RecordFailure(key, req, orchestrate.UserMessage(err))
		return false
	}

	prev, had := s.stateManager.RecordSuccess(key, req, result)
	if had && prev.LastDiagnosisID != "" {
		log.Infof("Score %d → %d (%+d), rank %s → %s",
			prev.LastScore, result.TotalScore, result.TotalScore-prev.LastScore, prev.LastRank, result.Rank)
	} else {
		log.Infof("First score %d (rank %s)", result.TotalScore, result.Rank)
	}
	return true
}

// getDueTargets returns targets that are due for a diagnosis
func (s *Scheduler) getDueTargets() []models.DiagnosisRequest {
	var due []models.DiagnosisRequest
	for _, req := range s.targets {
		if s.stateManager.ShouldRun(TargetKey(req), s.interval) {
			due = append(due, req)
		}
	}
	return due
}

// calculateTickInterval returns how often to check for due targets
func (s *Scheduler) calculateTickInterval() time.Duration {
	// Check at least every minute, or every 1/10th of the interval
	checkInterval := s.interval / 10
	if checkInterval < time.Minute {
		checkInterval = time.Minute
	}
	if checkInterval > 10*time.Minute {
		checkInterval = 10 * time.Minute
	}
	return checkInterval
}

func (s *Scheduler) logSchedule() {
	s.log.Info("Watch schedule:")
	for _, req := range s.targets {
		key := TargetKey(req)
		state, exists := s.stateManager.GetTargetState(key)
		if !exists {
			s.log.Infof("  %s (%s/%s): never run, will run immediately", req.URL, req.Industry, req.Region)
			continue
		}
		status := "success"
		if !state.LastRunSuccess {
			status = "failed"
		}
		s.log.Infof("  %s (%s/%s): last run %s (%s, score %d), next run %s",
			req.URL, req.Industry, req.Region,
			state.LastRunTime.Format(time.RFC3339),
			status,
			state.LastScore,
			s.stateManager.GetNextRunTime(key, s.interval).Format(time.RFC3339))
	}
}

// logNextRun logs when the next diagnosis will occur
func (s *Scheduler) logNextRun() {
	statuses := s.GetStatus()
	if len(statuses) == 0 {
		return
	}
	next := statuses[0]
	until := time.Until(next.NextRunTime)
	if until < 0 {
		until = 0
	}
	s.log.Infof("Next diagnosis: %s in %v (at %s)", next.URL, until.Round(time.Second), next.NextRunTime.Format("15:04:05"))
}

// TargetStatus contains the status of a watched site
type TargetStatus struct {
	Key string
	TargetState
	NextRunTime time.Time
	NeverRun    bool
}

// GetStatus returns the status of all watched targets, soonest first
func (s *Scheduler) GetStatus() []TargetStatus {
	statuses := make([]TargetStatus, 0, len(s.targets))
	for _, req := range s.targets {
		key := TargetKey(req)
		state, exists := s.stateManager.GetTargetState(key)
		if !exists {
			state = TargetState{URL: req.URL, Industry: req.Industry, Region: req.Region}
		}
		statuses = append(statuses, TargetStatus{
			Key:         key,
			TargetState: state,
			NextRunTime: s.stateManager.GetNextRunTime(key, s.interval),
			NeverRun:    !exists,
		})
	}
	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].NextRunTime.Before(statuses[j].NextRunTime)
	})
	return statuses
}

// FormatInterval formats a duration for display
func FormatInterval(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}

// ParseInterval parses a duration string with support for days
func ParseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("interval must be positive: %s", s)
		}
		return d, nil
	}

	var days int
	var remaining string
	n, _ := fmt.Sscanf(s, "%dd%s", &days, &remaining)
	if n >= 1 && days >= 0 {
		d = time.Duration(days) * 24 * time.Hour
		if remaining != "" {
			extra, err := time.ParseDuration(remaining)
			if err != nil {
				return 0, fmt.Errorf("invalid interval format: %s", s)
			}
			d += extra
		}
		if d <= 0 {
			return 0, fmt.Errorf("interval must be positive: %s", s)
		}
		return d, nil
	}

	return 0, fmt.Errorf("invalid interval format: %s (examples: 30m, 1h, 24h, 7d)", s)
}
