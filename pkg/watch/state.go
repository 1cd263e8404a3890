package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

const stateFileName = "watch_state.json"

// TargetState contains the outcome of the last diagnosis of a watched site
type TargetState struct {
	URL             string      `json:"url"`
	Industry        string      `json:"industry"`
	Region          string      `json:"region"`
	LastRunTime     time.Time   `json:"last_run_time"`
	LastRunSuccess  bool        `json:"last_run_success"`
	LastScore       int         `json:"last_score,omitempty"`
	LastRank        models.Rank `json:"last_rank,omitempty"`
	LastDiagnosisID string      `json:"last_diagnosis_id,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
}

// WatchState contains the persistent state for the watch scheduler
type WatchState struct {
	Targets   map[string]TargetState `json:"targets"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// TargetKey identifies a watched request independent of case and
// surrounding whitespace.
func TargetKey(req models.DiagnosisRequest) string {
	norm := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(req.URL)),
		strings.ToLower(strings.TrimSpace(req.Industry)),
		strings.ToLower(strings.TrimSpace(req.Region)),
	}, "\x00")
	return utils.ShortHash(norm, 12)
}

// StateManager handles persisting and loading watch state
type StateManager struct {
	stateDir  string
	statePath string
	state     WatchState
	mu        sync.RWMutex
}

// NewStateManager creates a new state manager
func NewStateManager(stateDir string) *StateManager {
	return &StateManager{
		stateDir:  stateDir,
		statePath: filepath.Join(stateDir, stateFileName),
		state: WatchState{
			Targets: make(map[string]TargetState),
		},
	}
}

// Load loads the state from disk; a missing file starts fresh
func (m *StateManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = WatchState{
				Targets: make(map[string]TargetState),
			}
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, &m.state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	if m.state.Targets == nil {
		m.state.Targets = make(map[string]TargetState)
	}

	return nil
}

// Save saves the state to disk
func (m *StateManager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.UpdatedAt = time.Now()

	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(m.statePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// GetTargetState returns the state for a specific target
func (m *StateManager) GetTargetState(key string) (TargetState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.state.Targets[key]
	return state, ok
}

// RecordSuccess stores a finished diagnosis and returns the previous state
func (m *StateManager) RecordSuccess(key string, req models.DiagnosisRequest, result *models.DiagnosisResult) (TargetState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, had := m.state.Targets[key]
	m.state.Targets[key] = TargetState{
		URL:             req.URL,
		Industry:        req.Industry,
		Region:          req.Region,
		LastRunTime:     time.Now(),
		LastRunSuccess:  true,
		LastScore:       result.TotalScore,
		LastRank:        result.Rank,
		LastDiagnosisID: result.ID,
	}
	return prev, had
}

// RecordFailure stores a failed run. The last good score is kept so the next
// success can still report a delta.
func (m *StateManager) RecordFailure(key string, req models.DiagnosisRequest, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state.Targets[key]
	m.state.Targets[key] = TargetState{
		URL:             req.URL,
		Industry:        req.Industry,
		Region:          req.Region,
		LastRunTime:     time.Now(),
		LastRunSuccess:  false,
		LastScore:       prev.LastScore,
		LastRank:        prev.LastRank,
		LastDiagnosisID: prev.LastDiagnosisID,
		ErrorMessage:    errorMsg,
	}
}

// ShouldRun checks if a target is due based on the interval
func (m *StateManager) ShouldRun(key string, interval time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Targets[key]
	if !ok {
		return true
	}
	return time.Since(state.LastRunTime) >= interval
}

// GetNextRunTime returns when the target should next run
func (m *StateManager) GetNextRunTime(key string, interval time.Duration) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Targets[key]
	if !ok {
		return time.Now()
	}
	return state.LastRunTime.Add(interval)
}

// GetAllTargetStates returns a copy of all target states
func (m *StateManager) GetAllTargetStates() map[string]TargetState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]TargetState, len(m.state.Targets))
	for k, v := range m.state.Targets {
		result[k] = v
	}
	return result
}
