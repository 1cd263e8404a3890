package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	recentWindow     = 30 * 24 * time.Hour
)

// ListQuery selects one page of the diagnosis listing
type ListQuery struct {
	Page   int    // 1-based; values below 1 mean the first page
	Limit  int    // Rows per page; 0 means DefaultListLimit, capped at MaxListLimit
	Search string // Case-insensitive substring over url, industry and region
}

// normalized returns q with page and limit defaults applied
func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	return q
}

// ListPage is one page of results plus the number of rows matching the query
type ListPage struct {
	Data  []models.DiagnosisSummary `json:"data"`
	Total int                       `json:"total"`
}

// DiagnosisReader serves stored diagnoses
type DiagnosisReader interface {
	// Get returns the diagnosis with the given id, or an error wrapping utils.ErrNotFound
	Get(ctx context.Context, id string) (*models.DiagnosisResult, error)

	// List returns matching diagnoses ordered by creation time, newest first
	List(ctx context.Context, q ListQuery) (ListPage, error)

	// Stats aggregates over all stored diagnoses; now anchors the 30-day window
	Stats(ctx context.Context, now time.Time) (models.DiagnosisStats, error)
}

// DiagnosisWriter persists finished diagnoses
type DiagnosisWriter interface {
	// Save stores result keyed by its id, replacing any previous value
	Save(ctx context.Context, result *models.DiagnosisResult) error
}

// DiagnosisStore combines all store interfaces for components that need full access
type DiagnosisStore interface {
	DiagnosisReader
	DiagnosisWriter

	// Close cleanly closes the database connection
	Close() error
}
