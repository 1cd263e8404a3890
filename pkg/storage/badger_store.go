package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/aio-diagnoser/pkg/log"
	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

const (
	diagnosisKeyPrefix = "diag:"        // Prefix for diagnosis id keys in DB
	diagnosesDBDir     = "diagnoses_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements the DiagnosisStore interface using BadgerDB
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerStore opens (or creates) the diagnosis database under stateDir
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	logger = logger.WithField("component", "storage")
	dbPath := filepath.Join(stateDir, diagnosesDBDir)

	logger.Infof("Initializing diagnosis database at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(log.NewBadgerLogger(logger)).
		WithNumVersionsToKeep(1) // A diagnosis is written once; older versions are never read

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	logger.Info("Diagnosis database initialized successfully.")
	return &BadgerStore{db: db, log: logger}, nil
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// Save implements the DiagnosisStore interface
func (s *BadgerStore) Save(ctx context.Context, result *models.DiagnosisResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("%w: diagnosis without id", utils.ErrInvalidRequest)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := []byte(diagnosisKeyPrefix + result.ID)

	entryBytes, errJson := json.Marshal(result)
	if errJson != nil {
		wrappedErr := fmt.Errorf("%w: failed to marshal diagnosis JSON for key '%s': %w", utils.ErrParsing, string(key), errJson)
		s.log.Error(wrappedErr)
		return wrappedErr
	}

	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, entryBytes))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in Save: %v", err)
		return fmt.Errorf("%w: failed saving key '%s': %w", utils.ErrDatabase, string(key), err)
	}

	s.log.WithFields(logrus.Fields{"id": result.ID, "url": result.URL}).Debug("Diagnosis saved")
	return nil
}

// Get implements the DiagnosisStore interface
func (s *BadgerStore) Get(ctx context.Context, id string) (*models.DiagnosisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := []byte(diagnosisKeyPrefix + id)
	var result *models.DiagnosisResult

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: diagnosis '%s'", utils.ErrNotFound, id)
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}
		return item.Value(func(val []byte) error {
			var decoded models.DiagnosisResult
			if errJson := json.Unmarshal(val, &decoded); errJson != nil {
				return fmt.Errorf("%w: bad JSON for key '%s': %w", utils.ErrParsing, string(key), errJson)
			}
			result = &decoded
			return nil
		})
	})
	if errView != nil {
		if !errors.Is(errView, utils.ErrNotFound) {
			s.log.Errorf("DB View error in Get for key '%s': %v", string(key), errView)
		}
		return nil, errView
	}
	return result, nil
}

// scan decodes every stored diagnosis and passes it to fn.
// Undecodable values are logged and skipped.
func (s *BadgerStore) scan(ctx context.Context, fn func(*models.DiagnosisResult)) error {
	scanErrors := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(diagnosisKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			errValue := item.Value(func(val []byte) error {
				var decoded models.DiagnosisResult
				if errJson := json.Unmarshal(val, &decoded); errJson != nil {
					s.log.Warnf("Failed to unmarshal diagnosis for key '%s': %v. Skipping.", string(item.Key()), errJson)
					scanErrors++
					return nil
				}
				fn(&decoded)
				return nil
			})
			if errValue != nil {
				return errValue
			}
		}
		return nil
	})

	if scanErrors > 0 {
		s.log.Warnf("Diagnosis scan skipped %d undecodable entries", scanErrors)
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: scan failed: %w", utils.ErrDatabase, err)
	}
	return err
}

// List implements the DiagnosisStore interface
func (s *BadgerStore) List(ctx context.Context, q ListQuery) (ListPage, error) {
	q = q.normalized()
	search := strings.ToLower(strings.TrimSpace(q.Search))

	var matches []models.DiagnosisSummary
	err := s.scan(ctx, func(r *models.DiagnosisResult) {
		if search != "" && !matchesSearch(r, search) {
			return
		}
		matches = append(matches, r.Summary())
	})
	if err != nil {
		return ListPage{}, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	page := ListPage{Data: []models.DiagnosisSummary{}, Total: len(matches)}
	start := (q.Page - 1) * q.Limit
	if start >= len(matches) {
		return page, nil
	}
	end := min(start+q.Limit, len(matches))
	page.Data = append(page.Data, matches[start:end]...)
	return page, nil
}

func matchesSearch(r *models.DiagnosisResult, lowered string) bool {
	for _, field := range []string{r.URL, r.Industry, r.Region} {
		if strings.Contains(strings.ToLower(field), lowered) {
			return true
		}
	}
	return false
}

// Stats implements the DiagnosisStore interface
func (s *BadgerStore) Stats(ctx context.Context, now time.Time) (models.DiagnosisStats, error) {
	stats := models.DiagnosisStats{RankDistribution: make(map[models.Rank]int)}
	cutoff := now.Add(-recentWindow)
	scoreSum := 0

	err := s.scan(ctx, func(r *models.DiagnosisResult) {
		stats.TotalDiagnoses++
		scoreSum += r.TotalScore
		if r.Rank.IsValid() {
			stats.RankDistribution[r.Rank]++
		}
		if !r.CreatedAt.Before(cutoff) {
			stats.RecentCount++
		}
	})
	if err != nil {
		return models.DiagnosisStats{}, err
	}

	if stats.TotalDiagnoses > 0 {
		stats.AverageScore = int(math.Round(float64(scoreSum) / float64(stats.TotalDiagnoses)))
	}
	return stats, nil
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute // Default interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Info("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			s.log.Debug("Running BadgerDB value log garbage collection...")
			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for {
				// Run GC if log is at least 50% reclaimable space
				if err = s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}

			if errors.Is(err, badger.ErrNoRewrite) {
				s.log.Debug("BadgerDB GC finished (no rewrite needed).")
			} else {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Infof("Stopping BadgerDB garbage collection goroutine due to context cancellation: %v", ctx.Err())
			return
		}
	}
}

// Close implements the DiagnosisStore interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Info("Closing diagnosis DB...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing diagnosis DB: %v", err)
			return err
		}
		s.log.Info("Diagnosis DB closed.")
		return nil
	}
	s.log.Info("Diagnosis DB already closed or was not initialized.")
	return nil
}
