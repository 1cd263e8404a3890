package probe

import (
	"context"
	"math"
	"time"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
)

// Policy schedules the pauses between LLM calls.
// Production code sleeps; tests inject NoDelay.
type Policy interface {
	// Wait blocks for d or until ctx is done
	Wait(ctx context.Context, d time.Duration) error
	// Backoff returns the pause before retry number attempt+1 (attempt is zero-based)
	Backoff(attempt int) time.Duration
}

// BackoffPolicy waits on the wall clock and backs off exponentially
type BackoffPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

// NewPolicy builds the wall-clock policy from the Gemini settings
func NewPolicy(cfg config.GeminiConfig) *BackoffPolicy {
	return &BackoffPolicy{Initial: cfg.InitialBackoff, Max: cfg.MaxBackoff}
}

// Wait sleeps for d, returning early with the context error on cancellation
func (p *BackoffPolicy) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff returns min(Initial * 2^attempt, Max)
func (p *BackoffPolicy) Backoff(attempt int) time.Duration {
	backoff := float64(p.Initial) * math.Pow(2, float64(attempt))
	if backoff <= 0 || backoff > float64(p.Max) {
		return p.Max
	}
	return time.Duration(backoff)
}

type noDelay struct{}

// NoDelay returns a policy that never sleeps
func NoDelay() Policy { return noDelay{} }

func (noDelay) Wait(ctx context.Context, _ time.Duration) error { return ctx.Err() }
func (noDelay) Backoff(int) time.Duration                       { return 0 }
