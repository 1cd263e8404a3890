// Package orchestrate runs one diagnosis end to end: crawl, score, probe,
// fuse and persist.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/aio-diagnoser/pkg/fusion"
	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/probe"
	"github.com/Sriram-PR/aio-diagnoser/pkg/score"
	"github.com/Sriram-PR/aio-diagnoser/pkg/storage"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

// User-facing messages for the two failures that abort a diagnosis
const (
	MsgInvalidRequest = "URL、業種、地域は必須です"
	MsgCrawlFailed    = "サイトのクロールに失敗しました。URLを確認してください。"
	MsgInternal       = "分析中にエラーが発生しました"
)

// Crawler collects the page set of a site
type Crawler interface {
	Crawl(ctx context.Context, rawURL string) []*models.PageRecord
}

// Prober checks AI citation of a site. ran reports whether the check was
// actually performed.
type Prober interface {
	Check(ctx context.Context, target probe.Target) (result *models.AICheckResult, ran bool)
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithAnalysisTimeout bounds the wall-clock time of one Diagnose call.
// Zero means no bound beyond the caller's context.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithClock overrides the source of creation timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator wires the pipeline stages together. It holds no per-run
// state, so one instance can serve concurrent diagnoses.
type Orchestrator struct {
	crawler Crawler
	prober  Prober
	store   storage.DiagnosisWriter
	timeout time.Duration
	now     func() time.Time
	log     *logrus.Entry
}

// NewOrchestrator creates an orchestrator. prober and store may be nil:
// without a prober the AI check is skipped, without a store nothing is persisted.
func NewOrchestrator(crawler Crawler, prober Prober, store storage.DiagnosisWriter, log *logrus.Entry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		crawler: crawler,
		prober:  prober,
		store:   store,
		now:     time.Now,
		log:     log.WithField("component", "orchestrate"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Diagnose analyzes the site named by req.
// Only an incomplete request (utils.ErrInvalidRequest) and an empty crawl
// (utils.ErrCrawlFailed) are returned as errors; every other failure
// degrades into a still-valid result.
func (o *Orchestrator) Diagnose(ctx context.Context, req models.DiagnosisRequest) (*models.DiagnosisResult, error) {
	req = models.DiagnosisRequest{
		URL:      strings.TrimSpace(req.URL),
		Industry: strings.TrimSpace(req.Industry),
		Region:   strings.TrimSpace(req.Region),
	}
	if req.URL == "" || req.Industry == "" || req.Region == "" {
		return nil, fmt.Errorf("%w: %s", utils.ErrInvalidRequest, MsgInvalidRequest)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	runLog := o.log.WithFields(logrus.Fields{
		"url":      req.URL,
		"industry": req.Industry,
		"region":   req.Region,
	})
	startTime := time.Now()
	runLog.Info("Starting diagnosis")

	pages := o.crawler.Crawl(ctx, req.URL)
	if len(pages) == 0 {
		runLog.WithField("error_type", utils.CategorizeError(utils.ErrCrawlFailed)).Warn("Crawl returned no pages")
		return nil, fmt.Errorf("%w: %s", utils.ErrCrawlFailed, MsgCrawlFailed)
	}
	runLog.Infof("Crawled %d pages", len(pages))

	final := score.Analyze(pages)
	runLog.WithFields(logrus.Fields{"score": final.TotalScore, "rank": final.Rank}).Info("Baseline scored")

	var aiCheck *models.AICheckResult
	if o.prober != nil {
		target := probe.Target{
			URL:             req.URL,
			Industry:        req.Industry,
			Region:          req.Region,
			SiteTitle:       pages[0].Title,
			SiteDescription: pages[0].MetaDescription,
		}
		var ran bool
		aiCheck, ran = o.prober.Check(ctx, target)
		if ran {
			final = fusion.Fuse(final, aiCheck)
			runLog.WithFields(logrus.Fields{
				"score":         final.TotalScore,
				"rank":          final.Rank,
				"citation_rate": fusion.CitationRate(aiCheck),
			}).Info("Citation fused")
		} else {
			runLog.Warn("AI citation could not be verified; baseline score stands")
		}
	}

	result := &models.DiagnosisResult{
		ID:            uuid.NewString(),
		URL:           req.URL,
		Industry:      req.Industry,
		Region:        req.Region,
		TotalScore:    final.TotalScore,
		Rank:          final.Rank,
		Scores:        final.Scores,
		ScoreDetails:  final.Details,
		AICheck:       aiCheck,
		PageScores:    final.PageScores,
		PagesAnalyzed: len(pages),
		CreatedAt:     o.now().UTC(),
	}

	o.save(runLog, result)

	runLog.WithFields(logrus.Fields{
		"id":       result.ID,
		"score":    result.TotalScore,
		"rank":     result.Rank,
		"duration": time.Since(startTime).Round(time.Millisecond),
	}).Info("Diagnosis completed")
	return result, nil
}

// save persists result; failures are logged and never reach the caller.
// A cancelled request context must not prevent storing a finished result.
func (o *Orchestrator) save(runLog *logrus.Entry, result *models.DiagnosisResult) {
	if o.store == nil {
		return
	}
	if err := o.store.Save(context.Background(), result); err != nil {
		runLog.WithField("error_type", utils.CategorizeError(err)).Errorf("Failed to save diagnosis %s: %v", result.ID, err)
	}
}

// UserMessage returns the message to show an end user for a Diagnose error
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, utils.ErrInvalidRequest):
		return MsgInvalidRequest
	case errors.Is(err, utils.ErrCrawlFailed):
		return MsgCrawlFailed
	default:
		return MsgInternal
	}
}
