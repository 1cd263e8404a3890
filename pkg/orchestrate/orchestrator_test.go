package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/aio-diagnoser/pkg/llm"
	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/probe"
	"github.com/Sriram-PR/aio-diagnoser/pkg/score"
	"github.com/Sriram-PR/aio-diagnoser/pkg/storage"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

type fakeCrawler struct {
	pages []*models.PageRecord
	urls  []string
	ctxOK bool
}

func (f *fakeCrawler) Crawl(ctx context.Context, rawURL string) []*models.PageRecord {
	f.urls = append(f.urls, rawURL)
	_, f.ctxOK = ctx.Deadline()
	return f.pages
}

type fakeProber struct {
	result  *models.AICheckResult
	ran     bool
	targets []probe.Target
}

func (f *fakeProber) Check(_ context.Context, target probe.Target) (*models.AICheckResult, bool) {
	f.targets = append(f.targets, target)
	return f.result, f.ran
}

type fakeStore struct {
	mu    sync.Mutex
	saved []*models.DiagnosisResult
	err   error
}

func (f *fakeStore) Save(_ context.Context, r *models.DiagnosisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, r)
	return nil
}

var _ storage.DiagnosisWriter = (*fakeStore)(nil)

// sitePages builds n SSL pages with a schema block and enough text to score
// somewhere in the middle of the range
func sitePages(n int) []*models.PageRecord {
	pages := make([]*models.PageRecord, n)
	for i := range pages {
		pages[i] = &models.PageRecord{
			URL:             fmt.Sprintf("https://example.com/p%d", i),
			Title:           fmt.Sprintf("Page %d", i),
			MetaDescription: "説明文",
			HasSSL:          true,
			Viewport:        "width=device-width",
			Charset:         "utf-8",
			Lang:            "ja",
			TextContent:     "本文",
			WordCount:       1200,
			StructuredData:  []map[string]any{{"@type": "Organization"}},
			Headings:        models.Headings{H1: []string{fmt.Sprintf("Page %d", i)}},
		}
	}
	return pages
}

func checkResult(cited, total int) *models.AICheckResult {
	r := &models.AICheckResult{Queries: make([]models.CitationQueryResult, total)}
	for i := 0; i < cited; i++ {
		r.Queries[i].Cited = true
	}
	r.IsCited = cited > 0
	return r
}

var validRequest = models.DiagnosisRequest{URL: "https://example.com", Industry: "歯科", Region: "東京"}

func TestDiagnose_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  models.DiagnosisRequest
	}{
		{"MissingURL", models.DiagnosisRequest{Industry: "i", Region: "r"}},
		{"MissingIndustry", models.DiagnosisRequest{URL: "https://example.com", Region: "r"}},
		{"MissingRegion", models.DiagnosisRequest{URL: "https://example.com", Industry: "i"}},
		{"BlankFields", models.DiagnosisRequest{URL: "  ", Industry: "\t", Region: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crawler := &fakeCrawler{pages: sitePages(1)}
			o := NewOrchestrator(crawler, nil, nil, testLogger())

			result, err := o.Diagnose(context.Background(), tt.req)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, utils.ErrInvalidRequest)
			assert.Equal(t, MsgInvalidRequest, UserMessage(err))
			assert.Empty(t, crawler.urls, "crawler must not run")
		})
	}
}

func TestDiagnose_EmptyCrawl(t *testing.T) {
	store := &fakeStore{}
	prober := &fakeProber{result: checkResult(3, 3), ran: true}
	o := NewOrchestrator(&fakeCrawler{}, prober, store, testLogger())

	result, err := o.Diagnose(context.Background(), validRequest)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, utils.ErrCrawlFailed)
	assert.Equal(t, MsgCrawlFailed, UserMessage(err))
	assert.Empty(t, prober.targets)
	assert.Empty(t, store.saved)
}

func TestDiagnose_WithoutProber(t *testing.T) {
	pages := sitePages(3)
	o := NewOrchestrator(&fakeCrawler{pages: pages}, nil, nil, testLogger())

	result, err := o.Diagnose(context.Background(), validRequest)
	require.NoError(t, err)

	baseline := score.Analyze(pages)
	assert.Equal(t, baseline.TotalScore, result.TotalScore)
	assert.Equal(t, baseline.Rank, result.Rank)
	assert.Equal(t, baseline.Scores, result.Scores)
	assert.Nil(t, result.AICheck)
	assert.Equal(t, 3, result.PagesAnalyzed)
}

func TestDiagnose_FusesProbeResult(t *testing.T) {
	pages := sitePages(3)
	pages[0].Title = "Example Clinic"
	pages[0].MetaDescription = "Best clinic"
	store := &fakeStore{}
	prober := &fakeProber{result: checkResult(0, 3), ran: true}
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*3600))

	o := NewOrchestrator(&fakeCrawler{pages: pages}, prober, store, testLogger(),
		WithClock(func() time.Time { return created }))

	result, err := o.Diagnose(context.Background(), models.DiagnosisRequest{
		URL: "  https://example.com  ", Industry: " 歯科 ", Region: "東京 ",
	})
	require.NoError(t, err)

	baseline := score.Analyze(pages)
	assert.Less(t, result.TotalScore, baseline.TotalScore)
	assert.Equal(t, models.RankForScore(result.TotalScore), result.Rank)
	assert.Same(t, prober.result, result.AICheck)

	require.Len(t, prober.targets, 1)
	assert.Equal(t, probe.Target{
		URL:             "https://example.com",
		Industry:        "歯科",
		Region:          "東京",
		SiteTitle:       "Example Clinic",
		SiteDescription: "Best clinic",
	}, prober.targets[0])

	assert.Equal(t, "https://example.com", result.URL)
	assert.Equal(t, time.UTC, result.CreatedAt.Location())
	assert.True(t, created.Equal(result.CreatedAt))
	_, err = uuid.Parse(result.ID)
	assert.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.Same(t, result, store.saved[0])
}

func TestDiagnose_UnavailableProbeKeepsBaseline(t *testing.T) {
	pages := sitePages(3)
	unavailable := &models.AICheckResult{OverallAssessment: "could not verify"}
	o := NewOrchestrator(&fakeCrawler{pages: pages}, &fakeProber{result: unavailable, ran: false}, nil, testLogger())

	result, err := o.Diagnose(context.Background(), validRequest)
	require.NoError(t, err)

	baseline := score.Analyze(pages)
	assert.Equal(t, baseline.TotalScore, result.TotalScore)
	assert.Equal(t, baseline.PageScores, result.PageScores)
	assert.Same(t, unavailable, result.AICheck, "the explanation is still reported")
}

// refusingClient fails every call as if the LLM endpoint were down
type refusingClient struct{}

func (refusingClient) Generate(context.Context, string, ...llm.Option) (string, error) {
	return "", errors.New("dial tcp 142.250.196.106:443: connect: connection refused")
}

func TestDiagnose_LLMOutageKeepsBaseline(t *testing.T) {
	pages := sitePages(3)
	prober := probe.New(refusingClient{}, probe.NoDelay(), probe.Options{}, testLogger())
	o := NewOrchestrator(&fakeCrawler{pages: pages}, prober, nil, testLogger())

	result, err := o.Diagnose(context.Background(), validRequest)
	require.NoError(t, err)

	baseline := score.Analyze(pages)
	assert.Equal(t, baseline.TotalScore, result.TotalScore, "fusion must be skipped when the LLM is unreachable")
	assert.Equal(t, baseline.Rank, result.Rank)
	assert.Equal(t, baseline.PageScores, result.PageScores)
	require.NotNil(t, result.AICheck)
	assert.False(t, result.AICheck.IsCited)
	assert.Empty(t, result.AICheck.Queries)
}

func TestDiagnose_SaveErrorSwallowed(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("%w: disk full", utils.ErrDatabase)}
	o := NewOrchestrator(&fakeCrawler{pages: sitePages(1)}, nil, store, testLogger())

	result, err := o.Diagnose(context.Background(), validRequest)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestDiagnose_UniqueIDs(t *testing.T) {
	o := NewOrchestrator(&fakeCrawler{pages: sitePages(1)}, nil, nil, testLogger())

	a, err := o.Diagnose(context.Background(), validRequest)
	require.NoError(t, err)
	b, err := o.Diagnose(context.Background(), validRequest)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDiagnose_AnalysisTimeout(t *testing.T) {
	crawler := &fakeCrawler{pages: sitePages(1)}
	o := NewOrchestrator(crawler, nil, nil, testLogger(), WithAnalysisTimeout(time.Minute))

	_, err := o.Diagnose(context.Background(), validRequest)
	require.NoError(t, err)
	assert.True(t, crawler.ctxOK, "crawl context should carry the analysis deadline")

	crawler = &fakeCrawler{pages: sitePages(1)}
	o = NewOrchestrator(crawler, nil, nil, testLogger())
	_, err = o.Diagnose(context.Background(), validRequest)
	require.NoError(t, err)
	assert.False(t, crawler.ctxOK)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, MsgInvalidRequest, UserMessage(fmt.Errorf("wrap: %w", utils.ErrInvalidRequest)))
	assert.Equal(t, MsgCrawlFailed, UserMessage(utils.ErrCrawlFailed))
	assert.Equal(t, MsgInternal, UserMessage(errors.New("boom")))
}
