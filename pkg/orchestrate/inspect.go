package orchestrate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
	"github.com/Sriram-PR/aio-diagnoser/pkg/detect"
	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/parse"
	"github.com/Sriram-PR/aio-diagnoser/pkg/process"
	"github.com/Sriram-PR/aio-diagnoser/pkg/score"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

// PageFetcher retrieves the markup of one page; false means no content
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, bool)
}

// Inspection is the single-page view served by inspect: parsed signals,
// the page's own score and its passage preview.
type Inspection struct {
	URL         string            `json:"url"`
	Page        models.PageRecord `json:"page"` // TextContent is cleared; the preview carries the text
	SchemaTypes []string          `json:"schema_types"`
	PageScore   models.PageScore  `json:"page_score"`
	Preview     *process.Preview  `json:"preview"`
}

// InspectURL normalizes user input for a single-page fetch.
// Unlike a crawl seed no trailing slash is added.
func InspectURL(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", fmt.Errorf("%w: url is required", utils.ErrInvalidRequest)
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}
	if u, err := url.Parse(target); err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid URL %q", utils.ErrInvalidRequest, raw)
	}
	return target, nil
}

// Inspect fetches and analyzes a single page. detector may be nil, in which
// case the preview skips builder selectors and the Readability fallback.
func Inspect(ctx context.Context, fetcher PageFetcher, detector *detect.ContentDetector, rawURL string, previewCfg config.PreviewConfig) (*Inspection, error) {
	target, err := InspectURL(rawURL)
	if err != nil {
		return nil, err
	}

	html, ok := fetcher.Fetch(ctx, target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", utils.ErrFetchFailed, target)
	}

	page, err := parse.ParsePage(target, html)
	if err != nil {
		return nil, err
	}
	opts := process.PreviewOptionsFrom(previewCfg, target)
	opts.Detector = detector
	preview, err := process.BuildPreview(html, opts)
	if err != nil {
		return nil, err
	}

	in := &Inspection{
		URL:         target,
		Page:        *page,
		SchemaTypes: page.SchemaTypes(),
		PageScore:   score.PageScores([]*models.PageRecord{page})[0],
		Preview:     preview,
	}
	in.Page.TextContent = ""
	return in, nil
}
