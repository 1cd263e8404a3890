package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

const (
	acceptHeader = "text/html,application/xhtml+xml"
	maxBodyBytes = 10 << 20 // 10 MiB
)

// Options configures a PageFetcher
type Options struct {
	UserAgent   string
	PageTimeout time.Duration
	CrawlDelay  time.Duration // Minimum spacing between requests to one host, 0 disables
}

// PageFetcher retrieves the raw markup of a single page.
// Every failure collapses into "no content"; callers skip the page.
type PageFetcher struct {
	client      *http.Client
	opts        Options
	rateLimiter *RateLimiter
	log         *logrus.Entry
}

// NewPageFetcher creates a PageFetcher using the shared HTTP client
func NewPageFetcher(client *http.Client, opts Options, log *logrus.Entry) *PageFetcher {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 10 * time.Second
	}
	return &PageFetcher{
		client:      client,
		opts:        opts,
		rateLimiter: NewRateLimiter(opts.CrawlDelay, log),
		log:         log.WithField("component", "fetch"),
	}
}

// Fetch performs one GET for rawURL and returns its HTML, or false when the
// page is unreachable, times out, answers non-2xx, or is not HTML.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, bool) {
	pageLog := f.log.WithField("url", rawURL)

	body, err := f.fetch(ctx, rawURL)
	if err != nil {
		category := utils.CategorizeError(err)
		entry := pageLog.WithField("error_type", category)
		if errors.Is(err, utils.ErrNotHTML) || errors.Is(err, utils.ErrClientHTTPError) {
			entry.Debugf("Skipping page: %v", err)
		} else {
			entry.Warnf("Fetch failed: %v", err)
		}
		return "", false
	}
	pageLog.WithField("bytes", len(body)).Debug("Fetched page")
	return body, true
}

func (f *PageFetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid URL %q: %w", utils.ErrParsing, rawURL, err)
	}
	host := parsed.Hostname()

	if err := f.rateLimiter.ApplyDelay(ctx, host, f.opts.CrawlDelay); err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.opts.PageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	f.rateLimiter.UpdateLastRequestTime(host)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return "", fmt.Errorf("%w: content-type %q", utils.ErrNotHTML, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
	}
	return string(data), nil
}

// checkStatus wraps a non-2xx status in the matching sentinel
func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500:
		return fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, code, resp.Status)
	case code >= 400:
		return fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, code, resp.Status)
	default:
		return fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, code, resp.Status)
	}
}
