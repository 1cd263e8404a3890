package crawler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/parse"
	"github.com/Sriram-PR/aio-diagnoser/pkg/queue"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

// PageFetcher retrieves raw page markup; false means the page is unreachable
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, bool)
}

// RobotsChecker decides whether a URL may be crawled
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Options configures a Crawler
type Options struct {
	MaxPages int
	Robots   RobotsChecker // nil disables robots.txt checks
}

// OptionsFromConfig builds crawler options from the application config
func OptionsFromConfig(cfg *config.AppConfig, robots RobotsChecker) Options {
	opts := Options{MaxPages: cfg.MaxPages}
	if cfg.RespectRobots {
		opts.Robots = robots
	}
	return opts
}

// Crawler performs a bounded breadth-first crawl of one domain.
// Fetches run one at a time so crawl order stays deterministic.
type Crawler struct {
	fetcher PageFetcher
	opts    Options
	log     *logrus.Entry
}

// New creates a Crawler
func New(fetcher PageFetcher, opts Options, log *logrus.Entry) *Crawler {
	if opts.MaxPages <= 0 || opts.MaxPages > config.MaxPagesLimit {
		opts.MaxPages = config.MaxPagesLimit
	}
	return &Crawler{
		fetcher: fetcher,
		opts:    opts,
		log:     log.WithField("component", "crawler"),
	}
}

// Crawl walks same-domain links starting at rawURL and returns the pages that
// were fetched and parsed, in crawl order. Unreachable pages are skipped.
// An empty result means the site could not be reached.
func (c *Crawler) Crawl(ctx context.Context, rawURL string) []*models.PageRecord {
	startURL := parse.NormalizeSeedURL(rawURL)
	crawlLog := c.log.WithField("start_url", startURL)
	crawlLog.Info("Starting crawl")
	start := time.Now()

	frontier := queue.NewFrontier(startURL)
	visited := make(map[string]bool)
	var pages []*models.PageRecord
	failed := 0

	for frontier.Len() > 0 && len(pages) < c.opts.MaxPages {
		if ctx.Err() != nil {
			crawlLog.Warnf("Crawl interrupted: %v", ctx.Err())
			break
		}

		pageURL, _ := frontier.Pop()
		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		page, ok := c.crawlPage(ctx, pageURL)
		if !ok {
			failed++
			continue
		}
		pages = append(pages, page)

		for _, link := range page.InternalLinks {
			if visited[link] || frontier.Contains(link) {
				continue
			}
			if len(pages)+frontier.Len() >= c.opts.MaxPages {
				break
			}
			frontier.Push(link)
		}
	}

	crawlLog.WithFields(logrus.Fields{
		"pages":    len(pages),
		"failed":   failed,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Crawl finished")
	return pages
}

func (c *Crawler) crawlPage(ctx context.Context, pageURL string) (*models.PageRecord, bool) {
	pageLog := c.log.WithField("url", pageURL)

	if c.opts.Robots != nil && !c.opts.Robots.Allowed(ctx, pageURL) {
		pageLog.WithField("error_type", utils.CategorizeError(utils.ErrRobotsDisallowed)).Debug("Skipping page")
		return nil, false
	}

	html, ok := c.fetcher.Fetch(ctx, pageURL)
	if !ok {
		return nil, false
	}

	page, err := parse.ParsePage(pageURL, html)
	if err != nil {
		pageLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Parse failed: %v", err)
		return nil, false
	}
	pageLog.WithFields(logrus.Fields{
		"chars":          page.WordCount,
		"internal_links": len(page.InternalLinks),
	}).Debug("Page parsed")
	return page, true
}
