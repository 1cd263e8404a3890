// Package detect recognizes the site builder behind a page and locates its
// main content.
package detect

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Builder names a site builder or CMS
type Builder string

const (
	BuilderUnknown     Builder = "unknown"
	BuilderWordPress   Builder = "wordpress"
	BuilderWix         Builder = "wix"
	BuilderJimdo       Builder = "jimdo"
	BuilderShopify     Builder = "shopify"
	BuilderSquarespace Builder = "squarespace"
	BuilderStudio      Builder = "studio"
)

// DetectionResult contains the result of builder detection
type DetectionResult struct {
	Builder  Builder `json:"builder"`
	Selector string  `json:"selector,omitempty"` // Content selectors for the builder
	Fallback bool    `json:"fallback"`           // True when no builder was recognized
}

// ContentDetector detects the builder of a page, caching the answer per host
type ContentDetector struct {
	cache *SelectorCache
	log   *logrus.Entry
}

// NewContentDetector creates a new content detector with caching
func NewContentDetector(log *logrus.Entry) *ContentDetector {
	return &ContentDetector{
		cache: NewSelectorCache(),
		log:   log.WithField("component", "detect"),
	}
}

// Detect determines the builder and content selector for doc
func (d *ContentDetector) Detect(doc *goquery.Document, pageURL *url.URL) DetectionResult {
	host := ""
	if pageURL != nil {
		host = pageURL.Hostname()
	}

	if host == "" {
		return detectBuilder(doc)
	}
	if cached, ok := d.cache.Get(host); ok {
		d.log.Debugf("Using cached builder for %s: %s", host, cached.Builder)
		return cached
	}

	result := detectBuilder(doc)
	if result.Fallback {
		d.log.Debugf("No site builder recognized for %s", host)
	} else {
		d.log.Debugf("Detected builder %s for %s, using selector: %s", result.Builder, host, result.Selector)
	}
	d.cache.Set(host, result)
	return result
}

func detectBuilder(doc *goquery.Document) DetectionResult {
	html, _ := doc.Html()
	lowerHTML := strings.ToLower(html)

	for _, sig := range builderSignatures {
		if sig.Matches(doc, lowerHTML) {
			return DetectionResult{Builder: sig.Builder, Selector: sig.Selector}
		}
	}
	return DetectionResult{Builder: BuilderUnknown, Fallback: true}
}
