// Package process turns a page into the passages a generative search engine
// would retrieve from it.
package process

import (
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
	"github.com/Sriram-PR/aio-diagnoser/pkg/detect"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

// contentSelectors are tried in order after any builder-specific selector
var contentSelectors = []string{"main", "article"}

// selectorReadability marks content located by the Readability fallback
const selectorReadability = "readability"

// noiseSelectors never carry passage content
const noiseSelectors = "script, style, noscript, nav, footer, header, iframe, svg, form"

// PreviewOptions configures BuildPreview
type PreviewOptions struct {
	Chunker  ChunkerConfig
	BaseURL  string                 // Resolves relative links in the Markdown; may be empty
	Detector *detect.ContentDetector // Optional; enables builder selectors and the Readability fallback
}

// PreviewOptionsFrom converts the preview settings
func PreviewOptionsFrom(cfg config.PreviewConfig, baseURL string) PreviewOptions {
	return PreviewOptions{Chunker: ChunkerConfigFrom(cfg), BaseURL: baseURL}
}

// Preview is the page as Markdown, its heading outline and its passages
type Preview struct {
	Builder     detect.Builder `json:"builder,omitempty"` // Set when a detector ran
	Selector    string         `json:"selector"`          // Element the content was taken from
	Markdown    string         `json:"markdown"`
	Outline     []Heading      `json:"outline"`
	Chunks      []Chunk        `json:"chunks"`
	TotalTokens int            `json:"total_tokens"`
}

// BuildPreview extracts the main content of html, converts it to Markdown and
// splits it into passages.
func BuildPreview(html string, opts PreviewOptions) (*Preview, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: reading HTML: %w", utils.ErrParsing, err)
	}
	if opts.Chunker.MaxChunkSize <= 0 {
		opts.Chunker = DefaultChunkerConfig()
	}

	preview := &Preview{Outline: []Heading{}, Chunks: []Chunk{}}
	content := selectContent(doc, opts, preview)
	if content == nil {
		return preview, nil
	}

	content.Find(noiseSelectors).Remove()
	cleanupAnchors(content)

	contentHTML, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering HTML content: %w", utils.ErrParsing, err)
	}

	converter := md.NewConverter(hostOf(opts.BaseURL), true, nil)
	markdown, err := converter.ConvertString(contentHTML)
	if err != nil {
		return nil, fmt.Errorf("%w: converting HTML to Markdown: %w", utils.ErrParsing, err)
	}
	markdown = strings.TrimSpace(markdown)
	preview.Markdown = markdown

	if outline := ExtractHeadings([]byte(markdown)); outline != nil {
		preview.Outline = outline
	}

	chunks, err := ChunkMarkdown(markdown, opts.Chunker)
	if err != nil {
		return nil, fmt.Errorf("chunking preview: %w", err)
	}
	if chunks != nil {
		preview.Chunks = chunks
	}
	for _, c := range chunks {
		preview.TotalTokens += c.TokenCount
	}
	return preview, nil
}

// selectContent picks the element holding the page's main content and records
// how it was found on preview. Order: builder selector, main, article,
// Readability, body.
func selectContent(doc *goquery.Document, opts PreviewOptions, preview *Preview) *goquery.Selection {
	pageURL, _ := url.Parse(opts.BaseURL)
	hasURL := pageURL != nil && pageURL.Host != ""

	var selectors []string
	if opts.Detector != nil {
		detection := opts.Detector.Detect(doc, pageURL)
		preview.Builder = detection.Builder
		if !detection.Fallback {
			for _, sel := range strings.Split(detection.Selector, ",") {
				selectors = append(selectors, strings.TrimSpace(sel))
			}
		}
	}
	selectors = append(selectors, contentSelectors...)

	for _, sel := range selectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			preview.Selector = sel
			return found.Clone()
		}
	}

	if opts.Detector != nil && hasURL {
		if found, err := detect.Readable(doc, pageURL); err == nil {
			preview.Selector = selectorReadability
			return found
		}
	}

	if found := doc.Find("body").First(); found.Length() > 0 {
		preview.Selector = "body"
		return found.Clone()
	}
	return nil
}

// cleanupAnchors drops permalink and empty fragment anchors that only add
// noise to passages
func cleanupAnchors(content *goquery.Selection) {
	content.Find("a.headerlink, a.permalink, a.anchor").Remove()
	content.Find("a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		if text == "¶" || text == "#" || (text == "" && strings.HasPrefix(href, "#")) {
			s.Remove()
		}
	})
}

// hostOf returns the hostname of rawURL for the Markdown converter
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
