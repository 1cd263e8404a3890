package detect

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

// Readable extracts the main content of doc with Mozilla's Readability
// algorithm. The returned selection is a single <body> element wrapping the
// article.
func Readable(doc *goquery.Document, pageURL *url.URL) (*goquery.Selection, error) {
	html, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("%w: rendering HTML document: %w", utils.ErrParsing, err)
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: readability extraction: %w", utils.ErrParsing, err)
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, fmt.Errorf("%w: readability extracted empty content", utils.ErrParsing)
	}

	contentDoc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing readability HTML: %w", utils.ErrParsing, err)
	}
	return contentDoc.Find("body").First(), nil
}
