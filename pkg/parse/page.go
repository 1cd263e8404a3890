package parse

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

// Elements dropped before the visible-text signal is computed
const nonContentSelector = "script, style, noscript, nav, footer, header"

var (
	faqKeywords     = []string{"よくある質問", "faq", "q&a"}
	contactKeywords = []string{"お問い合わせ", "contact"}
	addressKeywords = []string{"所在地", "住所"}
	phoneKeywords   = []string{"tel", "電話"}
)

// ParsePage extracts a PageRecord from the raw markup of pageURL.
// Malformed JSON-LD blocks are skipped; only an unusable pageURL is an error.
func ParsePage(pageURL string, html string) (*models.PageRecord, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid page URL %q", utils.ErrParsing, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: HTML for %s: %w", utils.ErrParsing, pageURL, err)
	}

	page := &models.PageRecord{
		URL:             pageURL,
		Title:           strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription: doc.Find(`meta[name="description"]`).AttrOr("content", ""),
		MetaKeywords:    doc.Find(`meta[name="keywords"]`).AttrOr("content", ""),
		Canonical:       doc.Find(`link[rel="canonical"]`).AttrOr("href", ""),
		Viewport:        doc.Find(`meta[name="viewport"]`).AttrOr("content", ""),
		Charset:         extractCharset(doc),
		Lang:            doc.Find("html").AttrOr("lang", ""),
		OGTags:          extractOGTags(doc),
		Headings:        extractHeadings(doc),
		StructuredData:  extractStructuredData(doc),
		HasSSL:          strings.HasPrefix(pageURL, "https://"),
	}

	// Links inside nav/footer count, so collect them before removal.
	page.InternalLinks, page.ExternalLinks = extractLinks(doc, base)
	hasMailLink := doc.Find(`a[href^="mailto:"]`).Length() > 0
	hasTelLink := doc.Find(`a[href^="tel:"]`).Length() > 0
	hasAddressTag := doc.Find("address").Length() > 0

	doc.Find(nonContentSelector).Remove()
	page.TextContent = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	page.WordCount = len([]rune(page.TextContent))

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		page.Images = append(page.Images, models.Image{
			Src: s.AttrOr("src", ""),
			Alt: s.AttrOr("alt", ""),
		})
	})

	lowerText := strings.ToLower(page.TextContent)
	page.HasFAQ = containsAny(lowerText, faqKeywords) || hasSchemaType(page, "FAQPage")
	page.HasContactInfo = containsAny(lowerText, contactKeywords) || hasMailLink
	page.HasAddress = containsAny(lowerText, addressKeywords) || hasAddressTag
	page.HasPhone = containsAny(lowerText, phoneKeywords) || hasTelLink

	return page, nil
}

func extractCharset(doc *goquery.Document) string {
	if charset := doc.Find("meta[charset]").AttrOr("charset", ""); charset != "" {
		return charset
	}
	return doc.Find(`meta[http-equiv="Content-Type"]`).AttrOr("content", "")
}

func extractOGTags(doc *goquery.Document) map[string]string {
	tags := make(map[string]string)
	doc.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		if prop := s.AttrOr("property", ""); prop != "" {
			tags[prop] = s.AttrOr("content", "")
		}
	})
	return tags
}

func extractHeadings(doc *goquery.Document) models.Headings {
	texts := func(selector string) []string {
		var out []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			out = append(out, strings.TrimSpace(s.Text()))
		})
		return out
	}
	return models.Headings{
		H1: texts("h1"),
		H2: texts("h2"),
		H3: texts("h3"),
		H4: texts("h4"),
		H5: texts("h5"),
		H6: texts("h6"),
	}
}

// extractStructuredData decodes every JSON-LD block. Non-object values are
// wrapped as {"@value": v} so they still count as a block.
func extractStructuredData(doc *goquery.Document) []map[string]any {
	var blocks []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		if obj, ok := v.(map[string]any); ok {
			blocks = append(blocks, obj)
			return
		}
		blocks = append(blocks, map[string]any{"@value": v})
	})
	return blocks
}

func extractLinks(doc *goquery.Document, base *url.URL) (internal, external []string) {
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		link, ok := ResolveLink(base, s.AttrOr("href", ""))
		if !ok || seen[link] {
			return
		}
		seen[link] = true
		if IsWebURL(link) && SameHost(base.String(), link) {
			internal = append(internal, link)
		} else {
			external = append(external, link)
		}
	})
	return internal, external
}

func hasSchemaType(page *models.PageRecord, schemaType string) bool {
	for _, t := range page.SchemaTypes() {
		if t == schemaType {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
