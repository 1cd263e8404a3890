package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BuilderSignature defines detection patterns for a site builder or CMS
type BuilderSignature struct {
	Builder      Builder
	Selector     string   // CSS selectors for main content, tried in order
	Generators   []string // Substrings of <meta name="generator">
	Attributes   []string // HTML attributes to look for
	Classes      []string // CSS classes to look for; a trailing * matches a prefix
	Scripts      []string // Script src patterns to look for
	HTMLPatterns []string // Substring patterns to look for in raw HTML
}

// Matches returns true if the document matches this builder's signature.
// lowerHTML is the lowercased page markup.
func (sig *BuilderSignature) Matches(doc *goquery.Document, lowerHTML string) bool {
	if generator := strings.ToLower(doc.Find(`meta[name="generator"]`).AttrOr("content", "")); generator != "" {
		for _, g := range sig.Generators {
			if strings.Contains(generator, strings.ToLower(g)) {
				return true
			}
		}
	}

	for _, attr := range sig.Attributes {
		if doc.Find("[" + attr + "]").Length() > 0 {
			return true
		}
	}

	for _, class := range sig.Classes {
		if prefix, ok := strings.CutSuffix(class, "*"); ok {
			if hasClassPrefix(doc, prefix) {
				return true
			}
		} else if doc.Find("." + class).Length() > 0 {
			return true
		}
	}

	for _, pattern := range sig.Scripts {
		matched := doc.Find("script[src]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.AttrOr("src", ""), pattern)
		})
		if matched.Length() > 0 {
			return true
		}
	}

	for _, pattern := range sig.HTMLPatterns {
		if strings.Contains(lowerHTML, strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}

func hasClassPrefix(doc *goquery.Document, prefix string) bool {
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, c := range strings.Fields(s.AttrOr("class", "")) {
			if strings.HasPrefix(c, prefix) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// builderSignatures lists the builders common among small business sites.
// Order matters: more specific patterns come first.
var builderSignatures = []BuilderSignature{
	{
		Builder:    BuilderWix,
		Selector:   "main#PAGES_CONTAINER, #PAGES_CONTAINER, main",
		Generators: []string{"Wix.com"},
		Scripts:    []string{"static.parastorage.com"},
		HTMLPatterns: []string{
			"static.wixstatic.com",
			"wix-image",
		},
	},
	{
		Builder:    BuilderShopify,
		Selector:   "main#MainContent, #MainContent, main",
		Scripts:    []string{"cdn.shopify.com"},
		HTMLPatterns: []string{
			"shopify.theme",
			"cdn.shopify.com",
		},
	},
	{
		Builder:    BuilderSquarespace,
		Selector:   "main#page, #page .sections, main",
		Generators: []string{"Squarespace"},
		HTMLPatterns: []string{
			"static1.squarespace.com",
		},
	},
	{
		Builder:    BuilderJimdo,
		Selector:   "#content_area, .jtpl-content, main",
		Generators: []string{"Jimdo"},
		Classes:    []string{"jtpl-*"},
		HTMLPatterns: []string{
			"jimcdn.com",
			"jimdo",
		},
	},
	{
		Builder:    BuilderStudio,
		Selector:   "main, #__nuxt",
		Generators: []string{"STUDIO"},
		HTMLPatterns: []string{
			"studio.design",
		},
	},
	// WordPress last: many builders embed wp-content assets
	{
		Builder:    BuilderWordPress,
		Selector:   ".entry-content, article .post-content, main article, main",
		Generators: []string{"WordPress"},
		Classes:    []string{"wp-block-*"},
		HTMLPatterns: []string{
			"/wp-content/",
			"/wp-includes/",
		},
	},
}

// BuilderSelector returns the content selector for a known builder
func BuilderSelector(b Builder) string {
	for _, sig := range builderSignatures {
		if sig.Builder == b {
			return sig.Selector
		}
	}
	return ""
}
