package process

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is one entry of a Markdown outline
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ExtractHeadings parses markdown and returns its headings in document order.
// Inline markup inside a heading (emphasis, code, links) is flattened to text.
func ExtractHeadings(markdown []byte) []Heading {
	doc := goldmark.DefaultParser().Parse(text.NewReader(markdown))

	var headings []Heading
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		collectText(heading, markdown, &buf)
		if buf.Len() > 0 {
			headings = append(headings, Heading{Level: heading.Level, Text: buf.String()})
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

func collectText(n ast.Node, source []byte, buf *bytes.Buffer) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			buf.Write(c.Segment.Value(source))
			if c.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(c.Value)
		default:
			collectText(child, source, buf)
		}
	}
}

// headingTexts flattens an outline into its texts
func headingTexts(headings []Heading) []string {
	if len(headings) == 0 {
		return nil
	}
	out := make([]string, len(headings))
	for i, h := range headings {
		out[i] = h.Text
	}
	return out
}
