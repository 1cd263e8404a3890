package report

import (
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
)

const (
	indentPrefix    = "    "
	entryPrefix     = "├── "
	lastEntryPrefix = "└── "
	verticalLine    = "│   "
)

// pathNode is one path segment of the crawled site
type pathNode struct {
	name     string
	children map[string]*pathNode
}

func (n *pathNode) child(name string) *pathNode {
	if n.children == nil {
		n.children = make(map[string]*pathNode)
	}
	c, ok := n.children[name]
	if !ok {
		c = &pathNode{name: name}
		n.children[name] = c
	}
	return c
}

// PathTree renders the paths of urls as a text tree, one root per host.
// Unparseable URLs are skipped.
func PathTree(urls []string) string {
	var hosts []string
	roots := make(map[string]*pathNode)

	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		root, ok := roots[u.Host]
		if !ok {
			root = &pathNode{name: u.Host}
			roots[u.Host] = root
			hosts = append(hosts, u.Host)
		}
		node := root
		for _, seg := range strings.Split(u.Path, "/") {
			if seg != "" {
				node = node.child(seg)
			}
		}
	}

	var sb strings.Builder
	for _, host := range hosts {
		fmt.Fprintf(&sb, "%s/\n", host)
		writeTree(&sb, roots[host], "")
	}
	return sb.String()
}

// writeTree writes the children of n, directories first then by name
func writeTree(w io.Writer, n *pathNode, currentIndent string) {
	children := make([]*pathNode, 0, len(n.children))
	for _, c := range n.children {
		children = append(children, c)
	}
	slices.SortFunc(children, func(a, b *pathNode) int {
		aIsDir, bIsDir := len(a.children) > 0, len(b.children) > 0
		if aIsDir && !bIsDir {
			return -1
		}
		if !aIsDir && bIsDir {
			return 1
		}
		return strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
	})

	for i, c := range children {
		isLast := i == len(children)-1

		connector := entryPrefix
		if isLast {
			connector = lastEntryPrefix
		}
		name := c.name
		if len(c.children) > 0 {
			name += "/"
		}
		fmt.Fprintf(w, "%s%s%s\n", currentIndent, connector, name)

		if len(c.children) > 0 {
			nextIndent := currentIndent + verticalLine
			if isLast {
				nextIndent = currentIndent + indentPrefix
			}
			writeTree(w, c, nextIndent)
		}
	}
}
