package source

import (
	"io"
	"strings"

	"cabwatch/internal/roster"

	"golang.org/x/net/html"
)

const (
	nameClass = "dancer_name"
	codeClass = "code"
)

// ParseRoster extracts (name, code) rows from the rival search page in
// document order. Rows are driven by the name cells; a missing code cell
// yields an empty code.
func ParseRoster(r io.Reader, limit int) ([]roster.Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	var names, codes []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "td" {
			switch {
			case hasClass(n, nameClass):
				names = append(names, strings.TrimSpace(textOf(n)))
			case hasClass(n, codeClass):
				codes = append(codes, strings.TrimSpace(textOf(n)))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	out := make([]roster.Entry, 0, len(names))
	for i, name := range names {
		e := roster.Entry{Name: name}
		if i < len(codes) {
			e.Code = codes[i]
		}
		out = append(out, e)
	}
	return out, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
