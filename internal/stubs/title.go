package stubs

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// TitleFor derives a page title from a stub's content: the text of the
// first <h1> for HTML files, the first level-1 heading otherwise (the
// content is treated as Markdown). An empty result means no title was
// found; the caller falls back to a capitalized filename.
func TitleFor(fname, content string) string {
	if strings.HasSuffix(fname, ".html") {
		return htmlTitle(content)
	}
	return markdownTitle(content)
}

// markdownTitle returns the text of the first level-1 heading.
func markdownTitle(content string) string {
	source := []byte(content)
	root := goldmark.New().Parser().Parse(gmtext.NewReader(source))

	var title string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if heading, ok := n.(*gmast.Heading); ok && heading.Level == 1 {
			title = nodeText(heading, source)
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(title)
}

// nodeText concatenates the literal text under a Goldmark node, so headings
// with emphasis or code spans still yield their full text.
func nodeText(n gmast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *gmast.Text:
			b.Write(node.Segment.Value(source))
		case *gmast.String:
			b.Write(node.Value)
		default:
			b.WriteString(nodeText(c, source))
		}
	}
	return b.String()
}

// htmlTitle returns the text of the first <h1> element.
func htmlTitle(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}
	h1 := findElement(doc, "h1")
	if h1 == nil {
		return ""
	}
	return strings.TrimSpace(elementText(h1))
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func elementText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		} else {
			b.WriteString(elementText(c))
		}
	}
	return b.String()
}
