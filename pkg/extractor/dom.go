package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// simpleSelector matches one element by tag, id and classes.
type simpleSelector struct {
	tag     string
	id      string
	classes []string
}

// parseSelector understands descendant chains of tag, #id and .class
// parts, e.g. "main article.post #content".
func parseSelector(s string) ([]simpleSelector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	chain := make([]simpleSelector, 0, len(fields))
	for _, f := range fields {
		var sel simpleSelector
		rest := f
		i := strings.IndexAny(rest, "#.")
		if i < 0 {
			sel.tag = strings.ToLower(rest)
			rest = ""
		} else {
			sel.tag = strings.ToLower(rest[:i])
			rest = rest[i:]
		}
		for rest != "" {
			kind := rest[0]
			rest = rest[1:]
			j := strings.IndexAny(rest, "#.")
			name := rest
			if j >= 0 {
				name, rest = rest[:j], rest[j:]
			} else {
				rest = ""
			}
			if name == "" {
				return nil, fmt.Errorf("invalid selector %q", s)
			}
			if kind == '#' {
				sel.id = name
			} else {
				sel.classes = append(sel.classes, name)
			}
		}
		chain = append(chain, sel)
	}
	return chain, nil
}

func (s simpleSelector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && s.tag != "*" && n.Data != s.tag {
		return false
	}
	if s.id != "" && attr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range s.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findFirst returns the first node in document order matching the chain.
func findFirst(root *html.Node, chain []simpleSelector) *html.Node {
	var found *html.Node
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if chain[depth].matches(c) {
				if depth == len(chain)-1 {
					found = c
					return
				}
				walk(c, depth+1)
				if found != nil {
					return
				}
			}
			walk(c, depth)
		}
	}
	walk(root, 0)
	return found
}

// SelectInnerHTML returns the inner HTML of the first element matching
// selector. ok is false when nothing matches.
func SelectInnerHTML(doc, selector string) (inner string, ok bool, err error) {
	chain, err := parseSelector(selector)
	if err != nil {
		return "", false, err
	}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", false, fmt.Errorf("parse html: %w", err)
	}
	n := findFirst(root, chain)
	if n == nil {
		return "", false, nil
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", false, err
		}
	}
	return buf.String(), true, nil
}

// DocumentTitle returns the text of the document's <title>.
func DocumentTitle(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	var title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			title = strings.TrimSpace(textContent(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return title
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
