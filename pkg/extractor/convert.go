package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gitlab.com/golang-commonmark/markdown"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	md           = markdown.New(markdown.HTML(true), markdown.Tables(true), markdown.Linkify(false))
	headingTag   = regexp.MustCompile(`<(/?)h([1-6])([\s>])`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
	wrappingPara = regexp.MustCompile(`(?s)^<p>(.*)</p>\n?$`)
)

// MarkdownToHTML renders markdown, demoting headings so the first level
// becomes headerLevelStart. A document that is a single paragraph loses
// its wrapping <p>.
func MarkdownToHTML(src string, headerLevelStart int) string {
	out := md.RenderToString([]byte(src))
	if shift := headerLevelStart - 1; shift > 0 {
		out = headingTag.ReplaceAllStringFunc(out, func(m string) string {
			parts := headingTag.FindStringSubmatch(m)
			level, _ := strconv.Atoi(parts[2])
			level += shift
			if level > 6 {
				level = 6
			}
			return fmt.Sprintf("<%sh%d%s", parts[1], level, parts[3])
		})
	}
	out = strings.TrimSpace(out)
	if m := wrappingPara.FindStringSubmatch(out); m != nil && !strings.Contains(m[1], "<p>") {
		out = m[1]
	}
	return out
}

// HTMLToMarkdown converts an HTML fragment to markdown with fenced code
// blocks. Unknown elements contribute their text.
func HTMLToMarkdown(src string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(src), &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body})
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	c := &mdConverter{}
	for _, n := range nodes {
		c.node(n)
	}
	out := blankRuns.ReplaceAllString(c.sb.String(), "\n\n")
	return strings.TrimSpace(out), nil
}

type mdConverter struct {
	sb        strings.Builder
	listStack []listState
	inPre     bool
}

type listState struct {
	ordered bool
	index   int
}

func (c *mdConverter) write(s string) { c.sb.WriteString(s) }

func (c *mdConverter) block(f func()) {
	c.write("\n\n")
	f()
	c.write("\n\n")
}

func (c *mdConverter) children(n *html.Node) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.node(ch)
	}
}

func (c *mdConverter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if c.inPre {
			c.write(n.Data)
			return
		}
		text := strings.Join(strings.Fields(n.Data), " ")
		if text == "" {
			if strings.TrimSpace(n.Data) == "" && n.Data != "" {
				c.write(" ")
			}
			return
		}
		if strings.HasPrefix(n.Data, " ") || strings.HasPrefix(n.Data, "\n") {
			text = " " + text
		}
		if strings.HasSuffix(n.Data, " ") || strings.HasSuffix(n.Data, "\n") {
			text += " "
		}
		c.write(text)
		return
	case html.ElementNode:
	default:
		c.children(n)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Head:
		return
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		c.block(func() {
			c.write(strings.Repeat("#", level) + " ")
			c.write(strings.TrimSpace(c.inline(n)))
		})
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main, atom.Aside, atom.Nav:
		c.block(func() { c.children(n) })
	case atom.Br:
		c.write("  \n")
	case atom.Hr:
		c.block(func() { c.write("---") })
	case atom.Strong, atom.B:
		c.wrap(n, "**")
	case atom.Em, atom.I:
		c.wrap(n, "_")
	case atom.Del, atom.S:
		c.wrap(n, "~~")
	case atom.Code:
		if c.inPre {
			c.children(n)
			return
		}
		c.write("`" + textContent(n) + "`")
	case atom.Pre:
		lang := ""
		if code := firstElement(n, atom.Code); code != nil {
			for _, cls := range strings.Fields(attr(code, "class")) {
				if strings.HasPrefix(cls, "language-") {
					lang = strings.TrimPrefix(cls, "language-")
				}
			}
		}
		c.block(func() {
			c.write("```" + lang + "\n")
			c.inPre = true
			c.children(n)
			c.inPre = false
			c.write("\n```")
		})
	case atom.A:
		text := strings.TrimSpace(c.inline(n))
		href := attr(n, "href")
		if href == "" {
			c.write(text)
			return
		}
		if text == "" {
			text = href
		}
		c.write(fmt.Sprintf("[%s](%s)", text, href))
	case atom.Img:
		c.write(fmt.Sprintf("![%s](%s)", attr(n, "alt"), attr(n, "src")))
	case atom.Ul, atom.Ol:
		c.listStack = append(c.listStack, listState{ordered: n.DataAtom == atom.Ol})
		c.block(func() { c.children(n) })
		c.listStack = c.listStack[:len(c.listStack)-1]
	case atom.Li:
		c.listItem(n)
	case atom.Blockquote:
		inner := &mdConverter{}
		inner.children(n)
		text := strings.TrimSpace(blankRuns.ReplaceAllString(inner.sb.String(), "\n\n"))
		c.block(func() {
			for i, line := range strings.Split(text, "\n") {
				if i > 0 {
					c.write("\n")
				}
				c.write(strings.TrimRight("> "+line, " "))
			}
		})
	case atom.Table:
		c.block(func() { c.table(n) })
	default:
		c.children(n)
	}
}

func (c *mdConverter) wrap(n *html.Node, marker string) {
	text := strings.TrimSpace(c.inline(n))
	if text == "" {
		return
	}
	c.write(marker + text + marker)
}

// inline renders the children of n into a string without touching the
// main buffer.
func (c *mdConverter) inline(n *html.Node) string {
	inner := &mdConverter{listStack: c.listStack, inPre: c.inPre}
	inner.children(n)
	return inner.sb.String()
}

func (c *mdConverter) listItem(n *html.Node) {
	depth := len(c.listStack)
	marker := "- "
	if depth > 0 {
		top := &c.listStack[depth-1]
		top.index++
		if top.ordered {
			marker = fmt.Sprintf("%d. ", top.index)
		}
	}
	indent := ""
	if depth > 1 {
		indent = strings.Repeat("  ", depth-1)
	}
	body := strings.TrimSpace(blankRuns.ReplaceAllString(c.inline(n), "\n\n"))
	body = strings.ReplaceAll(body, "\n\n", "\n")
	c.write("\n" + indent + marker + body)
}

func (c *mdConverter) table(n *html.Node) {
	var rows [][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.ElementNode && ch.DataAtom == atom.Tr {
				var cells []string
				for cell := ch.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.DataAtom == atom.Td || cell.DataAtom == atom.Th) {
						text := strings.TrimSpace(c.inline(cell))
						cells = append(cells, strings.ReplaceAll(text, "|", `\|`))
					}
				}
				rows = append(rows, cells)
				continue
			}
			walk(ch)
		}
	}
	walk(n)
	if len(rows) == 0 {
		return
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	line := func(cells []string) {
		for len(cells) < width {
			cells = append(cells, "")
		}
		c.write("| " + strings.Join(cells, " | ") + " |\n")
	}
	line(rows[0])
	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}
	line(sep)
	for _, r := range rows[1:] {
		line(r)
	}
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode && ch.DataAtom == a {
			return ch
		}
	}
	return nil
}
