package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
	"mvdan.cc/gofumpt/format"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
	"github.com/grovetools/kb/pkg/textutil"
)

var scriptExtension = regexp.MustCompile(`^[cm]?[jt]sx?$`)

// Formatter normalizes source text of one language.
type Formatter func(src string) (string, error)

// Formatters maps a language key (see FormatterKey) to its formatter.
var Formatters = map[string]Formatter{
	"json": formatJSON,
	"yml":  formatYAML,
	"go":   formatGo,
	"ts":   minifyCode,
	"py":   minifyCode,
	"toml": minifyCode,
}

// FormatterKey folds every JavaScript and TypeScript flavour onto "ts".
func FormatterKey(ext string) string {
	ext = NormalizeExtension(ext)
	if scriptExtension.MatchString(ext) {
		return "ts"
	}
	return ext
}

func formatJSON(src string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(src)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatYAML(src string) (string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return "", err
	}
	stripComments(&doc)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func stripComments(n *yaml.Node) {
	n.HeadComment, n.LineComment, n.FootComment = "", "", ""
	for _, c := range n.Content {
		stripComments(c)
	}
}

func formatGo(src string) (string, error) {
	out, err := format.Source([]byte(src), format.Options{})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func minifyCode(src string) (string, error) {
	return textutil.Minify(src, textutil.MinifyOptions{}), nil
}

// codeExtractor downloads a source file and normalizes it by language.
type codeExtractor struct {
	source
}

func newCode(entry *models.Entry, xctx *Context) Extractor {
	return &codeExtractor{source{entry: entry, xctx: xctx}}
}

func (c *codeExtractor) Init(ctx context.Context) error {
	if err := c.download(ctx, c.url()); err != nil {
		return err
	}
	ext := c.extension()
	if ext == "" {
		return nil
	}
	formatter, ok := Formatters[FormatterKey(ext)]
	if !ok {
		return nil
	}
	out, err := formatter(c.text)
	if err != nil {
		c.xctx.logger().WithError(err).WithField("entry", c.entry.ID).Warnf("Could not format %s content", ext)
		return nil
	}
	c.text = strings.TrimSpace(out)
	return nil
}

func (c *codeExtractor) ContentModules() []*content.Module {
	m := content.New(c.entry, content.KindCode, c.text, c.title)
	if ext := c.extension(); ext != "" {
		m.WithExtension(ext)
	}
	return []*content.Module{m}
}
