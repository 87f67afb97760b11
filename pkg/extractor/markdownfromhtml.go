package extractor

import (
	"context"
	"fmt"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
)

type markdownFromHTMLExtractor struct {
	htmlExtractor
}

func newMarkdownFromHTML(entry *models.Entry, xctx *Context) Extractor {
	return &markdownFromHTMLExtractor{htmlExtractor{source{entry: entry, xctx: xctx}}}
}

func (m *markdownFromHTMLExtractor) Init(ctx context.Context) error {
	if err := m.htmlExtractor.Init(ctx); err != nil {
		return err
	}
	text, err := HTMLToMarkdown(m.text)
	if err != nil {
		return fmt.Errorf("entry %s: %w", m.entry.ID, err)
	}
	m.text = text
	return nil
}

func (m *markdownFromHTMLExtractor) ContentModules() []*content.Module {
	return []*content.Module{content.New(m.entry, content.KindMarkdown, m.text, m.title)}
}
