package extractor

import (
	"context"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/frontmatter"
	"github.com/grovetools/kb/pkg/models"
)

type markdownExtractor struct {
	source
}

func newMarkdown(entry *models.Entry, xctx *Context) Extractor {
	return &markdownExtractor{source{entry: entry, xctx: xctx}}
}

func (m *markdownExtractor) Init(ctx context.Context) error {
	if err := m.download(ctx, m.url()); err != nil {
		return err
	}
	fm, body, err := frontmatter.Parse(m.text)
	if err != nil {
		m.xctx.logger().WithError(err).WithField("entry", m.entry.ID).Warn("Ignoring malformed front matter")
		return nil
	}
	if fm != nil {
		m.text = body
		m.title = fm.Title
	}
	return nil
}

func (m *markdownExtractor) ContentModules() []*content.Module {
	return []*content.Module{content.New(m.entry, content.KindMarkdown, m.text, m.title)}
}
