package extractor

import (
	"context"

	"github.com/grovetools/kb/pkg/models"
)

// htmlFromMarkdownExtractor fetches markdown and renders it to HTML with
// headings starting at h3, so they nest under the module title.
type htmlFromMarkdownExtractor struct {
	htmlExtractor
}

func newHTMLFromMarkdown(entry *models.Entry, xctx *Context) Extractor {
	return &htmlFromMarkdownExtractor{htmlExtractor{source{entry: entry, xctx: xctx}}}
}

func (h *htmlFromMarkdownExtractor) Init(ctx context.Context) error {
	if err := h.htmlExtractor.Init(ctx); err != nil {
		return err
	}
	h.text = MarkdownToHTML(h.text, 3)
	return nil
}
