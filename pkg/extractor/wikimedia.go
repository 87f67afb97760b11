package extractor

import (
	"context"
	"fmt"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
)

// pandocArgs convert MediaWiki markup read from stdin to markdown.
var pandocArgs = []string{
	"--from", "mediawiki",
	"--to", "markdown",
	"--standalone",
	"--embed-resources",
	"--wrap", "none",
	"--no-highlight",
}

type wikimediaExtractor struct {
	source
}

func newWikimedia(entry *models.Entry, xctx *Context) Extractor {
	return &wikimediaExtractor{source{entry: entry, xctx: xctx}}
}

func (w *wikimediaExtractor) Init(ctx context.Context) error {
	if err := w.download(ctx, w.url()); err != nil {
		return err
	}
	pandoc := w.xctx.Options.PandocPath
	if pandoc == "" {
		pandoc = "pandoc"
	}
	out, err := w.xctx.run(ctx, []byte(w.text), pandoc, pandocArgs...)
	if err != nil {
		return fmt.Errorf("entry %s: %w", w.entry.ID, err)
	}
	w.text = string(out)
	return nil
}

func (w *wikimediaExtractor) ContentModules() []*content.Module {
	return []*content.Module{content.New(w.entry, content.KindMarkdown, w.text, w.title)}
}
