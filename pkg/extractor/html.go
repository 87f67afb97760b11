package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
	"github.com/grovetools/kb/pkg/textutil"
)

// htmlExtractor fetches a page over HTTP, or renders it in headless Chrome
// when the entry sets browser (or the older puppeteer flag).
type htmlExtractor struct {
	source
}

func newHTML(entry *models.Entry, xctx *Context) Extractor {
	return &htmlExtractor{source{entry: entry, xctx: xctx}}
}

func (h *htmlExtractor) useBrowser() bool {
	return h.entry.Bool("browser", false) || h.entry.Bool("puppeteer", false)
}

func (h *htmlExtractor) Init(ctx context.Context) error {
	if h.useBrowser() {
		if err := h.render(ctx); err != nil {
			return err
		}
	} else if err := h.download(ctx, h.url()); err != nil {
		return err
	}
	h.writeDebug()

	selector := h.entry.String("domSelector")
	if selector == "" {
		return nil
	}
	inner, ok, err := SelectInnerHTML(h.text, selector)
	if err != nil {
		return fmt.Errorf("entry %s: %w", h.entry.ID, err)
	}
	if !ok {
		if h.useBrowser() {
			return fmt.Errorf("no element matching %q found on %s", selector, h.url())
		}
		h.xctx.logger().WithField("entry", h.entry.ID).Warnf("No element matches %q", selector)
	}
	h.text = inner
	return nil
}

// render dumps the DOM after Chrome has run the page's scripts.
func (h *htmlExtractor) render(ctx context.Context) error {
	url := h.url()
	if url == "" {
		return fmt.Errorf("entry %s has no url", h.entry.ID)
	}
	if _, ok := h.entry.Get("cookies"); ok {
		h.xctx.logger().WithField("entry", h.entry.ID).Warn("Cookies are not passed to the headless browser")
	}
	chrome := h.xctx.Options.ChromeExecutable
	if chrome == "" {
		chrome = "google-chrome"
	}
	args := []string{
		"--headless=new",
		"--disable-gpu",
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--virtual-time-budget=15000",
		"--dump-dom",
		url,
	}
	h.xctx.logger().WithField("entry", h.entry.ID).WithField("url", url).Debug("Rendering in browser")
	out, err := h.xctx.run(ctx, nil, chrome, args...)
	if err != nil {
		return fmt.Errorf("render %s: %w", url, err)
	}
	h.text = string(out)
	if h.entry.Bool("useTitle", true) {
		h.title = DocumentTitle(h.text)
	}
	return nil
}

func (h *htmlExtractor) writeDebug() {
	dir := h.xctx.Options.DebugFolder
	if dir == "" {
		return
	}
	file := filepath.Join(dir, textutil.SanitizeSegment(h.xctx.EntryID)+".html")
	if err := os.MkdirAll(dir, 0o755); err == nil {
		err = os.WriteFile(file, []byte(h.text), 0o644)
		if err == nil {
			h.xctx.logger().WithField("file", file).Debug("Wrote raw HTML")
			return
		}
	}
	h.xctx.logger().WithField("file", file).Warn("Could not write raw HTML")
}

func (h *htmlExtractor) ContentModules() []*content.Module {
	return []*content.Module{content.New(h.entry, content.KindHTML, h.text, h.title)}
}
