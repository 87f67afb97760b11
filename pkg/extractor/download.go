package extractor

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
)

// source is the shared download step: an absolute path is read from disk,
// anything else is fetched over HTTP.
type source struct {
	entry *models.Entry
	xctx  *Context
	text  string
	title string
}

func (s *source) url() string { return s.entry.String("url") }

func (s *source) download(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("entry %s has no url", s.entry.ID)
	}
	log := s.xctx.logger().WithField("entry", s.entry.ID)
	if filepath.IsAbs(url) {
		log.WithField("file", url).Debug("Reading file")
		data, err := os.ReadFile(url)
		if err != nil {
			return err
		}
		s.text = string(data)
		return nil
	}
	if s.xctx.Fetcher == nil {
		return fmt.Errorf("entry %s: no fetcher configured", s.entry.ID)
	}
	log.WithField("url", url).Debug("Downloading")
	resp, err := s.xctx.Fetcher.Get(ctx, url, s.headers())
	if err != nil {
		return err
	}
	s.text = resp.Text()
	return nil
}

// headers builds request headers from the entry's headers and cookies maps.
func (s *source) headers() map[string]string {
	h := map[string]string{}
	if raw, ok := s.entry.Get("headers"); ok {
		if m, ok := raw.(map[string]any); ok {
			for k, v := range m {
				h[k] = fmt.Sprint(v)
			}
		}
	}
	if cookie := cookieHeader(s.entry); cookie != "" {
		h["Cookie"] = cookie
	}
	return h
}

// cookieHeader accepts cookies as name: value, or name: {value: ...}.
func cookieHeader(entry *models.Entry) string {
	raw, ok := entry.Get("cookies")
	if !ok {
		return ""
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		switch v := m[name].(type) {
		case string:
			parts = append(parts, name+"="+v)
		case map[string]any:
			if val, ok := v["value"]; ok {
				parts = append(parts, fmt.Sprintf("%s=%v", name, val))
			}
		}
	}
	return strings.Join(parts, "; ")
}

// displayTitle is the title used by extractors that have none of their own.
func (s *source) displayTitle() string {
	if s.title != "" {
		return s.title
	}
	if s.entry.Title != "" {
		return s.entry.Title
	}
	return s.xctx.EntryID
}

// extension returns the normalized extension of the source url.
func (s *source) extension() string {
	u := s.url()
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return NormalizeExtension(strings.TrimPrefix(path.Ext(filepath.ToSlash(u)), "."))
}

// NormalizeExtension lower-cases an extension and folds common aliases.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case "markdown":
		return "md"
	case "htm":
		return "html"
	case "jpeg":
		return "jpg"
	case "yaml":
		return "yml"
	}
	return ext
}

type downloadExtractor struct {
	source
}

func newDownload(entry *models.Entry, xctx *Context) Extractor {
	return &downloadExtractor{source{entry: entry, xctx: xctx}}
}

func (d *downloadExtractor) Init(ctx context.Context) error {
	return d.download(ctx, d.url())
}

func (d *downloadExtractor) ContentModules() []*content.Module {
	return []*content.Module{content.New(d.entry, content.KindHTML, d.text, d.displayTitle())}
}
