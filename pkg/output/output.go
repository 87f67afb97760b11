// Package output assembles the extracted content of a project into its
// final artifacts.
package output

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
	"github.com/grovetools/kb/pkg/textutil"
)

// DistDir is the folder under the output folder that receives artifacts.
const DistDir = "dist"

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Context is what an engine needs to write a project.
type Context struct {
	Project string
	// FS is rooted at the project's output folder.
	FS billy.Filesystem
	// OutFolder is the OS path of FS, for engines that need a real file.
	OutFolder string
	Extension string
	// Minify collapses whitespace in whole HTML documents.
	Minify bool
	Pages  *content.Pages
	Logger *logrus.Entry
}

func (c *Context) logger() *logrus.Entry {
	if c.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return c.Logger
}

func (c *Context) extension() string {
	if c.Extension == "" {
		return "html"
	}
	return c.Extension
}

// Engine writes the artifacts of one output mode.
type Engine interface {
	Name() string
	// Write produces the artifacts and returns their paths relative to
	// the output folder.
	Write(ctx context.Context, c *Context) ([]string, error)
}

var engines = map[string]func() Engine{
	"single": func() Engine { return singleEngine{} },
	"pages":  func() Engine { return pagesEngine{} },
	"index":  func() Engine { return indexEngine{} },
	"none":   func() Engine { return noneEngine{} },
}

// Modes returns the known output modes.
func Modes() []string {
	names := make([]string, 0, len(engines))
	for n := range engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New returns the engine for mode.
func New(mode string) (Engine, error) {
	ctor, ok := engines[mode]
	if !ok {
		return nil, models.NewUnknownNameError("output mode", mode, Modes())
	}
	return ctor(), nil
}

// Write runs the engine for mode over c, dropping empty pages first.
func Write(ctx context.Context, mode string, c *Context) ([]string, error) {
	engine, err := New(mode)
	if err != nil {
		return nil, err
	}
	if c.Pages == nil {
		c.Pages = content.NewPages()
	}
	filtered := *c
	filtered.Pages = c.Pages.NonEmpty()
	return engine.Write(ctx, &filtered)
}

type moduleView struct {
	Title string
	HTML  template.HTML
}

type pageView struct {
	ID      string
	Title   string
	Modules []moduleView
}

func viewOf(id string, mods []*content.Module) pageView {
	v := pageView{ID: id, Title: textutil.DisplayName(id)}
	for _, m := range mods {
		v.Modules = append(v.Modules, moduleView{Title: m.DisplayTitle(), HTML: template.HTML(m.AsHTML())})
	}
	return v
}

// writeHTML renders a template into <dist>/<stem>.<ext>.
func writeHTML(c *Context, name, stem string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	text := buf.String()
	if c.Minify {
		text = textutil.MinifyHTML(text)
	}
	file := path.Join(DistDir, stem+"."+c.extension())
	if err := c.FS.MkdirAll(DistDir, 0o755); err != nil {
		return "", err
	}
	if err := util.WriteFile(c.FS, file, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", file, err)
	}
	c.logger().WithFields(logrus.Fields{"file": file, "size": len(text)}).Info("Wrote output")
	return file, nil
}

type singleEngine struct{}

func (singleEngine) Name() string { return "single" }

func (singleEngine) Write(_ context.Context, c *Context) ([]string, error) {
	var pages []pageView
	for _, id := range c.Pages.IDs() {
		pages = append(pages, viewOf(id, c.Pages.Modules(id)))
	}
	data := struct {
		Title string
		Pages []pageView
	}{c.Project + " knowledge base", pages}
	file, err := writeHTML(c, "single.html.tmpl", c.Project+"_knowledge_base", data)
	if err != nil {
		return nil, err
	}
	return []string{file}, nil
}

type pagesEngine struct{}

func (pagesEngine) Name() string { return "pages" }

func (pagesEngine) Write(_ context.Context, c *Context) ([]string, error) {
	var files []string
	for _, id := range c.Pages.IDs() {
		stem := c.Project + "_knowledge"
		if id != "" {
			stem += "_" + textutil.SanitizeSegment(id)
		}
		view := viewOf(id, c.Pages.Modules(id))
		if id == "" {
			view.Title = c.Project
		}
		file, err := writeHTML(c, "pages.html.tmpl", stem, view)
		if err != nil {
			return files, err
		}
		files = append(files, file)
	}
	return files, nil
}

type noneEngine struct{}

func (noneEngine) Name() string { return "none" }

func (noneEngine) Write(context.Context, *Context) ([]string, error) { return nil, nil }
