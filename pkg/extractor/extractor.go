// Package extractor turns terminal entries into content modules.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/fetch"
	"github.com/grovetools/kb/pkg/models"
)

// Extractor produces the content of one terminal entry.
type Extractor interface {
	// Init performs the (possibly slow) extraction work.
	Init(ctx context.Context) error
	// ContentModules returns what Init produced.
	ContentModules() []*content.Module
}

// Options are the global settings extractors may consult.
type Options struct {
	PandocPath          string
	ChromeExecutable    string
	OutputFileExtension string
	// DebugFolder receives raw downloads when set.
	DebugFolder string
}

// CommandRunner runs an external program, feeding stdin and returning stdout.
type CommandRunner func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// Context is handed to every extractor.
type Context struct {
	Options Options
	EntryID string
	Fetcher *fetch.Fetcher
	Logger  *logrus.Entry
	Run     CommandRunner
}

func (c *Context) logger() *logrus.Entry {
	if c.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return c.Logger
}

func (c *Context) run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	if c.Run != nil {
		return c.Run(ctx, stdin, name, args...)
	}
	return ExecRunner(ctx, stdin, name, args...)
}

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// Constructor builds an extractor for an entry.
type Constructor func(entry *models.Entry, xctx *Context) Extractor

type registration struct {
	description string
	ctor        Constructor
}

// Registry maps extractor names to constructors.
type Registry struct {
	items map[string]registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: map[string]registration{}}
}

// Default returns a registry with every built-in extractor.
func Default() *Registry {
	r := NewRegistry()
	r.Register("download", "raw text from a URL or an absolute file path", newDownload)
	r.Register("markdown", "markdown document, front matter title honored", newMarkdown)
	r.Register("markdownFromHtml", "HTML page converted to markdown", newMarkdownFromHTML)
	r.Register("html", "HTML page, optionally browser-rendered and narrowed by domSelector", newHTML)
	r.Register("htmlFromMarkdown", "markdown document rendered to HTML", newHTMLFromMarkdown)
	r.Register("code", "source file, normalized per language", newCode)
	r.Register("wikimedia", "MediaWiki markup converted to markdown with pandoc", newWikimedia)
	r.Register("redditThread", "Reddit self post with its comment tree", newRedditThread)
	return r
}

// Register adds or replaces an extractor.
func (r *Registry) Register(name, description string, ctor Constructor) {
	r.items[name] = registration{description: description, ctor: ctor}
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.items))
	for n := range r.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description of a registered extractor.
func (r *Registry) Describe(name string) string {
	return r.items[name].description
}

// New instantiates the named extractor.
func (r *Registry) New(name string, entry *models.Entry, xctx *Context) (Extractor, error) {
	reg, ok := r.items[name]
	if !ok {
		return nil, models.NewUnknownNameError("extractor", name, r.Names())
	}
	return reg.ctor(entry, xctx), nil
}
