// Package content defines the unit of extracted content and the kinds it
// comes in.
package content

import (
	"fmt"
	"html"
	"strings"

	"github.com/grovetools/kb/pkg/models"
)

// Kind is the type tag of a content module.
type Kind string

const (
	KindGeneric  Kind = "generic"
	KindCode     Kind = "code"
	KindHTML     Kind = "html"
	KindMarkdown Kind = "markdown"
)

// kindExtensions holds the file extension each kind persists with. An
// empty value means the caller supplies the default.
var kindExtensions = map[Kind]string{
	KindGeneric:  "",
	KindCode:     "",
	KindHTML:     "html",
	KindMarkdown: "md",
}

// Kinds returns every registered kind name.
func Kinds() []string {
	return []string{string(KindCode), string(KindGeneric), string(KindHTML), string(KindMarkdown)}
}

// ParseKind resolves a stored kind name.
func ParseKind(name string) (Kind, error) {
	if _, ok := kindExtensions[Kind(name)]; ok {
		return Kind(name), nil
	}
	return "", models.NewUnknownNameError("content module type", name, Kinds())
}

// Module is one piece of extracted content. Modules produced from the same
// entry share that entry.
type Module struct {
	entry     *models.Entry
	kind      Kind
	text      string
	title     string
	extension string
	cached    bool
}

// New creates a freshly extracted module.
func New(entry *models.Entry, kind Kind, text, title string) *Module {
	return &Module{entry: entry, kind: kind, text: text, title: title}
}

// FromCache recreates a module read back from the content cache.
func FromCache(entry *models.Entry, kind Kind, text, title, extension string) *Module {
	return &Module{entry: entry, kind: kind, text: text, title: title, extension: extension, cached: true}
}

// WithExtension overrides the persisted file extension (code modules carry
// the extension of the source file).
func (m *Module) WithExtension(ext string) *Module {
	m.extension = strings.TrimPrefix(ext, ".")
	return m
}

func (m *Module) Entry() *models.Entry { return m.entry }
func (m *Module) Kind() Kind           { return m.kind }
func (m *Module) SourceText() string   { return m.text }
func (m *Module) Cached() bool         { return m.cached }

// Title is the module's own title, possibly empty.
func (m *Module) Title() string { return m.title }

// DisplayTitle prefers the entry's declared title, then the module title,
// then the entry id.
func (m *Module) DisplayTitle() string {
	if m.entry != nil && m.entry.Title != "" {
		return m.entry.Title
	}
	if m.title != "" {
		return m.title
	}
	if m.entry != nil {
		return m.entry.ID
	}
	return ""
}

// IsEmpty reports whether the module has no source text.
func (m *Module) IsEmpty() bool {
	return strings.TrimSpace(m.text) == ""
}

// Extension returns the extension the module persists with, using
// defaultExt when neither the module nor its kind fixes one.
func (m *Module) Extension(defaultExt string) string {
	if m.extension != "" {
		return m.extension
	}
	if ext := kindExtensions[m.kind]; ext != "" {
		return ext
	}
	return defaultExt
}

// CustomExtension returns the extension only when it differs from what the
// kind and defaultExt would produce anyway.
func (m *Module) CustomExtension(defaultExt string) string {
	if m.extension == "" {
		return ""
	}
	base := kindExtensions[m.kind]
	if base == "" {
		base = defaultExt
	}
	if m.extension == base {
		return ""
	}
	return m.extension
}

// AsHTML renders the module as an HTML fragment anchored by the entry id.
// Rendering depends on the kind only; restored modules render like fresh
// ones.
func (m *Module) AsHTML() string {
	id := ""
	if m.entry != nil {
		id = html.EscapeString(m.entry.ID)
	}
	switch m.kind {
	case KindCode:
		return fmt.Sprintf("<div id='%s'><pre><code>\n%s\n</code></pre></div>", id, html.EscapeString(m.text))
	case KindHTML:
		return fmt.Sprintf("<article id='%s'>\n%s\n</article>", id, m.text)
	case KindMarkdown:
		return fmt.Sprintf("<article class='markdown' id='%s'><pre>\n%s\n</pre></article>", id, html.EscapeString(m.text))
	default:
		return fmt.Sprintf("<div id='%s'>\n%s\n</div>", id, m.text)
	}
}

// Key is the cache key of the module at position index of its entry.
func Key(entryID string, kind Kind, index int) string {
	return fmt.Sprintf("%s_%s_%d", entryID, kind, index)
}
