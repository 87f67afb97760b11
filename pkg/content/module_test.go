package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/kb/pkg/models"
)

func TestParseKind(t *testing.T) {
	for _, name := range Kinds() {
		k, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, Kind(name), k)
	}

	_, err := ParseKind("htm")
	var unknown *models.UnknownNameError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "html", unknown.Suggestion)
}

func TestModuleExtension(t *testing.T) {
	e := &models.Entry{ID: "a"}
	assert.Equal(t, "md", New(e, KindMarkdown, "x", "").Extension("txt"))
	assert.Equal(t, "html", New(e, KindHTML, "x", "").Extension("txt"))
	assert.Equal(t, "txt", New(e, KindGeneric, "x", "").Extension("txt"))

	code := New(e, KindCode, "x", "").WithExtension(".go")
	assert.Equal(t, "go", code.Extension("txt"))
	assert.Equal(t, "go", code.CustomExtension("txt"))
	assert.Equal(t, "", New(e, KindCode, "x", "").WithExtension("txt").CustomExtension("txt"))
}

func TestModuleAsHTML(t *testing.T) {
	e := &models.Entry{ID: "e1"}
	tests := []struct {
		name string
		mod  *Module
		want string
	}{
		{"code", New(e, KindCode, "a < b", ""), "<div id='e1'><pre><code>\na &lt; b\n</code></pre></div>"},
		{"html", New(e, KindHTML, "<p>x</p>", ""), "<article id='e1'>\n<p>x</p>\n</article>"},
		{"markdown", New(e, KindMarkdown, "# x", ""), "<article class='markdown' id='e1'><pre>\n# x\n</pre></article>"},
		{"generic", New(e, KindGeneric, "plain", ""), "<div id='e1'>\nplain\n</div>"},
		{"cached html", FromCache(e, KindHTML, "<p>x</p>", "", ""), "<article id='e1'>\n<p>x</p>\n</article>"},
		{"cached code", FromCache(e, KindCode, "a < b", "", "go"), "<div id='e1'><pre><code>\na &lt; b\n</code></pre></div>"},
		{"cached markdown", FromCache(e, KindMarkdown, "# x", "", ""), "<article class='markdown' id='e1'><pre>\n# x\n</pre></article>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mod.AsHTML())
		})
	}
}

func TestModuleDisplayTitle(t *testing.T) {
	assert.Equal(t, "Declared", New(&models.Entry{ID: "a", Title: "Declared"}, KindHTML, "", "Own").DisplayTitle())
	assert.Equal(t, "Own", New(&models.Entry{ID: "a"}, KindHTML, "", "Own").DisplayTitle())
	assert.Equal(t, "a", New(&models.Entry{ID: "a"}, KindHTML, "", "").DisplayTitle())
}

func TestPagesKeepsFirstSeenOrder(t *testing.T) {
	e := &models.Entry{ID: "a"}
	p := NewPages()
	p.Append("b", New(e, KindGeneric, "1", ""))
	p.Append("a", New(e, KindGeneric, "2", ""))
	p.Append("b", New(e, KindGeneric, "3", ""))
	p.Append("empty")

	assert.Equal(t, []string{"b", "a", "empty"}, p.IDs())
	assert.Len(t, p.Modules("b"), 2)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []string{"b", "a"}, p.NonEmpty().IDs())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "entry_markdown_2", Key("entry", KindMarkdown, 2))
}

func TestCachedModuleRendersLikeFresh(t *testing.T) {
	e := &models.Entry{ID: "e1"}
	for _, kind := range []Kind{KindCode, KindGeneric, KindHTML, KindMarkdown} {
		t.Run(string(kind), func(t *testing.T) {
			fresh := New(e, kind, "<b>text</b>", "T")
			cached := FromCache(e, kind, "<b>text</b>", "T", "")
			assert.True(t, cached.Cached())
			assert.Equal(t, fresh.AsHTML(), cached.AsHTML())
		})
	}
}
