package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/fetch"
	"github.com/grovetools/kb/pkg/models"
)

type call struct {
	stdin string
	name  string
	args  []string
}

// fakeRunner records commands and answers with a fixed output.
type fakeRunner struct {
	calls  []call
	output string
	err    error
}

func (f *fakeRunner) run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{stdin: string(stdin), name: name, args: args})
	return []byte(f.output), f.err
}

func entryWith(id string, extra map[string]any) *models.Entry {
	e := models.EntryFromMap(id, extra)
	return &e
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func extract(t *testing.T, name string, entry *models.Entry, xctx *Context) []*content.Module {
	t.Helper()
	x, err := Default().New(name, entry, xctx)
	require.NoError(t, err)
	require.NoError(t, x.Init(context.Background()))
	return x.ContentModules()
}

func TestRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{
		"code", "download", "html", "htmlFromMarkdown",
		"markdown", "markdownFromHtml", "redditThread", "wikimedia",
	}, r.Names())
	assert.NotEmpty(t, r.Describe("code"))

	_, err := r.New("markdwn", entryWith("a", nil), &Context{})
	var unknown *models.UnknownNameError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "markdown", unknown.Suggestion)
}

func TestDownloadFromFile(t *testing.T) {
	path := writeFile(t, "page.txt", "plain body")

	t.Run("falls back to entry id for the title", func(t *testing.T) {
		mods := extract(t, "download", entryWith("a", map[string]any{"url": path}), &Context{EntryID: "a"})
		require.Len(t, mods, 1)
		assert.Equal(t, content.KindHTML, mods[0].Kind())
		assert.Equal(t, "plain body", mods[0].SourceText())
		assert.Equal(t, "a", mods[0].Title())
	})

	t.Run("uses the entry title", func(t *testing.T) {
		mods := extract(t, "download", entryWith("a", map[string]any{"url": path, "title": "Doc"}), &Context{EntryID: "a"})
		assert.Equal(t, "Doc", mods[0].Title())
	})

	t.Run("missing url", func(t *testing.T) {
		x, err := Default().New("download", entryWith("a", nil), &Context{})
		require.NoError(t, err)
		assert.Error(t, x.Init(context.Background()))
	})
}

func TestMarkdownFrontMatter(t *testing.T) {
	path := writeFile(t, "doc.md", "---\ntitle: From Front Matter\n---\n# Body\n")
	mods := extract(t, "markdown", entryWith("m", map[string]any{"url": path}), &Context{})
	require.Len(t, mods, 1)
	assert.Equal(t, content.KindMarkdown, mods[0].Kind())
	assert.Equal(t, "From Front Matter", mods[0].Title())
	assert.Equal(t, "# Body\n", mods[0].SourceText())
}

func TestHTMLOverHTTP(t *testing.T) {
	var gotCookie, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotHeader = r.Header.Get("X-Test")
		w.Write([]byte(`<html><head><title>T</title></head><body><nav>menu</nav><article class="post main"><p>kept</p></article></body></html>`))
	}))
	defer srv.Close()

	debug := t.TempDir()
	xctx := &Context{EntryID: "h", Fetcher: fetch.New(fetch.Options{}), Options: Options{DebugFolder: debug}}
	entry := entryWith("h", map[string]any{
		"url":         srv.URL,
		"domSelector": "article.post",
		"headers":     map[string]any{"X-Test": "yes"},
		"cookies": map[string]any{
			"session": "abc",
			"theme":   map[string]any{"value": "dark"},
		},
	})
	mods := extract(t, "html", entry, xctx)
	require.Len(t, mods, 1)
	assert.Equal(t, "<p>kept</p>", mods[0].SourceText())
	assert.Equal(t, "session=abc; theme=dark", gotCookie)
	assert.Equal(t, "yes", gotHeader)
	assert.FileExists(t, filepath.Join(debug, "h.html"))

	t.Run("no match keeps going over HTTP", func(t *testing.T) {
		entry := entryWith("h", map[string]any{"url": srv.URL, "domSelector": "#missing"})
		mods := extract(t, "html", entry, &Context{Fetcher: fetch.New(fetch.Options{})})
		assert.Empty(t, mods[0].SourceText())
	})
}

func TestHTMLInBrowser(t *testing.T) {
	runner := &fakeRunner{output: `<html><head><title> Rendered </title></head><body><article>js content</article></body></html>`}
	xctx := &Context{Run: runner.run, Options: Options{ChromeExecutable: "/opt/chrome"}}

	t.Run("renders and selects", func(t *testing.T) {
		entry := entryWith("c", map[string]any{"url": "https://example.com/a", "browser": true, "domSelector": "article"})
		mods := extract(t, "html", entry, xctx)
		assert.Equal(t, "js content", mods[0].SourceText())
		assert.Equal(t, "Rendered", mods[0].Title())
		require.Len(t, runner.calls, 1)
		assert.Equal(t, "/opt/chrome", runner.calls[0].name)
		assert.Contains(t, runner.calls[0].args, "--dump-dom")
		assert.Equal(t, "https://example.com/a", runner.calls[0].args[len(runner.calls[0].args)-1])
	})

	t.Run("legacy puppeteer flag with useTitle off", func(t *testing.T) {
		entry := entryWith("c", map[string]any{"url": "https://example.com/a", "puppeteer": true, "useTitle": false})
		mods := extract(t, "html", entry, xctx)
		assert.Empty(t, mods[0].Title())
	})

	t.Run("missing element is an error", func(t *testing.T) {
		entry := entryWith("c", map[string]any{"url": "https://example.com/a", "browser": true, "domSelector": "#nope"})
		x, err := Default().New("html", entry, xctx)
		require.NoError(t, err)
		assert.Error(t, x.Init(context.Background()))
	})
}

func TestSelectInnerHTML(t *testing.T) {
	doc := `<main><div id="a" class="x y"><span>one</span></div><div class="y"><b>two</b></div></main>`
	tests := []struct {
		selector string
		want     string
		ok       bool
	}{
		{"#a", "<span>one</span>", true},
		{"div.y", "<span>one</span>", true},
		{"main .y b", "two", true},
		{"div.x.y", "<span>one</span>", true},
		{"section", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, ok, err := SelectInnerHTML(doc, tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, _, err := SelectInnerHTML(doc, "div.")
	assert.Error(t, err)
}

func TestMarkdownToHTML(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		start int
		want  string
	}{
		{"single paragraph is unwrapped", "hello *x*", 3, "hello <em>x</em>"},
		{"headings shift", "# Top\n\ntext", 3, "<h3>Top</h3>\n<p>text</p>"},
		{"headings cap at h6", "##### Deep", 4, "<h6>Deep</h6>"},
		{"no shift", "## Same", 1, "<h2>Same</h2>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkdownToHTML(tt.src, tt.start))
		})
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	got, err := HTMLToMarkdown(`<h2>Title</h2><p>Some <strong>bold</strong> text</p><ul><li>one</li><li>two</li></ul><pre><code class="language-go">x := 1</code></pre>`)
	require.NoError(t, err)
	assert.Equal(t, "## Title\n\nSome **bold** text\n\n- one\n- two\n\n```go\nx := 1\n```", got)

	got, err = HTMLToMarkdown(`<p>see <a href="https://go.dev">Go</a> and <code>fmt</code></p><script>alert(1)</script>`)
	require.NoError(t, err)
	assert.Equal(t, "see [Go](https://go.dev) and `fmt`", got)

	got, err = HTMLToMarkdown(`<table><tr><th>a</th><th>b</th></tr><tr><td>1</td><td>2</td></tr></table>`)
	require.NoError(t, err)
	assert.Equal(t, "| a | b |\n| --- | --- |\n| 1 | 2 |", got)
}

func TestConverterExtractors(t *testing.T) {
	md := writeFile(t, "readme.md", "# Readme\n\nbody")
	mods := extract(t, "htmlFromMarkdown", entryWith("r", map[string]any{"url": md}), &Context{})
	assert.Equal(t, content.KindHTML, mods[0].Kind())
	assert.Equal(t, "<h3>Readme</h3>\n<p>body</p>", mods[0].SourceText())

	page := writeFile(t, "page.html", "<h1>Page</h1><p>text</p>")
	mods = extract(t, "markdownFromHtml", entryWith("p", map[string]any{"url": page}), &Context{})
	assert.Equal(t, content.KindMarkdown, mods[0].Kind())
	assert.Equal(t, "# Page\n\ntext", mods[0].SourceText())
}

func TestCodeExtractor(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		want    string
		wantExt string
	}{
		{"json is compacted", "a.json", "{\n  \"a\": [1, 2]\n}\n", `{"a":[1,2]}`, "json"},
		{"broken json is kept", "b.json", "{oops", "{oops", "json"},
		{"yaml is re-serialized", "c.yaml", "# comment\nkey:   value\nlist: [a, b]\n", "key: value\nlist: [a, b]", "yml"},
		{"go is formatted", "d.go", "package d\nfunc  F( ) {\n\n}\n", "package d\n\nfunc F() {\n}", "go"},
		{"js is minified", "e.mjs", "const a = 1   \n\n\nconst b = 2\n", "const a = 1\nconst b = 2", "mjs"},
		{"unknown extensions pass through", "f.txt", "  keep  me  ", "  keep  me  ", "txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.body)
			mods := extract(t, "code", entryWith("c", map[string]any{"url": path}), &Context{})
			require.Len(t, mods, 1)
			assert.Equal(t, content.KindCode, mods[0].Kind())
			assert.Equal(t, tt.want, mods[0].SourceText())
			assert.Equal(t, tt.wantExt, mods[0].Extension("html"))
		})
	}
}

func TestFormatterKey(t *testing.T) {
	for ext, want := range map[string]string{
		"js": "ts", "tsx": "ts", "cjs": "ts", "mts": "ts",
		"YAML": "yml", "markdown": "md", "py": "py", "json": "json",
	} {
		assert.Equal(t, want, FormatterKey(ext), ext)
	}
}

func TestWikimedia(t *testing.T) {
	path := writeFile(t, "page.wiki", "== Heading ==")
	runner := &fakeRunner{output: "## Heading\n"}
	mods := extract(t, "wikimedia", entryWith("w", map[string]any{"url": path}), &Context{Run: runner.run, Options: Options{PandocPath: "/bin/pandoc"}})

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/bin/pandoc", runner.calls[0].name)
	assert.Equal(t, "== Heading ==", runner.calls[0].stdin)
	assert.Equal(t, []string{"--from", "mediawiki", "--to", "markdown"}, runner.calls[0].args[:4])
	assert.Equal(t, content.KindMarkdown, mods[0].Kind())
	assert.Equal(t, "## Heading\n", mods[0].SourceText())

	failing := &fakeRunner{err: errors.New("boom")}
	x, err := Default().New("wikimedia", entryWith("w", map[string]any{"url": path}), &Context{Run: failing.run})
	require.NoError(t, err)
	assert.Error(t, x.Init(context.Background()))
	assert.Equal(t, "pandoc", failing.calls[0].name)
}

const threadJSON = `[
 {"data":{"children":[{"kind":"t3","data":{"title":"Hello","author":"op","subreddit_name_prefixed":"r/golang","score":10,"is_self":true,"selftext":"# Body"}}]}},
 {"data":{"children":[
  {"kind":"t1","data":{"id":"c1","author":"a","score":5,"body":"first","replies":{"data":{"children":[
   {"kind":"t1","data":{"id":"c2","author":"b","score":3,"body":"reply","replies":""}}]}}}},
  {"kind":"t1","data":{"id":"c3","author":"c","score":-2,"body":"low","replies":{"data":{"children":[
   {"kind":"t1","data":{"id":"c4","author":"d","score":9,"body":"hidden","replies":""}}]}}}},
  {"kind":"more","data":{"count":4}}
 ]}}
]`

func TestRenderThread(t *testing.T) {
	minScore := int64(0)
	out, title, err := renderThread(threadJSON, &minScore)
	require.NoError(t, err)
	assert.Equal(t, "Hello", title)
	assert.True(t, strings.HasPrefix(out, "<article>"))
	assert.Contains(t, out, "#0 by op to r/golang (Score: 10)")
	assert.Contains(t, out, "<h4>Body</h4>")
	assert.Contains(t, out, `<div class="comment-depth-0"><p class='comment'><h3>#1 by a (Score: 5)</h3>`)
	assert.Contains(t, out, `<div class="comment-depth-1"><p class='comment'><h3>#2 by b in reply to #1 (Score: 3)</h3>`)
	assert.NotContains(t, out, "low")
	assert.NotContains(t, out, "hidden")

	t.Run("without a minimum every comment is kept", func(t *testing.T) {
		out, _, err := renderThread(threadJSON, nil)
		require.NoError(t, err)
		assert.Contains(t, out, "#3 by c (Score: -2)")
		assert.Contains(t, out, "#4 by d in reply to #3 (Score: 9)")
	})

	t.Run("link posts are rejected", func(t *testing.T) {
		_, _, err := renderThread(strings.Replace(threadJSON, `"is_self":true`, `"is_self":false`, 1), nil)
		assert.Error(t, err)
	})
}

// rewriteTransport sends every request to a test server.
type rewriteTransport struct {
	target *url.URL
	seen   []string
}

func (r *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.seen = append(r.seen, req.URL.String())
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestRedditThreadExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(threadJSON))
	}))
	defer srv.Close()
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	transport := &rewriteTransport{target: target}
	xctx := &Context{Fetcher: fetch.New(fetch.Options{Client: &http.Client{Transport: transport}})}

	mods := extract(t, "redditThread", entryWith("r", map[string]any{"url": "abc123", "commentsLimit": 50, "minimumScore": 0}), xctx)
	require.Len(t, mods, 1)
	assert.Equal(t, content.KindHTML, mods[0].Kind())
	assert.Equal(t, "[Reddit Thread] Hello", mods[0].Title())
	assert.NotContains(t, mods[0].SourceText(), "hidden")
	assert.Equal(t, []string{"https://reddit.com/comments/abc123.json?limit=50"}, transport.seen)

	extract(t, "redditThread", entryWith("r", map[string]any{"url": "https://www.reddit.com/r/golang/comments/abc123/hello"}), xctx)
	assert.Equal(t, "https://www.reddit.com/r/golang/comments/abc123/hello.json?limit=200", transport.seen[1])
}
