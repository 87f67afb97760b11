package models

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSources = `
ponyTutorial:
  page: rentry
  type: rentry
  target: fluffscaler-pdxl
loraMakingGuide:
  page: civitai
  type: civitai_article
  target: 4
  cookies:
    - name: session
      value: abc
localNotes:
  id: notes
  extractor: markdown
  url: /tmp/notes.md
`

func TestParseEntriesPreservesOrder(t *testing.T) {
	entries, err := ParseEntries([]byte(sampleSources))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"ponyTutorial", "loraMakingGuide", "notes"}, entries.IDs())

	pony := entries[0]
	assert.Equal(t, "rentry", pony.Page)
	assert.Equal(t, "rentry", pony.Type)
	assert.Equal(t, "fluffscaler-pdxl", pony.TargetString())

	lora := entries[1]
	assert.Equal(t, "4", lora.TargetString())
	cookies, ok := lora.Get("cookies")
	assert.True(t, ok)
	assert.Len(t, cookies, 1)

	assert.Equal(t, "/tmp/notes.md", entries[2].String("url"))
}

func TestParseEntriesSequence(t *testing.T) {
	entries, err := ParseEntries([]byte(`[{"id": "a", "extractor": "download"}, {"id": "b", "extractor": "code"}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entries.IDs())
	assert.Equal(t, "code", entries[1].Extractor)
}

func TestParseEntriesRejectsScalars(t *testing.T) {
	_, err := ParseEntries([]byte("just a string"))
	assert.Error(t, err)

	_, err = ParseEntries([]byte("a: 3"))
	assert.Error(t, err)
}

func TestLoadEntriesFileWrapsErrors(t *testing.T) {
	_, err := LoadEntriesFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, errors.Is(err, ErrEntriesLoad))

	dir := t.TempDir()
	_, err = FindEntriesFile(dir)
	assert.True(t, errors.Is(err, ErrEntriesLoad))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.json"), []byte(`{"x": {"extractor": "download"}}`), 0644))
	path, err := FindEntriesFile(dir)
	require.NoError(t, err)
	entries, err := LoadEntriesFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, entries.IDs())
}

func TestEntryCloneIsDeep(t *testing.T) {
	e := EntryFromMap("a", map[string]any{
		"target": map[string]any{"owner": "o", "repo": "r"},
		"url":    "https://example.com",
	})
	c := e.Clone()
	c.Target.(map[string]any)["owner"] = "changed"
	c.Set("url", "other")

	assert.Equal(t, "o", e.Target.(map[string]any)["owner"])
	assert.Equal(t, "https://example.com", e.String("url"))
}

func TestEntryHasTarget(t *testing.T) {
	tests := []struct {
		target any
		want   bool
	}{
		{nil, false},
		{"", false},
		{0, false},
		{false, false},
		{"x", true},
		{4, true},
		{map[string]any{"owner": "o"}, true},
	}
	for _, tt := range tests {
		e := Entry{Target: tt.target}
		if got := e.HasTarget(); got != tt.want {
			t.Errorf("HasTarget(%#v) = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestEntryFieldsOmitsEmpty(t *testing.T) {
	e := Entry{ID: "a", Extractor: "code", Extra: map[string]any{"url": "u"}}
	assert.Equal(t, map[string]any{"id": "a", "extractor": "code", "url": "u"}, e.Fields())
}

func TestUnknownNameErrorSuggests(t *testing.T) {
	err := NewUnknownNameError("extractor", "markdwn", []string{"code", "markdown", "html"})
	assert.Equal(t, "markdown", err.Suggestion)
	assert.Contains(t, err.Error(), `did you mean "markdown"`)

	err = NewUnknownNameError("extractor", "zzzzzzzz", []string{"code"})
	assert.Empty(t, err.Suggestion)
	assert.Equal(t, `unknown extractor "zzzzzzzz"`, err.Error())
}
