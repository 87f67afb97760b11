package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestPolicyValid(t *testing.T) {
	rec := &Record{Hash: "ABCDEF", Timestamp: epoch.Unix()}
	tests := []struct {
		name   string
		policy Policy
		rec    *Record
		hash   string
		now    time.Time
		want   bool
	}{
		{"disabled", Policy{Enabled: false}, rec, "abcdef", epoch, false},
		{"no record", Policy{Enabled: true}, nil, "abcdef", epoch, false},
		{"fresh", Policy{Enabled: true, ExpireAfter: time.Minute}, rec, "x", epoch.Add(30 * time.Second), true},
		{"exactly at limit", Policy{Enabled: true, ExpireAfter: time.Minute}, rec, "x", epoch.Add(time.Minute), true},
		{"expired", Policy{Enabled: true, ExpireAfter: time.Minute}, rec, "x", epoch.Add(61 * time.Second), false},
		{"expiry disabled", Policy{Enabled: true}, rec, "x", epoch.Add(1000 * time.Hour), true},
		{"hash ignored", Policy{Enabled: true}, rec, "different", epoch, true},
		{"hash case insensitive", Policy{Enabled: true, InvalidateOnChange: true}, rec, "abcdef", epoch, true},
		{"hash mismatch", Policy{Enabled: true, InvalidateOnChange: true}, rec, "abcdee", epoch, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Valid(tt.rec, tt.hash, tt.now))
		})
	}
}

func newStore(policy Policy) *Store {
	return NewStore(memfs.New(), policy, "txt", nil)
}

func TestRecordAndRestore(t *testing.T) {
	s := newStore(Policy{Enabled: true})
	entry := &models.Entry{ID: "e1", Page: "p"}
	segs := []string{"p", "parent", "e1"}
	mods := []*content.Module{
		content.New(entry, content.KindMarkdown, "# one", "First"),
		content.New(entry, content.KindCode, "package x", "").WithExtension("go"),
		content.New(entry, content.KindGeneric, "plain", ""),
	}
	require.NoError(t, s.Record("p", "e1", "h", epoch, segs, mods))

	rec, ok := s.Lookup("p", "e1")
	require.True(t, ok)
	assert.Equal(t, epoch.Unix(), rec.Timestamp)
	assert.Equal(t, ContentRecord{Title: "First", Type: "markdown"}, rec.Content["e1_markdown_0"])
	assert.Equal(t, "go", rec.Content["e1_code_1"].Extension)

	for _, name := range []string{
		"content/p/parent/e1/e1_markdown_0.md",
		"content/p/parent/e1/e1_code_1.go",
		"content/p/parent/e1/e1_generic_2.txt",
	} {
		_, err := s.fs.Stat(name)
		assert.NoError(t, err, name)
	}

	restored, err := s.Restore("p", "e1", segs, entry)
	require.NoError(t, err)
	require.Len(t, restored, 3)
	assert.Equal(t, content.KindMarkdown, restored[0].Kind())
	assert.Equal(t, "# one", restored[0].SourceText())
	assert.Equal(t, "First", restored[0].Title())
	assert.True(t, restored[0].Cached())
	assert.Equal(t, "package x", restored[1].SourceText())
	assert.Equal(t, "go", restored[1].Extension("txt"))
	assert.Same(t, entry, restored[2].Entry())
}

func TestRestoreMissingFileIsFullMiss(t *testing.T) {
	s := newStore(Policy{Enabled: true})
	entry := &models.Entry{ID: "e1"}
	segs := []string{models.NoPage, "e1"}
	mods := []*content.Module{
		content.New(entry, content.KindHTML, "<p>a</p>", ""),
		content.New(entry, content.KindHTML, "<p>b</p>", ""),
	}
	require.NoError(t, s.Record("", "e1", "h", epoch, segs, mods))
	require.NoError(t, s.fs.Remove("content/_no_page_id_/e1/e1_html_1.html"))

	restored, err := s.Restore("", "e1", segs, entry)
	assert.True(t, errors.Is(err, ErrIncomplete))
	assert.Nil(t, restored)
}

func TestRestoreUnknownKindIsFatal(t *testing.T) {
	s := newStore(Policy{Enabled: true})
	s.index.put("p", "e1", &Record{Content: map[string]ContentRecord{"e1_pdf_0": {Type: "pdf"}}})

	_, err := s.Restore("p", "e1", []string{"p", "e1"}, &models.Entry{ID: "e1"})
	var unknown *models.UnknownNameError
	require.True(t, errors.As(err, &unknown))
	assert.False(t, errors.Is(err, ErrIncomplete))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	fs := memfs.New()
	s := NewStore(fs, Policy{Enabled: true}, "txt", nil)
	entry := &models.Entry{ID: "e1", Page: "p"}
	require.NoError(t, s.Record("p", "e1", "beef", epoch, []string{"p", "e1"}, []*content.Module{
		content.New(entry, content.KindHTML, "<p>x</p>", "T"),
	}))
	require.NoError(t, s.Save())

	data, err := util.ReadFile(fs, IndexFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hash: beef")

	reloaded := NewStore(fs, Policy{Enabled: true}, "txt", nil)
	reloaded.Load()
	assert.True(t, reloaded.IsValid("p", "e1", "BEEF", epoch))
	assert.Equal(t, s.Snapshot(), reloaded.Snapshot())
}

func TestLoadToleratesGarbage(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, IndexFile, []byte("{{not yaml"), 0o644))
	s := NewStore(fs, Policy{Enabled: true}, "txt", nil)
	s.Load()
	assert.Empty(t, s.Snapshot())
}

func TestDisabledStoreWritesNothing(t *testing.T) {
	fs := memfs.New()
	s := NewStore(fs, Policy{Enabled: false}, "txt", nil)
	entry := &models.Entry{ID: "e1"}
	require.NoError(t, s.Record("", "e1", "h", epoch, []string{"x", "e1"}, []*content.Module{
		content.New(entry, content.KindHTML, "a", ""),
	}))
	require.NoError(t, s.Save())

	infos, err := fs.ReadDir("/")
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.False(t, s.IsValid("", "e1", "h", epoch))
}

func TestRecordKeysOrderedByIndex(t *testing.T) {
	r := &Record{Content: map[string]ContentRecord{
		"e_html_10": {}, "e_html_2": {}, "e_code_0": {},
	}}
	assert.Equal(t, []string{"e_code_0", "e_html_2", "e_html_10"}, r.Keys())
}
