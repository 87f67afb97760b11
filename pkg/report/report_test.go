package report

import (
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/kb/pkg/walker"
)

func TestCollector(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCollector("demo", start)
	_, err := uuid.Parse(c.report.RunID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, seg := range [][]string{{"p", "b"}, {"p", "a"}, {"p", "c"}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Observe(walker.Event{EntryID: seg[1], Segments: seg, Extractor: "code", Duration: 1500 * time.Millisecond, Sizes: []int{3}})
		}()
	}
	wg.Wait()

	r := c.Finish(&walker.Result{Extracted: 2, CacheHits: 1}, []string{"dist/demo.txt"}, start.Add(2*time.Second))
	assert.Equal(t, int64(2000), r.DurationMS)
	assert.Equal(t, 2, r.Extracted)
	assert.Equal(t, 1, r.CacheHits)
	require.Len(t, r.Entries, 3)
	assert.Equal(t, []string{"p/a", "p/b", "p/c"}, []string{r.Entries[0].Path, r.Entries[1].Path, r.Entries[2].Path})
	assert.Equal(t, int64(1500), r.Entries[0].DurationMS)

	fs := memfs.New()
	require.NoError(t, Write(fs, File, r))
	data, err := util.ReadFile(fs, File)
	require.NoError(t, err)
	var back Report
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, r.RunID, back.RunID)
	assert.Equal(t, "demo", back.Project)
	assert.Len(t, back.Entries, 3)
}
