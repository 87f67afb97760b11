// Package report records what a project run did, for debugging.
package report

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/kb/pkg/walker"
)

// File is the report's name relative to the project output folder.
const File = "report.yml"

// Entry is the report line of one terminal entry.
type Entry struct {
	ID         string `yaml:"id"`
	Page       string `yaml:"page,omitempty"`
	Path       string `yaml:"path"`
	Extractor  string `yaml:"extractor"`
	Cached     bool   `yaml:"cached"`
	DurationMS int64  `yaml:"duration_ms"`
	Sizes      []int  `yaml:"sizes,flow"`
}

// Report is the whole run.
type Report struct {
	RunID      string    `yaml:"run_id"`
	Project    string    `yaml:"project"`
	StartedAt  time.Time `yaml:"started_at"`
	DurationMS int64     `yaml:"duration_ms"`
	Extracted  int       `yaml:"extracted"`
	CacheHits  int       `yaml:"cache_hits"`
	Skipped    int       `yaml:"skipped"`
	Outputs    []string  `yaml:"outputs,omitempty"`
	Entries    []Entry   `yaml:"entries"`
}

// Collector gathers walker events. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	report  Report
	started time.Time
}

// NewCollector starts a report for project.
func NewCollector(project string, started time.Time) *Collector {
	return &Collector{
		report:  Report{RunID: uuid.NewString(), Project: project, StartedAt: started.UTC()},
		started: started,
	}
}

// Observe records one walker event.
func (c *Collector) Observe(e walker.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Entries = append(c.report.Entries, Entry{
		ID:         e.EntryID,
		Page:       e.Page,
		Path:       strings.Join(e.Segments, "/"),
		Extractor:  e.Extractor,
		Cached:     e.Cached,
		DurationMS: e.Duration.Milliseconds(),
		Sizes:      e.Sizes,
	})
}

// Finish completes the report. Entries are ordered by tree path so that
// parallel walks report deterministically.
func (c *Collector) Finish(res *walker.Result, outputs []string, now time.Time) Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.report
	r.Entries = append([]Entry(nil), c.report.Entries...)
	sort.SliceStable(r.Entries, func(i, j int) bool { return r.Entries[i].Path < r.Entries[j].Path })
	r.DurationMS = now.Sub(c.started).Milliseconds()
	if res != nil {
		r.Extracted = res.Extracted
		r.CacheHits = res.CacheHits
		r.Skipped = res.Skipped
	}
	r.Outputs = outputs
	return r
}

// Write stores the report as YAML.
func Write(fs billy.Filesystem, name string, r Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return util.WriteFile(fs, name, data, 0o644)
}
