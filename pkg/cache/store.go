package cache

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
	"github.com/grovetools/kb/pkg/textutil"
)

const (
	// IndexFile is the cache index, relative to the output folder.
	IndexFile = "cache.yml"
	// ContentDir holds the flat content files, relative to the output folder.
	ContentDir = "content"
)

// ErrIncomplete is returned by Restore when a record points at content
// files that no longer exist. Callers treat it as a cache miss.
var ErrIncomplete = errors.New("cached content is incomplete")

// Store is the cache of one project. It is safe for concurrent use.
type Store struct {
	fs         billy.Filesystem
	policy     Policy
	defaultExt string
	logger     *logrus.Entry

	mu    sync.Mutex
	index Index
}

// NewStore creates a store over fs, which is rooted at the project's output
// folder.
func NewStore(fs billy.Filesystem, policy Policy, defaultExt string, logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Store{
		fs:         fs,
		policy:     policy,
		defaultExt: defaultExt,
		logger:     logger.WithField("component", "cache"),
		index:      Index{},
	}
}

// Enabled reports whether the store reads and writes anything at all.
func (s *Store) Enabled() bool { return s.policy.Enabled }

// Load reads the index. It never fails: a missing or unreadable index
// leaves the store empty.
func (s *Store) Load() {
	if !s.policy.Enabled {
		return
	}
	data, err := util.ReadFile(s.fs, IndexFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WithError(err).Warn("Could not read cache index, starting empty")
		}
		return
	}
	idx := Index{}
	if err := yaml.Unmarshal(data, &idx); err != nil {
		s.logger.WithError(err).Warn("Could not parse cache index, starting empty")
		return
	}
	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
	s.logger.WithField("pages", len(idx)).Debug("Loaded cache index")
}

// Save writes the index. Callers log the error and carry on.
func (s *Store) Save() error {
	if !s.policy.Enabled {
		return nil
	}
	s.mu.Lock()
	data, err := yaml.Marshal(s.index)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode cache index: %w", err)
	}
	if err := util.WriteFile(s.fs, IndexFile, data, 0o644); err != nil {
		return fmt.Errorf("write cache index: %w", err)
	}
	return nil
}

// Lookup returns a copy of the stored record of an entry.
func (s *Store) Lookup(page, entryID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.index.lookup(page, entryID)
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// IsValid reports whether the stored record of an entry may be reused.
func (s *Store) IsValid(page, entryID, hash string, now time.Time) bool {
	s.mu.Lock()
	r, _ := s.index.lookup(page, entryID)
	s.mu.Unlock()
	return s.policy.Valid(r, hash, now)
}

// Restore reads back the content modules of an entry. Every referenced
// file must exist, otherwise ErrIncomplete is returned and nothing is
// reused. An unknown stored kind is a hard error.
func (s *Store) Restore(page, entryID string, segments []string, entry *models.Entry) ([]*content.Module, error) {
	s.mu.Lock()
	r, ok := s.index.lookup(page, entryID)
	var rec Record
	if ok {
		rec = *r
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrIncomplete
	}

	dir := s.dirFor(segments)
	modules := make([]*content.Module, 0, len(rec.Content))
	for _, key := range rec.Keys() {
		cr := rec.Content[key]
		kind, err := content.ParseKind(cr.Type)
		if err != nil {
			return nil, fmt.Errorf("cache record %s/%s: %w", page, entryID, err)
		}
		ext := cr.Extension
		probe := content.New(entry, kind, "", "")
		if ext != "" {
			probe.WithExtension(ext)
		}
		name := path.Join(dir, textutil.SanitizeSegment(key)+"."+probe.Extension(s.defaultExt))
		data, err := util.ReadFile(s.fs, name)
		if err != nil {
			s.logger.WithField("file", name).Debug("Cached content file missing")
			return nil, fmt.Errorf("%w: %s", ErrIncomplete, name)
		}
		modules = append(modules, content.FromCache(entry, kind, string(data), cr.Title, ext))
	}
	return modules, nil
}

// Record writes the content files of a freshly extracted entry and stores
// its fingerprint and timestamp.
func (s *Store) Record(page, entryID, hash string, now time.Time, segments []string, modules []*content.Module) error {
	if !s.policy.Enabled {
		return nil
	}
	dir := s.dirFor(segments)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create content folder %s: %w", dir, err)
	}

	rec := &Record{Hash: hash, Timestamp: now.Unix(), Content: map[string]ContentRecord{}}
	for i, m := range modules {
		key := content.Key(entryID, m.Kind(), i)
		name := path.Join(dir, textutil.SanitizeSegment(key)+"."+m.Extension(s.defaultExt))
		if err := util.WriteFile(s.fs, name, []byte(m.SourceText()), 0o644); err != nil {
			return fmt.Errorf("write content file %s: %w", name, err)
		}
		rec.Content[key] = ContentRecord{
			Title:     m.Title(),
			Type:      string(m.Kind()),
			Extension: m.CustomExtension(s.defaultExt),
		}
	}

	s.mu.Lock()
	s.index.put(page, entryID, rec)
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the index.
func (s *Store) Snapshot() Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Index, len(s.index))
	for pid, p := range s.index {
		cp := make(Page, len(p))
		for eid, r := range p {
			rc := *r
			cp[eid] = &rc
		}
		out[pid] = cp
	}
	return out
}

func (s *Store) dirFor(segments []string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, ContentDir)
	for _, seg := range segments {
		parts = append(parts, textutil.SanitizeSegment(seg))
	}
	return path.Join(parts...)
}
