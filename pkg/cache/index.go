// Package cache persists extracted content between runs: a YAML index of
// entry fingerprints and timestamps, plus one flat file per content module.
package cache

import (
	"sort"
	"strconv"
	"strings"
)

// ContentRecord describes one persisted content module.
type ContentRecord struct {
	Title     string `yaml:"title"`
	Type      string `yaml:"type"`
	Extension string `yaml:"extension,omitempty"`
}

// Record is the cache state of one entry.
type Record struct {
	Hash      string                   `yaml:"hash"`
	Timestamp int64                    `yaml:"timestamp"`
	Content   map[string]ContentRecord `yaml:"content"`
}

// Page maps entry ids to their records.
type Page map[string]*Record

// Index maps page ids to pages.
type Index map[string]Page

func (idx Index) lookup(page, entryID string) (*Record, bool) {
	p, ok := idx[page]
	if !ok {
		return nil, false
	}
	r, ok := p[entryID]
	return r, ok && r != nil
}

func (idx Index) put(page, entryID string, r *Record) {
	p, ok := idx[page]
	if !ok {
		p = Page{}
		idx[page] = p
	}
	p[entryID] = r
}

// Keys returns the content keys of a record ordered by their module index.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.Content))
	for k := range r.Content {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keyIndex(keys[i]), keyIndex(keys[j])
		if a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

// keyIndex parses the trailing "_<n>" of a content key.
func keyIndex(key string) int {
	i := strings.LastIndexByte(key, '_')
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return -1
	}
	return n
}
