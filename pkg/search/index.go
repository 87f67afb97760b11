// Package search keeps a SQLite full-text index of a compiled knowledge base.
package search

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grovetools/kb/pkg/content"
)

// Document is one indexed content module.
type Document struct {
	Key     string
	Page    string
	EntryID string
	Kind    string
	Title   string
	Content string
}

// Hit is a search result.
type Hit struct {
	Document
	Snippet string
}

// Index manages the search index
type Index struct {
	db     *sql.DB
	useFTS bool
}

// NewIndex opens or creates the index database at dbPath
func NewIndex(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	idx := &Index{db: db}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, err
	}

	return idx, nil
}

// init creates the database schema
func (idx *Index) init() error {
	idx.useFTS = idx.checkFTS5Support()

	metaSchema := `
	CREATE TABLE IF NOT EXISTS modules_meta (
		key TEXT PRIMARY KEY,
		page TEXT,
		entry_id TEXT,
		kind TEXT,
		title TEXT,
		content TEXT,
		size INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_modules_meta_page ON modules_meta(page);
	CREATE INDEX IF NOT EXISTS idx_modules_meta_kind ON modules_meta(kind);
	`
	if _, err := idx.db.Exec(metaSchema); err != nil {
		return err
	}

	if idx.useFTS {
		ftsSchema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS modules_fts USING fts5(
			key UNINDEXED,
			page,
			entry_id,
			kind,
			title,
			content,
			tokenize = 'porter unicode61'
		);
		`
		if _, err := idx.db.Exec(ftsSchema); err != nil {
			// Keep going with LIKE queries
			idx.useFTS = false
		}
	}

	return nil
}

// checkFTS5Support checks if the FTS5 module is compiled in
func (idx *Index) checkFTS5Support() bool {
	_, err := idx.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS fts5_test USING fts5(content)")
	if err != nil {
		return false
	}
	_, _ = idx.db.Exec("DROP TABLE IF EXISTS fts5_test")
	return true
}

// FullText reports whether FTS5 is in use.
func (idx *Index) FullText() bool { return idx.useFTS }

// DocumentsFromPages lists every module of pages as a document. Keys are
// unique within one compilation.
func DocumentsFromPages(pages *content.Pages) []Document {
	var docs []Document
	for _, page := range pages.IDs() {
		for i, m := range pages.Modules(page) {
			entryID := ""
			if m.Entry() != nil {
				entryID = m.Entry().ID
			}
			docs = append(docs, Document{
				Key:     fmt.Sprintf("%s/%s", page, content.Key(entryID, m.Kind(), i)),
				Page:    page,
				EntryID: entryID,
				Kind:    string(m.Kind()),
				Title:   m.DisplayTitle(),
				Content: m.SourceText(),
			})
		}
	}
	return docs
}

// Replace swaps the whole index content for docs in one transaction.
func (idx *Index) Replace(docs []Document) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if idx.useFTS {
		if _, err := tx.Exec("DELETE FROM modules_fts"); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("DELETE FROM modules_meta"); err != nil {
		return err
	}
	for _, d := range docs {
		if err := idx.insert(tx, d); err != nil {
			return fmt.Errorf("index %s: %w", d.Key, err)
		}
	}
	return tx.Commit()
}

// IndexDocument indexes or reindexes a single document
func (idx *Index) IndexDocument(d Document) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := idx.delete(tx, d.Key); err != nil {
		return err
	}
	if err := idx.insert(tx, d); err != nil {
		return err
	}
	return tx.Commit()
}

func (idx *Index) insert(tx *sql.Tx, d Document) error {
	if idx.useFTS {
		_, err := tx.Exec(`
			INSERT INTO modules_fts (key, page, entry_id, kind, title, content)
			VALUES (?, ?, ?, ?, ?, ?)
		`, d.Key, d.Page, d.EntryID, d.Kind, d.Title, d.Content)
		if err != nil {
			return err
		}
	}
	_, err := tx.Exec(`
		INSERT INTO modules_meta (key, page, entry_id, kind, title, content, size)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.Key, d.Page, d.EntryID, d.Kind, d.Title, d.Content, len(d.Content))
	return err
}

func (idx *Index) delete(tx *sql.Tx, key string) error {
	if idx.useFTS {
		if _, err := tx.Exec("DELETE FROM modules_fts WHERE key = ?", key); err != nil {
			return err
		}
	}
	_, err := tx.Exec("DELETE FROM modules_meta WHERE key = ?", key)
	return err
}

// Remove drops a document from the index
func (idx *Index) Remove(key string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := idx.delete(tx, key); err != nil {
		return err
	}
	return tx.Commit()
}

// Count returns the number of indexed documents.
func (idx *Index) Count() (int, error) {
	var n int
	err := idx.db.QueryRow("SELECT COUNT(*) FROM modules_meta").Scan(&n)
	return n, err
}

// Options for searching
type Options struct {
	Page  string
	Kind  string
	Limit int
}

// Search performs a full-text search
func (idx *Index) Search(query string, opts *Options) ([]*Hit, error) {
	if opts == nil {
		opts = &Options{Limit: 50}
	}
	if opts.Limit == 0 {
		opts.Limit = 50
	}

	if idx.useFTS {
		return idx.searchWithFTS(query, opts)
	}
	return idx.searchWithoutFTS(query, opts)
}

func filters(prefix string, opts *Options) ([]string, []any) {
	var conditions []string
	var args []any
	if opts.Page != "" {
		conditions = append(conditions, prefix+"page = ?")
		args = append(args, opts.Page)
	}
	if opts.Kind != "" {
		conditions = append(conditions, prefix+"kind = ?")
		args = append(args, opts.Kind)
	}
	return conditions, args
}

// searchWithFTS performs search using FTS5
func (idx *Index) searchWithFTS(query string, opts *Options) ([]*Hit, error) {
	conditions, args := filters("m.", opts)
	conditions = append(conditions, "modules_fts MATCH ?")
	args = append(args, query, opts.Limit)

	searchQuery := fmt.Sprintf(`
		SELECT
			m.key, m.page, m.entry_id, m.kind, m.title, m.content,
			snippet(modules_fts, 5, '<match>', '</match>', '...', 32) as snippet
		FROM modules_fts f
		JOIN modules_meta m ON f.key = m.key
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	rows, err := idx.db.Query(searchQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Hit
	for rows.Next() {
		h := &Hit{}
		if err := rows.Scan(&h.Key, &h.Page, &h.EntryID, &h.Kind, &h.Title, &h.Content, &h.Snippet); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// searchWithoutFTS performs search using LIKE queries on the metadata table
func (idx *Index) searchWithoutFTS(query string, opts *Options) ([]*Hit, error) {
	conditions, args := filters("", opts)

	searchPattern := "%" + strings.ReplaceAll(query, " ", "%") + "%"
	conditions = append(conditions, "(title LIKE ? OR content LIKE ?)")
	args = append(args, searchPattern, searchPattern, opts.Limit)

	searchQuery := fmt.Sprintf(`
		SELECT key, page, entry_id, kind, title, content
		FROM modules_meta
		WHERE %s
		ORDER BY key
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	rows, err := idx.db.Query(searchQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Hit
	for rows.Next() {
		h := &Hit{}
		if err := rows.Scan(&h.Key, &h.Page, &h.EntryID, &h.Kind, &h.Title, &h.Content); err != nil {
			return nil, err
		}
		h.Snippet = likeSnippet(h.Content, query)
		results = append(results, h)
	}
	return results, rows.Err()
}

// likeSnippet cuts a window around the first occurrence of the query's
// first word.
func likeSnippet(text, query string) string {
	words := strings.Fields(query)
	if len(words) == 0 {
		return ""
	}
	i := strings.Index(strings.ToLower(text), strings.ToLower(words[0]))
	if i < 0 {
		return ""
	}
	start, end := i-80, i+len(words[0])+80
	prefix, suffix := "...", "..."
	if start <= 0 {
		start, prefix = 0, ""
	}
	if end >= len(text) {
		end, suffix = len(text), ""
	}
	return prefix + text[start:i] + "<match>" + text[i:i+len(words[0])] + "</match>" + text[i+len(words[0]):end] + suffix
}

// Close closes the index
func (idx *Index) Close() error {
	return idx.db.Close()
}
