package output

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/kb/pkg/search"
)

// IndexFile is the search database of a project, relative to its output
// folder.
func IndexFile(project string) string {
	return path.Join(DistDir, project+"_knowledge.db")
}

type indexEngine struct{}

func (indexEngine) Name() string { return "index" }

func (indexEngine) Write(_ context.Context, c *Context) ([]string, error) {
	if c.OutFolder == "" {
		return nil, errors.New("index output needs an output folder on disk")
	}
	if err := c.FS.MkdirAll(DistDir, 0o755); err != nil {
		return nil, err
	}
	rel := IndexFile(c.Project)
	idx, err := search.NewIndex(filepath.Join(c.OutFolder, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	docs := search.DocumentsFromPages(c.Pages)
	if err := idx.Replace(docs); err != nil {
		return nil, fmt.Errorf("fill index: %w", err)
	}
	c.logger().WithFields(logrus.Fields{"file": rel, "documents": len(docs), "fts": idx.FullText()}).Info("Wrote search index")
	return []string{rel}, nil
}
