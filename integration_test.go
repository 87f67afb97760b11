//go:build integration
// +build integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/kb/pkg/service"
)

// TestIntegration compiles a project that reaches GitHub.
func TestIntegration(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=1 to run.")
	}

	root := t.TempDir()
	project := filepath.Join(root, "remote")
	require.NoError(t, os.MkdirAll(project, 0o755))
	sources := `readme:
  type: github_readme
  target: spf13/cobra
  page: readmes
docs:
  type: repo_markdown
  target: spf13/pflag
  page: docs
`
	require.NoError(t, os.WriteFile(filepath.Join(project, "sources.yml"), []byte(sources), 0o644))

	opts := service.DefaultOptions()
	opts.ProjectsFolder = root
	opts.OutputMode = "pages"
	opts.OutputFileExtension = "html"
	opts.Concurrency = 4

	svc, err := service.New(opts)
	require.NoError(t, err)

	t.Run("FirstRun", func(t *testing.T) {
		res, err := svc.RunProject(context.Background(), "remote")
		require.NoError(t, err)
		assert.Greater(t, res.Extracted, 1)
		assert.Zero(t, res.CacheHits)
		assert.FileExists(t, filepath.Join(res.OutFolder, "dist", "remote_knowledge_readmes.html"))
		assert.FileExists(t, filepath.Join(res.OutFolder, "dist", "remote_knowledge_docs.html"))
	})

	t.Run("CachedRun", func(t *testing.T) {
		res, err := svc.RunProject(context.Background(), "remote")
		require.NoError(t, err)
		assert.Zero(t, res.Extracted)
		assert.Positive(t, res.CacheHits)
	})
}
