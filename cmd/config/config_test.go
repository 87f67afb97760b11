package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("projects-folder", "", "")
	fs.Bool("debug", false, "")
	AddCompileFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	opts, err := Load(viper.New(), newFlags(t, "--projects-folder", "/data/kb"))
	require.NoError(t, err)

	assert.Equal(t, "/data/kb", opts.ProjectsFolder)
	assert.True(t, opts.UseCache)
	assert.Equal(t, 10080, opts.InvalidateCacheAfterMinutes)
	assert.False(t, opts.InvalidateCacheOnEntryChange)
	assert.Equal(t, "txt", opts.OutputFileExtension)
	assert.Equal(t, "single", opts.OutputMode)
	assert.Equal(t, "pandoc", opts.PandocPath)
	assert.Equal(t, 1, opts.Concurrency)
	assert.True(t, opts.MinifyWholeDocument)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	projects := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projects, FileName), []byte(
		"output_mode: pages\noutput_file_extension: html\nconcurrency: 4\nuse_cache: false\n"), 0o644))

	t.Setenv("KB_OUTPUT_FILE_EXTENSION", "md")
	t.Setenv("KB_CONCURRENCY", "8")

	opts, err := Load(viper.New(), newFlags(t, "--projects-folder", projects, "--concurrency", "2"))
	require.NoError(t, err)

	assert.Equal(t, "pages", opts.OutputMode, "config file")
	assert.False(t, opts.UseCache, "config file")
	assert.Equal(t, "md", opts.OutputFileExtension, "env beats config file")
	assert.Equal(t, 2, opts.Concurrency, "flag beats env")
}

func TestLoadExplicitConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("projects_folder: /srv/kb\noutput_mode: index\n"), 0o644))

	opts, err := Load(viper.New(), newFlags(t, "--config", file))
	require.NoError(t, err)
	assert.Equal(t, "/srv/kb", opts.ProjectsFolder)
	assert.Equal(t, "index", opts.OutputMode)

	_, err = Load(viper.New(), newFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "invalidate_cache_after_minutes", Key("invalidate-cache-after-minutes"))
	assert.Equal(t, "debug", Key("debug"))
}
