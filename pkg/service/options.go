package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/grovetools/kb/pkg/models"
	"github.com/grovetools/kb/pkg/output"
)

// Options are the settings of a compilation run. Keys match the config
// file and the KB_ environment variables.
type Options struct {
	ProjectsFolder               string  `mapstructure:"projects_folder" validate:"required"`
	UseCache                     bool    `mapstructure:"use_cache"`
	InvalidateCacheAfterMinutes  int     `mapstructure:"invalidate_cache_after_minutes" validate:"gte=0"`
	InvalidateCacheOnEntryChange bool    `mapstructure:"invalidate_cache_on_entry_change"`
	OutputFileExtension          string  `mapstructure:"output_file_extension" validate:"required,alphanum"`
	OutputMode                   string  `mapstructure:"output_mode" validate:"oneof=single pages index none"`
	OutputFolder                 string  `mapstructure:"output_folder"`
	Debug                        bool    `mapstructure:"debug"`
	PandocPath                   string  `mapstructure:"pandoc_path"`
	ChromeExecutable             string  `mapstructure:"chrome_executable"`
	MinifyWholeDocument          bool    `mapstructure:"minify_whole_document"`
	OutputTreeFile               string  `mapstructure:"output_tree_file"`
	GitHubClient                 string  `mapstructure:"github_client" validate:"oneof=api gh"`
	GitHubToken                  string  `mapstructure:"github_token"`
	HTTPRate                     float64 `mapstructure:"http_rate" validate:"gte=0"`
	Concurrency                  int     `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	Watch                        bool    `mapstructure:"watch"`
}

// DefaultOptions returns the stock settings. ProjectsFolder is left empty.
func DefaultOptions() Options {
	return Options{
		UseCache:                    true,
		InvalidateCacheAfterMinutes: 10080,
		OutputFileExtension:         "txt",
		OutputMode:                  "single",
		PandocPath:                  "pandoc",
		ChromeExecutable:            "google-chrome",
		MinifyWholeDocument:         true,
		GitHubClient:                "api",
		HTTPRate:                    5,
		Concurrency:                 1,
	}
}

var validate = validator.New()

// Validate checks the options and reports every offending field.
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid options: %s", strings.Join(msgs, "; "))
}

// CacheExpiry converts InvalidateCacheAfterMinutes. Zero disables expiry.
func (o Options) CacheExpiry() time.Duration {
	return time.Duration(o.InvalidateCacheAfterMinutes) * time.Minute
}

// ProjectFolder is where a project's entries file lives.
func (o Options) ProjectFolder(project string) string {
	return filepath.Join(o.ProjectsFolder, project)
}

// OutFolder is where a project's cache, artifacts and report go.
func (o Options) OutFolder(project string) string {
	if o.OutputFolder != "" {
		return filepath.Join(o.OutputFolder, project)
	}
	return filepath.Join(o.ProjectFolder(project), "out")
}

// IndexPath is the search database written by the index output mode.
func (o Options) IndexPath(project string) string {
	return filepath.Join(o.OutFolder(project), filepath.FromSlash(output.IndexFile(project)))
}

// Projects lists the sub-folders of ProjectsFolder holding an entries file.
func (o Options) Projects() ([]string, error) {
	dirents, err := os.ReadDir(o.ProjectsFolder)
	if err != nil {
		return nil, err
	}
	var projects []string
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		if _, err := models.FindEntriesFile(o.ProjectFolder(d.Name())); err == nil {
			projects = append(projects, d.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}
