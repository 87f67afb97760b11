// Package github looks up repository metadata for the repository presets.
package github

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrNoReadme is returned when a repository has no recognizable readme.
var ErrNoReadme = errors.New("no readme found")

// Client is the subset of the GitHub API the presets need.
type Client interface {
	// Contents lists the root directory of a repository at ref. An empty
	// ref means the default branch.
	Contents(ctx context.Context, owner, repo, ref string) ([]ContentFile, error)
	// DefaultBranch returns the repository's default branch.
	DefaultBranch(ctx context.Context, owner, repo string) (string, error)
}

// ContentFile is one item of a contents listing.
type ContentFile struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// Repo identifies a repository and optionally a branch.
type Repo struct {
	Owner  string `mapstructure:"owner"`
	Repo   string `mapstructure:"repo"`
	Branch string `mapstructure:"branch"`
}

// Slug returns "owner/repo".
func (r Repo) Slug() string { return r.Owner + "/" + r.Repo }

// ParseRepo accepts either an "owner/repo[/branch]" string or a mapping
// with owner, repo and branch keys.
func ParseRepo(target any) (Repo, error) {
	switch t := target.(type) {
	case string:
		parts := strings.Split(strings.Trim(t, "/"), "/")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return Repo{}, fmt.Errorf("repository target %q must look like owner/repo[/branch]", t)
		}
		r := Repo{Owner: parts[0], Repo: parts[1]}
		if len(parts) > 2 {
			r.Branch = strings.Join(parts[2:], "/")
		}
		return r, nil
	case map[string]any:
		var r Repo
		if err := mapstructure.WeakDecode(t, &r); err != nil {
			return Repo{}, fmt.Errorf("decode repository target: %w", err)
		}
		if r.Owner == "" || r.Repo == "" {
			return Repo{}, errors.New("repository target needs owner and repo")
		}
		return r, nil
	default:
		return Repo{}, fmt.Errorf("unsupported repository target %T", target)
	}
}

var readmeNames = []string{"readme.md", "readme.txt", "readme"}

// PickReadme chooses the readme from a contents listing, preferring
// markdown, then text, then a bare README.
func PickReadme(files []ContentFile) (ContentFile, error) {
	for _, want := range readmeNames {
		for _, f := range files {
			if f.Type != "" && f.Type != "file" {
				continue
			}
			if strings.EqualFold(f.Name, want) {
				return f, nil
			}
		}
	}
	return ContentFile{}, ErrNoReadme
}

// FindReadme lists the repository root and picks its readme.
func FindReadme(ctx context.Context, c Client, r Repo) (ContentFile, error) {
	files, err := c.Contents(ctx, r.Owner, r.Repo, r.Branch)
	if err != nil {
		return ContentFile{}, fmt.Errorf("list %s: %w", r.Slug(), err)
	}
	f, err := PickReadme(files)
	if err != nil {
		return ContentFile{}, fmt.Errorf("%s: %w", r.Slug(), err)
	}
	return f, nil
}
