package preset

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/mitchellh/mapstructure"

	"github.com/grovetools/kb/pkg/github"
	"github.com/grovetools/kb/pkg/models"
)

const defaultArchiveBaseURL = "https://github.com"

var repoMarkdownPattern = []any{
	"**/*.md",
	"!**/node_modules/**",
	"!**/CONTRIBUTING.md",
	"!**/LICENSE.md",
	"!**/SECURITY.md",
}

func githubReadme(ctx context.Context, entry models.Entry, env *Env) (Result, error) {
	if env.GitHub == nil {
		return Result{}, errors.New("no GitHub client configured")
	}
	repo, err := github.ParseRepo(entry.Target)
	if err != nil {
		return Result{}, err
	}
	readme, err := github.FindReadme(ctx, env.GitHub, repo)
	if err != nil {
		return Result{}, err
	}
	if readme.DownloadURL == "" {
		return Result{}, fmt.Errorf("%s: readme %s has no download url", repo.Slug(), readme.Path)
	}
	e := concrete(entry, "htmlFromMarkdown", readme.DownloadURL)
	if e.Title == "" {
		e.Title = fmt.Sprintf("github.com/%s/readme.md", repo.Slug())
	}
	return ReplaceResult(e), nil
}

// repoMarkdown re-tags the entry as a repo_glob over the repository's
// markdown files.
func repoMarkdown(_ context.Context, entry models.Entry, _ *Env) (Result, error) {
	repo, err := github.ParseRepo(entry.Target)
	if err != nil {
		return Result{}, err
	}
	target := targetMap(entry.Target)
	target["owner"] = repo.Owner
	target["repo"] = repo.Repo
	if repo.Branch != "" {
		target["branch"] = repo.Branch
	}
	if _, ok := target["titlePrefix"]; !ok {
		target["titlePrefix"] = fmt.Sprintf("github.com/%s/", repo.Slug())
	}
	target["pattern"] = repoMarkdownPattern

	e := entry.Clone()
	e.Type = "repo_glob"
	e.Extractor = "htmlFromMarkdown"
	e.Target = target
	return ReplaceResult(e), nil
}

type repoGlobTarget struct {
	Owner       string   `mapstructure:"owner"`
	Repo        string   `mapstructure:"repo"`
	Branch      string   `mapstructure:"branch"`
	Pattern     []string `mapstructure:"pattern"`
	TitlePrefix string   `mapstructure:"titlePrefix"`
}

// repoGlob downloads a repository snapshot into a scratch directory and
// re-tags the entry as a glob rooted there.
func repoGlob(ctx context.Context, entry models.Entry, env *Env) (Result, error) {
	var t repoGlobTarget
	if s, ok := entry.Target.(string); ok {
		repo, err := github.ParseRepo(s)
		if err != nil {
			return Result{}, err
		}
		t = repoGlobTarget{Owner: repo.Owner, Repo: repo.Repo, Branch: repo.Branch}
	} else if err := mapstructure.WeakDecode(entry.Target, &t); err != nil {
		return Result{}, fmt.Errorf("decode target: %w", err)
	}
	if t.Owner == "" || t.Repo == "" {
		return Result{}, errors.New("target needs owner and repo")
	}
	if env.Fetcher == nil {
		return Result{}, errors.New("no fetcher configured")
	}
	repo := github.Repo{Owner: t.Owner, Repo: t.Repo, Branch: t.Branch}

	branch := repo.Branch
	if branch == "" {
		branch = defaultBranch(ctx, env, repo)
	}

	base := env.ArchiveBaseURL
	if base == "" {
		base = defaultArchiveBaseURL
	}
	url := fmt.Sprintf("%s/%s/archive/%s.tar.gz", strings.TrimRight(base, "/"), repo.Slug(), branch)

	scratch, err := env.ScratchDir(fmt.Sprintf("github-repo-%s_%s-", repo.Owner, repo.Repo))
	if err != nil {
		return Result{}, err
	}
	body, err := env.Fetcher.Stream(ctx, url, nil)
	if err != nil {
		return Result{}, err
	}
	defer body.Close()
	if err := ExtractTarball(body, scratch); err != nil {
		return Result{}, fmt.Errorf("extract %s: %w", url, err)
	}
	root, err := singleFolder(scratch)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", url, err)
	}
	env.logger().WithField("entry", entry.ID).WithField("folder", root).Debug("Extracted repository snapshot")

	target := targetMap(entry.Target)
	target["folder"] = root
	if t.TitlePrefix == "" {
		target["titlePrefix"] = fmt.Sprintf("github.com/%s/", repo.Slug())
	}
	if len(t.Pattern) == 0 {
		target["pattern"] = []any{"**/*"}
	}

	e := entry.Clone()
	e.Type = "glob"
	if e.Extractor == "" {
		e.Extractor = "code"
	}
	e.Target = target
	return ReplaceResult(e), nil
}

func defaultBranch(ctx context.Context, env *Env, repo github.Repo) string {
	if env.GitHub == nil {
		return "master"
	}
	b, err := env.GitHub.DefaultBranch(ctx, repo.Owner, repo.Repo)
	if err != nil || b == "" {
		env.logger().WithError(err).WithField("repo", repo.Slug()).Warn("Could not resolve default branch, using master")
		return "master"
	}
	return b
}

// targetMap copies a structured target, or starts an empty one for
// string targets.
func targetMap(target any) map[string]any {
	out := map[string]any{}
	if m, ok := target.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// ExtractTarball unpacks a gzipped tarball into dest. Only directories and
// regular files are materialized.
func ExtractTarball(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := filepath.Clean(filepath.FromSlash(hdr.Name))
		if filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
			return fmt.Errorf("unsafe path %q in archive", hdr.Name)
		}
		path := filepath.Join(dest, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(path, tr); err != nil {
				return err
			}
		}
	}
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func singleFolder(dir string) (string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var folders []string
	for _, it := range items {
		if it.IsDir() {
			folders = append(folders, it.Name())
		}
	}
	switch len(folders) {
	case 0:
		return "", errors.New("no folders extracted")
	case 1:
		return filepath.Join(dir, folders[0]), nil
	default:
		return "", fmt.Errorf("more than one folder extracted: %v", folders)
	}
}
