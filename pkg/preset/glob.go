package preset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/kb/pkg/models"
)

type globTarget struct {
	Folder        string   `mapstructure:"folder"`
	Pattern       []string `mapstructure:"pattern"`
	TitlePrefix   string   `mapstructure:"titlePrefix"`
	CaseSensitive bool     `mapstructure:"caseSensitive"`
}

// glob expands into one terminal entry per matched file. Children inherit
// the parent's extractor and page.
func glob(_ context.Context, entry models.Entry, env *Env) (Result, error) {
	var t globTarget
	if err := mapstructure.WeakDecode(entry.Target, &t); err != nil {
		return Result{}, fmt.Errorf("decode target: %w", err)
	}
	if t.Folder == "" {
		return Result{}, errors.New("target.folder must be a string")
	}
	if len(t.Pattern) == 0 {
		return Result{}, errors.New("target.pattern is required")
	}
	folder := t.Folder
	if !filepath.IsAbs(folder) && env.BaseDir != "" {
		folder = filepath.Join(env.BaseDir, folder)
	}

	files, err := MatchFiles(folder, t.Pattern, t.CaseSensitive)
	if err != nil {
		return Result{}, err
	}

	children := make([]models.Entry, 0, len(files))
	for i, rel := range files {
		base := filepath.Base(rel)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		title := t.TitlePrefix + rel
		if entry.Title != "" {
			title = entry.Title + " - " + title
		}
		child := models.Entry{
			ID:        fmt.Sprintf("%s_%d_%s", entry.ID, i, stem),
			Title:     title,
			Extractor: entry.Extractor,
			Page:      entry.Page,
		}
		child.Set("url", filepath.Join(folder, filepath.FromSlash(rel)))
		children = append(children, child)
	}
	env.logger().WithFields(logrus.Fields{"entry": entry.ID, "folder": folder, "matches": len(children)}).Debug("Expanded glob")
	return ChildrenResult(children), nil
}

// MatchFiles returns the slash-separated paths of regular files under
// folder that match at least one pattern and none of the "!"-prefixed
// exclusions. Dot files are included. Results are in lexical walk order.
func MatchFiles(folder string, patterns []string, caseSensitive bool) ([]string, error) {
	var include, exclude []string
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if !caseSensitive {
			p = strings.ToLower(p)
		}
		negated := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
		if negated {
			exclude = append(exclude, p)
		} else {
			include = append(include, p)
		}
	}

	info, err := os.Stat(folder)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("glob folder %s is not a directory", folder)
	}

	var matches []string
	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		key := rel
		if !caseSensitive {
			key = strings.ToLower(rel)
		}
		if matchAny(include, key) && !matchAny(exclude, key) {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", folder, err)
	}
	return matches, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
