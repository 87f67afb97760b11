package preset

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/grovetools/kb/pkg/models"
)

func builtins() []Preset {
	return []Preset{
		{Name: "rentry", Description: "rentry.org paste, rendered from its raw markdown", Resolve: rentry},
		{Name: "civitai_article", Description: "civitai.com article, rendered in a browser", Resolve: civitaiArticle},
		{Name: "civitai_model_description", Description: "civitai.com model description from the public API", Resolve: civitaiModelDescription},
		{Name: "github_wiki_article", Description: "single GitHub wiki article", Resolve: githubWikiArticle},
		{Name: "github_wiki", Description: "whole GitHub wiki (unsupported, skipped)", Resolve: githubWiki},
		{Name: "github_readme", Description: "repository readme located through the GitHub API", Resolve: githubReadme},
		{Name: "repo_markdown", Description: "every markdown file of a GitHub repository", Resolve: repoMarkdown},
		{Name: "repo_glob", Description: "files of a GitHub repository snapshot matching a pattern", Resolve: repoGlob},
		{Name: "glob", Description: "local files matching a pattern", Resolve: glob},
		{Name: "reddit_comments", Description: "Reddit self post with its comment tree", Resolve: redditComments},
	}
}

// concrete returns a copy of the entry with its type stripped, bound to
// extractor and url.
func concrete(entry models.Entry, extractor, url string) models.Entry {
	e := entry.Clone()
	e.Type = ""
	e.Extractor = extractor
	e.Set("url", url)
	return e
}

func rentry(_ context.Context, entry models.Entry, _ *Env) (Result, error) {
	url := fmt.Sprintf("https://rentry.org/%s/raw", entry.TargetString())
	return ReplaceResult(concrete(entry, "htmlFromMarkdown", url)), nil
}

func civitaiArticle(_ context.Context, entry models.Entry, _ *Env) (Result, error) {
	e := concrete(entry, "html", fmt.Sprintf("https://civitai.com/articles/%s", entry.TargetString()))
	e.Set("domSelector", "article")
	e.Set("browser", true)
	return ReplaceResult(e), nil
}

func civitaiModelDescription(_ context.Context, entry models.Entry, _ *Env) (Result, error) {
	url := fmt.Sprintf("https://civitai.com/api/v1/models/%s", entry.TargetString())
	return ReplaceResult(concrete(entry, "html", url)), nil
}

type wikiArticleTarget struct {
	Owner   string `mapstructure:"owner"`
	Repo    string `mapstructure:"repo"`
	Article string `mapstructure:"article"`
}

func githubWikiArticle(_ context.Context, entry models.Entry, _ *Env) (Result, error) {
	var t wikiArticleTarget
	if err := mapstructure.WeakDecode(entry.Target, &t); err != nil {
		return Result{}, fmt.Errorf("decode target: %w", err)
	}
	if t.Owner == "" || t.Repo == "" || t.Article == "" {
		return Result{}, errors.New("target needs owner, repo and article")
	}
	url := fmt.Sprintf("https://github.com/%s/%s/wiki/%s.md", t.Owner, t.Repo, t.Article)
	e := concrete(entry, "htmlFromMarkdown", url)
	e.Title = fmt.Sprintf("Wiki article “%s” from GitHub repository %s/%s", t.Article, t.Owner, t.Repo)
	return ReplaceResult(e), nil
}

// githubWiki would list every wiki page, but GitHub exposes no API for it.
func githubWiki(_ context.Context, entry models.Entry, env *Env) (Result, error) {
	env.logger().WithField("entry", entry.ID).Warn("github_wiki entries are not supported, skipping")
	return SkipResult(), nil
}

func redditComments(_ context.Context, entry models.Entry, _ *Env) (Result, error) {
	return ReplaceResult(concrete(entry, "redditThread", entry.TargetString())), nil
}
