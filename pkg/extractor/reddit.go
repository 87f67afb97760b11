package extractor

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
)

const defaultCommentsLimit = 200

var (
	postPath     = jp.MustParseString("$[0].data.children[0].data")
	commentsPath = jp.MustParseString("$[1].data.children[*]")
	repliesPath  = jp.MustParseString("$.replies.data.children[*]")
)

var threadTemplate = template.Must(template.New("thread").Parse(`
{{- define "comment" -}}
<div class="comment-depth-{{.Depth}}"><p class='comment'><h3>#{{.Index}}{{if .Author}} by {{.Author}}{{end}}{{if .ReplyTo}} in reply to #{{.ReplyTo}}{{end}} (Score: {{.Score}})</h3><div>{{.Body}}</div></p>
{{- range .Replies}}{{template "comment" .}}{{end -}}
</div>
{{- end -}}
<article><p class='original-post'><h3>#0{{if .Post.Author}} by {{.Post.Author}}{{end}} to {{.Post.Subreddit}} (Score: {{.Post.Score}})</h3><div>{{.Post.Body}}</div></p>
{{- range .Comments}}{{template "comment" .}}{{end -}}
</article>`))

type redditPost struct {
	Title     string
	Author    string
	Subreddit string
	Score     int64
	Body      template.HTML
}

type redditComment struct {
	Index   int
	ReplyTo int
	Depth   int
	Author  string
	Score   int64
	Body    template.HTML
	Replies []*redditComment
}

// redditThreadExtractor renders a self post and its comment tree.
type redditThreadExtractor struct {
	source
}

func newRedditThread(entry *models.Entry, xctx *Context) Extractor {
	return &redditThreadExtractor{source{entry: entry, xctx: xctx}}
}

// threadURL accepts a full thread URL or a bare post id.
func (r *redditThreadExtractor) threadURL() string {
	u := r.url()
	if !strings.Contains(u, "reddit.com") {
		u = "https://reddit.com/comments/" + u
	}
	limit := r.entry.Int("commentsLimit", defaultCommentsLimit)
	if limit <= 0 {
		limit = defaultCommentsLimit
	}
	return fmt.Sprintf("%s.json?limit=%d", u, limit)
}

func (r *redditThreadExtractor) Init(ctx context.Context) error {
	if r.url() == "" {
		return fmt.Errorf("entry %s has no url", r.entry.ID)
	}
	if err := r.download(ctx, r.threadURL()); err != nil {
		return err
	}
	out, title, err := renderThread(r.text, r.minimumScore())
	if err != nil {
		return fmt.Errorf("entry %s: %w", r.entry.ID, err)
	}
	r.text = out
	if title != "" {
		r.title = "[Reddit Thread] " + title
	}
	return nil
}

func (r *redditThreadExtractor) minimumScore() *int64 {
	if _, ok := r.entry.Get("minimumScore"); !ok {
		return nil
	}
	v := int64(r.entry.Int("minimumScore", 0))
	return &v
}

func (r *redditThreadExtractor) ContentModules() []*content.Module {
	return []*content.Module{content.New(r.entry, content.KindHTML, r.text, r.title)}
}

// renderThread turns a thread's JSON payload into HTML. Comments scoring
// below minScore are dropped together with their replies.
func renderThread(payload string, minScore *int64) (string, string, error) {
	root, err := oj.ParseString(payload)
	if err != nil {
		return "", "", fmt.Errorf("parse reddit payload: %w", err)
	}
	data, ok := postPath.First(root).(map[string]any)
	if !ok {
		return "", "", fmt.Errorf("reddit payload has no post")
	}
	if isSelf, _ := data["is_self"].(bool); !isSelf {
		return "", "", fmt.Errorf("post is not a self post")
	}
	post := redditPost{
		Title:     str(data["title"]),
		Author:    str(data["author"]),
		Subreddit: str(data["subreddit_name_prefixed"]),
		Score:     num(data["score"]),
		Body:      template.HTML(MarkdownToHTML(str(data["selftext"]), 4)),
	}

	next := 1
	numbers := map[string]int{}
	var build func(children []any, depth int, parentID string) []*redditComment
	build = func(children []any, depth int, parentID string) []*redditComment {
		var out []*redditComment
		for _, child := range children {
			node, ok := child.(map[string]any)
			if !ok || node["kind"] != "t1" {
				continue
			}
			c, ok := node["data"].(map[string]any)
			if !ok {
				continue
			}
			score := num(c["score"])
			if minScore != nil && *minScore > score {
				continue
			}
			rc := &redditComment{
				Index:  next,
				Depth:  depth,
				Author: str(c["author"]),
				Score:  score,
				Body:   template.HTML(MarkdownToHTML(str(c["body"]), 4)),
			}
			next++
			numbers[str(c["id"])] = rc.Index
			if depth > 0 {
				rc.ReplyTo = numbers[parentID]
			}
			rc.Replies = build(repliesPath.Get(c), depth+1, str(c["id"]))
			out = append(out, rc)
		}
		return out
	}
	comments := build(commentsPath.Get(root), 0, "")

	var buf bytes.Buffer
	err = threadTemplate.Execute(&buf, struct {
		Post     redditPost
		Comments []*redditComment
	}{post, comments})
	if err != nil {
		return "", "", err
	}
	return buf.String(), post.Title, nil
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func num(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}
