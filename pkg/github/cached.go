package github

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClient memoizes lookups for the lifetime of a run, so several
// entries pointing at the same repository cost one request.
type CachedClient struct {
	inner    Client
	contents *lru.Cache[string, []ContentFile]
	branches *lru.Cache[string, string]
}

// NewCachedClient wraps inner with LRU caches of the given size.
func NewCachedClient(inner Client, size int) (*CachedClient, error) {
	if size <= 0 {
		size = 128
	}
	contents, err := lru.New[string, []ContentFile](size)
	if err != nil {
		return nil, err
	}
	branches, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedClient{inner: inner, contents: contents, branches: branches}, nil
}

func (c *CachedClient) Contents(ctx context.Context, owner, repo, ref string) ([]ContentFile, error) {
	key := fmt.Sprintf("%s/%s@%s", owner, repo, ref)
	if files, ok := c.contents.Get(key); ok {
		return files, nil
	}
	files, err := c.inner.Contents(ctx, owner, repo, ref)
	if err != nil {
		return nil, err
	}
	c.contents.Add(key, files)
	return files, nil
}

func (c *CachedClient) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	key := owner + "/" + repo
	if b, ok := c.branches.Get(key); ok {
		return b, nil
	}
	b, err := c.inner.DefaultBranch(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	c.branches.Add(key, b)
	return b, nil
}
