package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/grovetools/kb/pkg/fetch"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// APIClient talks to the REST API over the shared fetcher.
type APIClient struct {
	baseURL string
	token   string
	fetcher *fetch.Fetcher
}

// NewAPIClient creates a REST client. An empty baseURL means the public API.
func NewAPIClient(fetcher *fetch.Fetcher, baseURL, token string) *APIClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), token: token, fetcher: fetcher}
}

func (c *APIClient) Contents(ctx context.Context, owner, repo, ref string) ([]ContentFile, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	var files []ContentFile
	if err := c.getJSON(ctx, u, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *APIClient) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))
	var info struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := c.getJSON(ctx, u, &info); err != nil {
		return "", err
	}
	if info.DefaultBranch == "" {
		return "", fmt.Errorf("%s/%s: empty default branch", owner, repo)
	}
	return info.DefaultBranch, nil
}

func (c *APIClient) getJSON(ctx context.Context, u string, v any) error {
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}
	resp, err := c.fetcher.Get(ctx, u, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("failed to parse GitHub response: %w", err)
	}
	return nil
}
