package github

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// CLIClient shells out to the gh CLI, reusing whatever authentication the
// user already configured there.
type CLIClient struct {
	bin string
}

// NewCLIClient checks that gh is available.
func NewCLIClient() (*CLIClient, error) {
	bin, err := exec.LookPath("gh")
	if err != nil {
		return nil, fmt.Errorf("gh command not found in PATH, please install the GitHub CLI")
	}
	return &CLIClient{bin: bin}, nil
}

func (c *CLIClient) Contents(ctx context.Context, owner, repo, ref string) ([]ContentFile, error) {
	endpoint := fmt.Sprintf("repos/%s/%s/contents/", owner, repo)
	if ref != "" {
		endpoint += "?ref=" + ref
	}
	var files []ContentFile
	if err := c.api(ctx, endpoint, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *CLIClient) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	var info struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := c.api(ctx, fmt.Sprintf("repos/%s/%s", owner, repo), &info); err != nil {
		return "", err
	}
	return info.DefaultBranch, nil
}

func (c *CLIClient) api(ctx context.Context, endpoint string, v any) error {
	cmd := exec.CommandContext(ctx, c.bin, "api", endpoint)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("gh api %s failed: %s", endpoint, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return fmt.Errorf("gh command failed: %w", err)
	}
	if err := json.Unmarshal(output, v); err != nil {
		return fmt.Errorf("failed to parse gh JSON output: %w", err)
	}
	return nil
}
