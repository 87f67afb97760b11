// Package service runs knowledge-base compilations: it loads a project's
// entries, walks them into content and writes the configured artifacts.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/kb/pkg/extractor"
	"github.com/grovetools/kb/pkg/fetch"
	"github.com/grovetools/kb/pkg/github"
	"github.com/grovetools/kb/pkg/models"
)

// githubMemoSize bounds the memoized GitHub lookups of one service.
const githubMemoSize = 256

// Service compiles projects
type Service struct {
	opts       Options
	logger     *logrus.Entry
	extractors *extractor.Registry
	httpClient *http.Client
	fetcher    *fetch.Fetcher
	github     github.Client
	runner     extractor.CommandRunner
	archiveURL string
	now        func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Service) { s.logger = l }
}

// WithExtractors replaces the extractor registry.
func WithExtractors(r *extractor.Registry) Option {
	return func(s *Service) { s.extractors = r }
}

// WithHTTPClient routes all downloads through c.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithGitHubClient replaces the GitHub lookup client.
func WithGitHubClient(c github.Client) Option {
	return func(s *Service) { s.github = c }
}

// WithCommandRunner replaces how external programs are run.
func WithCommandRunner(r extractor.CommandRunner) Option {
	return func(s *Service) { s.runner = r }
}

// WithArchiveBaseURL points repository snapshot downloads elsewhere.
func WithArchiveBaseURL(u string) Option {
	return func(s *Service) { s.archiveURL = u }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New validates opts and creates a Service.
func New(opts Options, options ...Option) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		opts:       opts,
		logger:     logrus.NewEntry(logrus.New()),
		extractors: extractor.Default(),
		now:        time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.fetcher = fetch.New(fetch.Options{Rate: opts.HTTPRate, Client: s.httpClient, Logger: s.logger})
	if s.github == nil {
		client, err := s.newGitHubClient()
		if err != nil {
			return nil, err
		}
		s.github = client
	}
	return s, nil
}

func (s *Service) newGitHubClient() (github.Client, error) {
	var inner github.Client
	switch s.opts.GitHubClient {
	case "gh":
		c, err := github.NewCLIClient()
		if err != nil {
			return nil, fmt.Errorf("github client: %w", err)
		}
		inner = c
	default:
		token := s.opts.GitHubToken
		if token == "" {
			token = os.Getenv("GITHUB_TOKEN")
		}
		inner = github.NewAPIClient(s.fetcher, "", token)
	}
	return github.NewCachedClient(inner, githubMemoSize)
}

// Options returns the options the service runs with.
func (s *Service) Options() Options { return s.opts }

// Extractors returns the extractor registry.
func (s *Service) Extractors() *extractor.Registry { return s.extractors }

// Logger returns the service logger.
func (s *Service) Logger() *logrus.Entry { return s.logger }

// RunProjects compiles each project in turn. A failing project does not
// stop the others; all failures are returned joined.
func (s *Service) RunProjects(ctx context.Context, projects []string) ([]*ProjectResult, error) {
	var results []*ProjectResult
	var errs []error
	for _, id := range projects {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.RunProject(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("project", id).Error("Project failed")
			errs = append(errs, fmt.Errorf("project %s: %w", id, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// EntriesFile locates the entries file of a project.
func (s *Service) EntriesFile(project string) (string, error) {
	folder := s.opts.ProjectFolder(project)
	if fi, err := os.Stat(folder); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("project folder %s not found", folder)
	}
	return models.FindEntriesFile(folder)
}
