// Package fetch is the shared HTTP client used by presets and extractors.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when no other agent is configured.
const DefaultUserAgent = "kb/1 (+https://github.com/grovetools/kb)"

// Options configures a Fetcher.
type Options struct {
	// Rate is the number of requests per second. Zero or less disables limiting.
	Rate      float64
	Burst     int
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
	Logger    *logrus.Entry
}

// Fetcher performs rate limited GET requests.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *logrus.Entry
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Fetcher{client: client, limiter: limiter, userAgent: ua, logger: logger.WithField("component", "fetch")}
}

// Get fetches url and reads the whole body.
func (f *Fetcher) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	body, resp, err := f.open(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data, URL: url}, nil
}

// Stream fetches url and hands the body to the caller, who must close it.
func (f *Fetcher) Stream(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	body, _, err := f.open(ctx, url, headers)
	return body, err
}

func (f *Fetcher) open(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, *http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("GET %s: %w", url, err)
	}
	f.logger.WithFields(logrus.Fields{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("Fetched")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, resp, nil
}
