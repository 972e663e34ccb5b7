package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	tagsPerPage    = 100
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// ErrNotFound is returned when the GitHub API answers 404.
var ErrNotFound = errors.New("not found")

// GitHubClient reads repository contents and tags through the GitHub REST API.
type GitHubClient struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	backoff    time.Duration
}

// NewGitHubClient creates a GitHub API client. An empty token sends
// unauthenticated requests.
func NewGitHubClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *GitHubClient {
	return &GitHubClient{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		backoff: initialBackoff,
	}
}

// GetFileContents returns the decoded contents of path on the default branch of repo.
func (c *GitHubClient) GetFileContents(ctx context.Context, repo, path string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, repo, path)

	var file contentsResponse
	if err := c.getJSON(ctx, u, &file); err != nil {
		return "", fmt.Errorf("get %s from %s: %w", path, repo, err)
	}
	if file.Encoding != "" && file.Encoding != "base64" {
		return "", fmt.Errorf("get %s from %s: unsupported encoding %q", path, repo, file.Encoding)
	}

	// The API wraps base64 payloads at 60 columns.
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode %s from %s: %w", path, repo, err)
	}
	return string(decoded), nil
}

// TagExists reports whether tag exists in repo. A 404 means absent; any other
// failure is returned.
func (c *GitHubClient) TagExists(ctx context.Context, repo, tag string) (bool, error) {
	u := fmt.Sprintf("%s/repos/%s/git/refs/tags/%s", c.baseURL, repo, url.PathEscape(tag))

	err := c.getJSON(ctx, u, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check tag %s in %s: %w", tag, repo, err)
	}
}

// ListTags returns every tag name in repo, following pagination until an
// empty page.
func (c *GitHubClient) ListTags(ctx context.Context, repo string) ([]string, error) {
	var names []string
	for page := 1; ; page++ {
		params := url.Values{
			"page":     {fmt.Sprint(page)},
			"per_page": {fmt.Sprint(tagsPerPage)},
		}
		u := fmt.Sprintf("%s/repos/%s/tags?%s", c.baseURL, repo, params.Encode())

		var tags []tagResponse
		if err := c.getJSON(ctx, u, &tags); err != nil {
			return nil, fmt.Errorf("list tags of %s: %w", repo, err)
		}
		if len(tags) == 0 {
			return names, nil
		}
		for _, t := range tags {
			names = append(names, t.Name)
		}
	}
}

// getJSON GETs fullURL and decodes the body into out (discarded when out is
// nil). Transport errors, 429 and 5xx responses are retried with backoff.
func (c *GitHubClient) getJSON(ctx context.Context, fullURL string, out any) error {
	backoff := c.backoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var retryable bool
		retryable, err = c.doGet(ctx, fullURL, out)
		if err == nil || !retryable || attempt == maxAttempts {
			break
		}
		c.logger.Warn("github request failed, retrying",
			"url", fullURL, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}

func (c *GitHubClient) doGet(ctx context.Context, fullURL string, out any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retryable, fmt.Errorf("github API error: status %d: %s", resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

// GitHub API response types.

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type tagResponse struct {
	Name string `json:"name"`
}
