package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher opens streaming downloads of archive parts. Only the wait for
// response headers is bounded; bodies are multi-gigabyte and may take as long
// as they need.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher creates a fetcher whose requests fail if headers do not
// arrive within headerTimeout.
func NewHTTPFetcher(headerTimeout time.Duration) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &HTTPFetcher{httpClient: &http.Client{Transport: transport}}
}

// Fetch issues a GET for rawURL and returns the body. Non-2xx responses are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}
