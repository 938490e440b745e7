// Package netutil provides outbound HTTP plumbing shared by backends that
// call external routing services.
package netutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPStatusError indicates the server responded, but with an unexpected
// HTTP status code. This is a non-network failure.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetcher: unexpected status %d from %s", e.StatusCode, e.URL)
}

// NonRetryableError indicates request setup failed before any transport
// attempt was made (for example, malformed URL).
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("fetcher: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// Fetcher fetches remote resources. Interface allows stub implementations
// in tests.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DirectFetcher performs GETs via a standard HTTP client.
type DirectFetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
}

// NewDirectFetcher creates a fetcher with a per-request timeout applied when
// the caller's context carries no deadline.
func NewDirectFetcher(timeout time.Duration, userAgent string) *DirectFetcher {
	return &DirectFetcher{
		Client:    &http.Client{},
		Timeout:   timeout,
		UserAgent: userAgent,
	}
}

// Fetch retrieves the URL and returns the response body.
func (f *DirectFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NonRetryableError{Err: err}
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	return body, nil
}
