// Package fetch downloads remote source files into temporary storage.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/maauso/make-video-api/internal/storage"
)

// Static errors for fetch operations.
var (
	// ErrURLRequired is returned when an empty URL is passed to Fetch.
	ErrURLRequired = errors.New("fetch: URL is required")
	// ErrUnexpectedStatus is returned when the source responds with a non-2xx status.
	ErrUnexpectedStatus = errors.New("fetch: unexpected status")
)

// Fetcher downloads a URL to a temporary file.
type Fetcher interface {
	// Fetch streams the body at url into a new temp file whose name starts
	// with name, and returns the file path.
	Fetch(ctx context.Context, url, name string) (path string, err error)
}

// HTTPFetcher is the HTTP implementation of Fetcher.
type HTTPFetcher struct {
	store      storage.Storage
	httpClient *http.Client
	userAgent  string
}

// Option is a function that configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.httpClient = c
	}
}

// WithTimeout bounds each download. Zero means no timeout. It applies to a
// copy of the current client, so it composes with WithHTTPClient in any order.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		c := *f.httpClient
		c.Timeout = d
		f.httpClient = &c
	}
}

// WithUserAgent sets the User-Agent header sent to sources.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// NewHTTPFetcher creates a new HTTPFetcher that writes into store.
func NewHTTPFetcher(store storage.Storage, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		store:      store,
		httpClient: &http.Client{},
		userAgent:  "make-video-api/1.0",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues a GET for url and saves the body to a temp file.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, name string) (string, error) {
	if url == "" {
		return "", ErrURLRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return "", fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, url, resp.StatusCode)
	}

	path, err := f.store.SaveTemp(ctx, name, resp.Body)
	if err != nil {
		return "", fmt.Errorf("fetch: save %s: %w", url, err)
	}

	return path, nil
}
