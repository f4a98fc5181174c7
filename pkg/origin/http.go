package origin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFetcher fetches origin content over plain HTTP GET. It is the
// default fetcher: BaseURL joined with the requested path is the
// object URL, matching the simplest possible origin topology a
// GETFILE deployment can sit in front of.
type HTTPFetcher struct {
	BaseURL *url.URL
	Client  *http.Client
}

// NewHTTPFetcher parses baseURL and constructs a fetcher with a
// conservative default client timeout.
func NewHTTPFetcher(baseURL string) (*HTTPFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("origin: parse base url: %w", err)
	}
	return &HTTPFetcher{
		BaseURL: u,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, path string) (uint64, io.ReadCloser, error) {
	target := *f.BaseURL
	target.Path = strings.TrimRight(target.Path, "/") + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("origin: build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("origin: fetch %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return 0, nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return 0, nil, fmt.Errorf("origin: unexpected status %d for %s", resp.StatusCode, path)
	}

	if resp.ContentLength < 0 {
		return 0, resp.Body, nil
	}
	return uint64(resp.ContentLength), resp.Body, nil
}
