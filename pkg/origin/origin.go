// Package origin implements the fallback fetcher the proxy's request
// pipeline calls when the cache daemon cannot serve a path: an HTTP
// GET against a configured origin server (HTTPFetcher), or an S3
// GetObject call (S3Fetcher).
package origin

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when the origin has no object at the
// requested path.
var ErrNotFound = errors.New("origin: object not found")

// Fetcher retrieves a file's content from a fallback origin when the
// proxy's attempt to serve the path from the cache daemon fails.
type Fetcher interface {
	// Fetch opens the body for path. The caller must Close the
	// returned ReadCloser. size is the advertised Content-Length (or
	// S3 object size); callers may treat 0 as "unknown".
	Fetch(ctx context.Context, path string) (size uint64, body io.ReadCloser, err error)
}
