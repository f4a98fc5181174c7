package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/jonnybach/low-level-file-server/internal/logger"
	"github.com/jonnybach/low-level-file-server/pkg/blobstore"
	"github.com/jonnybach/low-level-file-server/pkg/segipc"
)

// CacheWorker repeatedly serves one segipc.ServerSession, resolving
// each request against the blob store. A miss is reported to the
// proxy as segipc.ErrNotFound; the cache daemon never reaches for the
// origin itself, that fallback is the proxy's Request Pipeline's job.
type CacheWorker struct {
	Session *segipc.ServerSession
	Store   blobstore.Store
}

// Run loops ServeOne until ctx is cancelled or the channel closes.
func (w *CacheWorker) Run(ctx context.Context) {
	resolver := segipc.ResolverFunc(w.resolve)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := w.Session.ServeOne(resolver); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("pipeline: cache session error", "error", err)
		}
	}
}

func (w *CacheWorker) resolve(path string) (uint64, segipc.ChunkReader, error) {
	size, body, err := w.Store.Open(context.Background(), path)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return 0, nil, segipc.ErrNotFound
		}
		return 0, nil, err
	}
	return size, readCloserChunker{body}, nil
}

// readCloserChunker adapts an io.ReadCloser to segipc.ChunkReader.
type readCloserChunker struct {
	io.ReadCloser
}

func (r readCloserChunker) ReadChunk(p []byte) (int, error) { return r.Read(p) }
