// Package admin serves the diagnostic HTTP surface gfproxy and
// gfcache each run on a port separate from the GETFILE TCP port:
// /healthz, /metrics, and /debug/segments.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SegmentStatusFunc reports the free/in-use state of every segment in
// a pool, keyed by segment id.
type SegmentStatusFunc func() map[uint32]bool

// NewRouter builds the admin surface's chi router. segmentStatus may
// be nil for binaries (like gfcache) that own no segment pool.
func NewRouter(segmentStatus SegmentStatusFunc) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	if segmentStatus != nil {
		r.Get("/debug/segments", func(w http.ResponseWriter, r *http.Request) {
			status := segmentStatus()
			free := 0
			for _, isFree := range status {
				if isFree {
					free++
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"total":    len(status),
				"free":     free,
				"segments": status,
			})
		})
	}

	return r
}

// Serve runs handler on addr until ctx is cancelled, then shuts the
// server down gracefully. It blocks until the server has stopped.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

const shutdownGrace = 5 * time.Second
