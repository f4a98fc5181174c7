package pipeline

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnybach/low-level-file-server/pkg/blobstore"
	"github.com/jonnybach/low-level-file-server/pkg/getfile"
	"github.com/jonnybach/low-level-file-server/pkg/gfserver"
	"github.com/jonnybach/low-level-file-server/pkg/origin"
	"github.com/jonnybach/low-level-file-server/pkg/segipc"
)

type stubOrigin struct {
	bodies map[string]string
}

func (s *stubOrigin) Fetch(ctx context.Context, path string) (uint64, io.ReadCloser, error) {
	body, ok := s.bodies[path]
	if !ok {
		return 0, nil, origin.ErrNotFound
	}
	return uint64(len(body)), io.NopCloser(strings.NewReader(body)), nil
}

// setup wires one proxy-side segipc.ClientSession to one cache-side
// CacheWorker over a real socket pair, mirroring the topology gfproxy
// and gfcache run in production.
func setup(t *testing.T, store blobstore.Store) *segipc.ClientSession {
	t.Helper()
	segDir := t.TempDir()
	sockDir := t.TempDir()
	proxyPath := filepath.Join(sockDir, "proxy.sock")
	cachePath := filepath.Join(sockDir, "cache.sock")

	proxyCh, err := segipc.NewChannel(proxyPath, cachePath)
	require.NoError(t, err)
	cacheCh, err := segipc.NewChannel(cachePath, proxyPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = proxyCh.Close()
		_ = cacheCh.Close()
	})

	pool, err := segipc.NewPool(segDir, 2, 32)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	attacher := segipc.NewAttacher(segDir, 32)
	t.Cleanup(func() { _ = attacher.Close() })

	session := segipc.NewClientSession(proxyCh, pool)
	server := segipc.NewServerSession(cacheCh, attacher)

	worker := &CacheWorker{Session: server, Store: store}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go worker.Run(ctx)

	return session
}

func TestProxyHandlerServesFromCacheAndOrigin(t *testing.T) {
	store, err := blobstore.NewFSStore(t.TempDir())
	require.NoError(t, err)
	org := &stubOrigin{bodies: map[string]string{"/from-origin.txt": "fetched from origin"}}

	const cachedBody = "served straight from the shared-memory cache"
	require.NoError(t, store.Put(context.Background(), "/cached.txt", uint64(len(cachedBody)), strings.NewReader(cachedBody)))

	session := setup(t, store)
	handler := &ProxyHandler{Session: session, Origin: org}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			handler.Handle(&gfserver.Context{Conn: conn, ClientAddr: conn.RemoteAddr().String()})
		}
	}()

	doRequest := func(path string) (getfile.Response, string) {
		host, portStr, err := net.SplitHostPort(ln.Addr().String())
		require.NoError(t, err)
		port, err := strconv.Atoi(portStr)
		require.NoError(t, err)
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 2*time.Second)
		require.NoError(t, err)
		defer conn.Close()

		req := getfile.Request{Method: getfile.Get, Path: path}
		_, err = conn.Write(req.Encode())
		require.NoError(t, err)

		parser := &getfile.HeaderParser{}
		buf := make([]byte, 4096)
		var header string
		var leading []byte
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				var complete bool
				header, leading, complete = parser.Feed(buf[:n])
				if complete {
					break
				}
			}
			require.NoError(t, err)
		}
		resp, err := getfile.ParseResponseHeader(header)
		require.NoError(t, err)

		body := string(leading)
		if resp.Status == getfile.StatusOK {
			for uint64(len(body)) < resp.Length {
				n, err := conn.Read(buf)
				body += string(buf[:n])
				if err != nil {
					break
				}
			}
		}
		return resp, body
	}

	t.Run("ServesFromCacheOnHit", func(t *testing.T) {
		resp, body := doRequest("/cached.txt")
		assert.Equal(t, getfile.StatusOK, resp.Status)
		assert.Equal(t, uint64(len(cachedBody)), resp.Length)
		assert.Equal(t, cachedBody, body)
	})

	t.Run("FetchesFromOriginOnCacheMiss", func(t *testing.T) {
		resp, body := doRequest("/from-origin.txt")
		assert.Equal(t, getfile.StatusOK, resp.Status)
		assert.Equal(t, "fetched from origin", body)
	})

	t.Run("SecondRequestAlsoFallsThroughToOrigin", func(t *testing.T) {
		// The cache daemon never learns about an origin-served file on
		// its own; populating it is a separate concern (see the blob
		// store's own tests), so a repeat request still misses the
		// cache and is served by origin again.
		resp, body := doRequest("/from-origin.txt")
		assert.Equal(t, getfile.StatusOK, resp.Status)
		assert.Equal(t, "fetched from origin", body)
	})

	t.Run("MissingEverywhereReportsFileNotFound", func(t *testing.T) {
		resp, _ := doRequest("/nowhere.txt")
		assert.Equal(t, getfile.StatusFileNotFound, resp.Status)
	})
}
