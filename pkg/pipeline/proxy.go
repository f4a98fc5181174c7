// Package pipeline wires the GETFILE protocol, the shared-memory IPC
// channel, and the origin fetcher together into the two halves of the
// request pipeline: ProxyHandler answers a GETFILE client off the
// cache's segment exchange, falling back to the origin fetcher on any
// cache miss or IPC failure, and CacheWorker answers the proxy's
// segment requests from the blob store alone.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jonnybach/low-level-file-server/internal/logger"
	"github.com/jonnybach/low-level-file-server/pkg/getfile"
	"github.com/jonnybach/low-level-file-server/pkg/gfserver"
	"github.com/jonnybach/low-level-file-server/pkg/origin"
	"github.com/jonnybach/low-level-file-server/pkg/segipc"
)

const requestReadChunk = 4096

// Result summarizes one handled request, for callers that want to
// record metrics or an access journal entry.
type Result struct {
	Path      string
	Status    getfile.Status
	Bytes     uint64
	ServedVia string
}

// ProxyHandler adapts a segipc.ClientSession into a gfserver.Handler:
// one accepted GETFILE connection in, one GETFILE response (header +
// streamed body) out. Origin is consulted whenever the cache path
// fails before any response header has been sent to the client.
type ProxyHandler struct {
	Session *segipc.ClientSession
	Origin  origin.Fetcher

	// OnComplete, if set, is called once per request with a summary of
	// how it was served. It must not block.
	OnComplete func(Result)
}

// Handle implements gfserver.Handler.
func (h *ProxyHandler) Handle(ctx *gfserver.Context) {
	defer ctx.Conn.Close()

	req, err := readRequest(ctx.Conn)
	if err != nil {
		logger.Warn("pipeline: malformed request", "client", ctx.ClientAddr, "error", err)
		writeResponse(ctx.Conn, getfile.Response{Status: getfile.StatusError})
		h.complete(Result{Status: getfile.StatusError})
		return
	}
	if !req.Valid() {
		writeResponse(ctx.Conn, getfile.Response{Status: getfile.StatusFileNotFound})
		h.complete(Result{Path: req.Path, Status: getfile.StatusFileNotFound})
		return
	}

	var headerWritten bool
	var size uint64
	onSize := func(n uint64) {
		headerWritten = true
		size = n
		writeResponse(ctx.Conn, getfile.Response{Status: getfile.StatusOK, Length: n})
	}
	sink := segipc.ChunkWriterFunc(func(p []byte) error {
		_, err := ctx.Conn.Write(p)
		return err
	})

	_, err = h.Session.Fetch(req.Path, sink, onSize)
	if err == nil {
		h.complete(Result{Path: req.Path, Status: getfile.StatusOK, Bytes: size, ServedVia: "ipc"})
		return
	}
	if headerWritten {
		logger.Warn("pipeline: cache transfer failed mid-stream", "path", req.Path, "error", err)
		h.complete(Result{Path: req.Path, Status: getfile.StatusError, Bytes: size, ServedVia: "ipc"})
		return
	}

	logger.Info("pipeline: cache path failed, falling back to origin", "path", req.Path, "error", err)
	originSize, ferr := h.fetchFromOrigin(ctx.Conn, req.Path)
	if ferr != nil {
		status := getfile.StatusError
		if errors.Is(ferr, origin.ErrNotFound) {
			status = getfile.StatusFileNotFound
		}
		writeResponse(ctx.Conn, getfile.Response{Status: status})
		logger.Warn("pipeline: origin fetch failed", "path", req.Path, "error", ferr)
		h.complete(Result{Path: req.Path, Status: status, ServedVia: "origin"})
		return
	}
	h.complete(Result{Path: req.Path, Status: getfile.StatusOK, Bytes: originSize, ServedVia: "origin"})
}

func (h *ProxyHandler) complete(r Result) {
	if h.OnComplete != nil {
		h.OnComplete(r)
	}
}

// fetchFromOrigin streams path from the origin fetcher straight onto
// conn, writing the GETFILE OK header before the first body byte.
func (h *ProxyHandler) fetchFromOrigin(conn net.Conn, path string) (uint64, error) {
	size, body, err := h.Origin.Fetch(context.Background(), path)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	writeResponse(conn, getfile.Response{Status: getfile.StatusOK, Length: size})
	_, err = io.CopyN(conn, body, int64(size))
	return size, err
}

// readRequest reads off conn until a complete GETFILE request header
// has arrived, tolerating arbitrary chunk boundaries.
func readRequest(conn net.Conn) (getfile.Request, error) {
	parser := &getfile.HeaderParser{}
	buf := make([]byte, requestReadChunk)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			header, _, complete := parser.Feed(buf[:n])
			if complete {
				return getfile.ParseRequest(header)
			}
		}
		if err != nil {
			return getfile.Request{}, fmt.Errorf("pipeline: read request: %w", err)
		}
	}
}

func writeResponse(conn net.Conn, resp getfile.Response) {
	if _, err := conn.Write(resp.Encode()); err != nil {
		logger.Warn("pipeline: write response failed", "error", err)
	}
}
