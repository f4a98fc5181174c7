// Package gfclient implements the client side of the GETFILE wire
// protocol over a framed TCP connection: send a request, parse the
// streamed response header, then drain the body to a sink.
package gfclient

import (
	"fmt"
	"io"
	"net"

	"github.com/jonnybach/low-level-file-server/pkg/ftransport"
	"github.com/jonnybach/low-level-file-server/pkg/getfile"
)

// readChunkSize bounds each read off the wire while hunting for the
// header terminator and while draining the body.
const readChunkSize = 64 << 10

// Client holds one GETFILE connection. It is not safe for concurrent
// use by multiple goroutines; callers needing concurrency dial
// multiple Clients.
type Client struct {
	conn net.Conn
}

// Dial opens a framed TCP connection to host:port.
func Dial(host string, port int) (*Client, error) {
	conn, err := ftransport.Dial(host, port)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Perform sends req and streams the response body into sink, in
// order: the request is a single write, the header is read
// incrementally in readChunkSize pieces until the terminator appears,
// and the remaining declared Length bytes are copied onto sink.
func (c *Client) Perform(req getfile.Request, sink io.Writer) (getfile.Response, error) {
	if _, err := c.conn.Write(req.Encode()); err != nil {
		return getfile.Response{}, fmt.Errorf("gfclient: send request: %w", err)
	}

	parser := &getfile.HeaderParser{}
	buf := make([]byte, readChunkSize)
	var header string
	var leading []byte
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			var complete bool
			header, leading, complete = parser.Feed(buf[:n])
			if complete {
				break
			}
		}
		if err != nil {
			return getfile.Response{}, fmt.Errorf("gfclient: read response header: %w", err)
		}
	}

	resp, err := getfile.ParseResponseHeader(header)
	if err != nil {
		return getfile.Response{}, fmt.Errorf("gfclient: parse response header: %w", err)
	}
	if resp.Status != getfile.StatusOK {
		return resp, nil
	}

	if len(leading) > 0 {
		if _, err := sink.Write(leading); err != nil {
			return resp, fmt.Errorf("gfclient: write leading body: %w", err)
		}
	}
	var remaining uint64
	if resp.Length > uint64(len(leading)) {
		remaining = resp.Length - uint64(len(leading))
	}
	if remaining > 0 {
		if _, err := io.CopyN(sink, c.conn, int64(remaining)); err != nil {
			return resp, fmt.Errorf("gfclient: read body: %w", err)
		}
	}
	return resp, nil
}
