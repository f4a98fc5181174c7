package gfclient

import (
	"bytes"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnybach/low-level-file-server/pkg/getfile"
)

// fakeServer accepts one connection, reads a request line, and writes
// a canned response, standing in for gfproxy in these tests.
func fakeServer(t *testing.T, respond func(conn net.Conn)) (addr string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		_, _ = conn.Read(buf)
		respond(conn)
	}()
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c, err := Dial(host, port)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientPerform(t *testing.T) {
	t.Run("ReadsWholeBodyFromSingleWrite", func(t *testing.T) {
		body := "file contents here"
		addr := fakeServer(t, func(conn net.Conn) {
			resp := getfile.Response{Status: getfile.StatusOK, Length: uint64(len(body))}
			_, _ = conn.Write(resp.Encode())
			_, _ = conn.Write([]byte(body))
		})

		c := dial(t, addr)
		var got bytes.Buffer
		resp, err := c.Perform(getfile.Request{Method: getfile.Get, Path: "/file.txt"}, &got)
		require.NoError(t, err)
		assert.Equal(t, getfile.StatusOK, resp.Status)
		assert.Equal(t, body, got.String())
	})

	t.Run("ReportsFileNotFoundWithoutReadingBody", func(t *testing.T) {
		addr := fakeServer(t, func(conn net.Conn) {
			resp := getfile.Response{Status: getfile.StatusFileNotFound}
			_, _ = conn.Write(resp.Encode())
		})

		c := dial(t, addr)
		var got bytes.Buffer
		resp, err := c.Perform(getfile.Request{Method: getfile.Get, Path: "/missing.txt"}, &got)
		require.NoError(t, err)
		assert.Equal(t, getfile.StatusFileNotFound, resp.Status)
		assert.Equal(t, 0, got.Len())
	})

	t.Run("HandlesHeaderAndBodyInSeparateWrites", func(t *testing.T) {
		body := "second write body"
		addr := fakeServer(t, func(conn net.Conn) {
			resp := getfile.Response{Status: getfile.StatusOK, Length: uint64(len(body))}
			header := resp.Encode()
			_, _ = conn.Write(header[:len(header)-2])
			_, _ = conn.Write(header[len(header)-2:])
			_, _ = conn.Write([]byte(body))
		})

		c := dial(t, addr)
		var got bytes.Buffer
		resp, err := c.Perform(getfile.Request{Method: getfile.Get, Path: "/x.txt"}, &got)
		require.NoError(t, err)
		assert.EqualValues(t, len(body), resp.Length)
		assert.Equal(t, body, got.String())
	})
}
