// Package ftransport provides the byte-level TCP transport shared by
// the GETFILE client and server: connect/accept with address reuse
// and fixed read/write deadlines.
package ftransport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Timeout is applied as both the read and write deadline on every
// connection this package hands out, matching the original
// implementation's 50-second SO_RCVTIMEO/SO_SNDTIMEO socket options.
const Timeout = 50 * time.Second

// Dial resolves host:port and establishes a client connection, failing
// fast if the peer is unreachable. Any setup error here is fatal for
// the current operation; gfclient.Dial passes it on as a plain error,
// with no getfile.Status attached.
func Dial(host string, port int) (net.Conn, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, Timeout)
	if err != nil {
		return nil, fmt.Errorf("ftransport: dial %s: %w", addr, err)
	}
	if err := applyDeadline(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Listener wraps a net.Listener whose accepted connections get the
// standard deadlines.
type Listener struct {
	net.Listener
}

// Listen binds a TCP listener on port with reuse of the address
// (Go's net package enables SO_REUSEADDR for TCP listeners by
// default). The backlog argument is accepted but not applied; the
// listener uses the operating system's default backlog.
func Listen(port int, backlog int) (*Listener, error) {
	lc := net.ListenConfig{}
	l, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("ftransport: listen :%d: %w", port, err)
	}
	_ = backlog // recorded for callers that want to report it; net.Listener has no direct knob
	return &Listener{Listener: l}, nil
}

// Accept blocks for the next inbound connection and applies the
// standard read/write deadlines before returning it.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("ftransport: accept: %w", err)
	}
	if err := applyDeadline(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func applyDeadline(conn net.Conn) error {
	if err := conn.SetDeadline(time.Now().Add(Timeout)); err != nil {
		return fmt.Errorf("ftransport: set deadline: %w", err)
	}
	return nil
}
