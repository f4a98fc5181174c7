package segipc

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// ReceiveTimeout bounds how long a Receive call waits for a message
// bearing the requested mtype. The original implementation polled
// msgrcv with IPC_NOWAIT roughly 25 times at a 2-second interval
// (~50s total); this channel instead blocks on a per-mtype delivery
// channel for the same total duration, which is the idiomatic Go
// equivalent of "blocking receive with an overall deadline".
var ReceiveTimeout = 50 * time.Second

// Channel is one endpoint of the control-message channel described in
// segipc's package doc: a Unix datagram socket bound to localPath,
// sending to peerPath, with messages demultiplexed by mtype exactly
// as the original's single message queue demultiplexed by msg type.
type Channel struct {
	conn      *net.UnixConn
	peerAddr  *net.UnixAddr
	localPath string

	mu      sync.Mutex
	waiters map[uint32]chan Context
	closed  bool
	done    chan struct{}
}

// NewChannel binds a receiving socket at localPath (removing any stale
// socket file first) and resolves peerPath as the send destination.
// Both paths must be on a filesystem that supports Unix domain
// sockets (any local filesystem; tmpfs is typical).
func NewChannel(localPath, peerPath string) (*Channel, error) {
	_ = os.Remove(localPath)

	localAddr, err := net.ResolveUnixAddr("unixgram", localPath)
	if err != nil {
		return nil, fmt.Errorf("segipc: resolve local addr: %w", err)
	}
	conn, err := net.ListenUnixgram("unixgram", localAddr)
	if err != nil {
		return nil, fmt.Errorf("segipc: listen on %s: %w", localPath, err)
	}

	peerAddr, err := net.ResolveUnixAddr("unixgram", peerPath)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("segipc: resolve peer addr: %w", err)
	}

	ch := &Channel{
		conn:      conn,
		peerAddr:  peerAddr,
		localPath: localPath,
		waiters:   make(map[uint32]chan Context),
		done:      make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

// Send encodes ctx and writes it to the peer, tagged with mtype.
func (c *Channel) Send(mtype uint32, ctx Context) error {
	payload, err := encode(mtype, ctx)
	if err != nil {
		return err
	}
	if _, err := c.conn.WriteToUnix(payload, c.peerAddr); err != nil {
		return fmt.Errorf("segipc: send mtype=%d: %w", mtype, err)
	}
	return nil
}

// Receive blocks until a message tagged with mtype arrives or
// ReceiveTimeout elapses. Messages bearing other mtypes are buffered
// for their own future Receive calls — exactly the selectivity a
// msgrcv(..., mtype, ...) call gave the original implementation.
func (c *Channel) Receive(mtype uint32) (Context, error) {
	waiter := c.waiterFor(mtype)
	select {
	case ctx := <-waiter:
		return ctx, nil
	case <-time.After(ReceiveTimeout):
		return Context{}, fmt.Errorf("segipc: receive mtype=%d: %w", mtype, os.ErrDeadlineExceeded)
	case <-c.done:
		return Context{}, fmt.Errorf("segipc: channel closed while waiting on mtype=%d", mtype)
	}
}

func (c *Channel) waiterFor(mtype uint32) chan Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.waiters[mtype]
	if !ok {
		ch = make(chan Context, 4)
		c.waiters[mtype] = ch
	}
	return ch
}

func (c *Channel) readLoop() {
	buf := make([]byte, wireSize)
	for {
		n, _, err := c.conn.ReadFromUnix(buf)
		if err != nil {
			return
		}
		if n != wireSize {
			continue // malformed datagram, drop
		}
		mtype, ctx, err := decode(buf)
		if err != nil {
			continue
		}

		waiter := c.waiterFor(mtype)
		select {
		case waiter <- ctx:
		default:
			// A full buffer here means a protocol violation: the
			// per-request channel handshake guarantees at most one
			// outstanding message per mtype at a time.
		}
	}
}

// Close shuts down the socket and removes the backing file.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	err := c.conn.Close()
	_ = os.Remove(c.localPath)
	return err
}
