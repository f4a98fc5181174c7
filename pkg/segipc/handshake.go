package segipc

import (
	"fmt"
	"io"
	"sync"
)

// ChunkWriter receives successive chunks of a file body as they
// arrive over the segment channel. Implementations typically forward
// the bytes onto a framed TCP connection back to the GETFILE client.
type ChunkWriter interface {
	WriteChunk(p []byte) error
}

// ChunkWriterFunc adapts a function to ChunkWriter.
type ChunkWriterFunc func(p []byte) error

func (f ChunkWriterFunc) WriteChunk(p []byte) error { return f(p) }

// ChunkReader supplies successive chunks of a file body to be pushed
// into segments. Implementations typically read from a blob store or
// an origin fetcher.
type ChunkReader interface {
	// ReadChunk fills p and returns the number of bytes written plus
	// io.EOF once the body is exhausted. It follows io.Reader's
	// "may return n > 0 and err == io.EOF in the same call" contract.
	ReadChunk(p []byte) (n int, err error)
}

// ClientSession is the proxy side of one request's segment exchange:
// acquire a segment, ask the cache to fill it, and drain each
// delivered chunk through sink.
type ClientSession struct {
	ch   *Channel
	pool *Pool

	mu     sync.Mutex
	synced map[uint32]bool
}

// NewClientSession binds a proxy-side session to ch and pool. One
// ClientSession is shared across requests handled by a single proxy
// worker pool; it is safe for concurrent use.
func NewClientSession(ch *Channel, pool *Pool) *ClientSession {
	return &ClientSession{ch: ch, pool: pool, synced: make(map[uint32]bool)}
}

// Fetch drives the full exchange for path: the SYNC handshake (once
// per segment id), RQST, RSPNS, and the RDY/C_AKNW loop, streaming
// each delivered chunk to sink. It returns the advertised file size.
// A StatusNotFound response is reported as ErrNotFound.
//
// onSize, if non-nil, is invoked exactly once with the advertised
// file size as soon as RSPNS arrives and before any chunk reaches
// sink — callers use it to emit a GETFILE response header whose
// Length must be known before the body starts.
func (s *ClientSession) Fetch(path string, sink ChunkWriter, onSize func(uint64)) (uint64, error) {
	seg, err := s.pool.Acquire()
	if err != nil {
		return 0, fmt.Errorf("segipc: acquire segment: %w", err)
	}
	defer s.pool.Release(seg.ID)

	if err := s.ensureSynced(seg.ID); err != nil {
		return 0, err
	}

	if err := s.ch.Send(MtypeClientToServer, Context{
		Tag:      TagRqst,
		Path:     path,
		SegID:    seg.ID,
		SegTotal: uint32(s.pool.Size()),
	}); err != nil {
		return 0, fmt.Errorf("segipc: send RQST: %w", err)
	}

	resp, err := s.ch.Receive(ServerMtype(seg.ID))
	if err != nil {
		return 0, fmt.Errorf("segipc: await RSPNS: %w", err)
	}
	if resp.Tag == TagErr || resp.ErrStatus == StatusNotFound {
		return 0, ErrNotFound
	}
	if resp.Tag != TagRspns {
		return 0, fmt.Errorf("segipc: expected RSPNS, got %s", resp.Tag)
	}

	fileSize := resp.FileSize
	if onSize != nil {
		onSize(fileSize)
	}
	var received uint64
	for received < fileSize {
		chunk, err := s.ch.Receive(ServerMtype(seg.ID))
		if err != nil {
			return 0, fmt.Errorf("segipc: await RDY: %w", err)
		}
		if chunk.Tag != TagRdy {
			return 0, fmt.Errorf("segipc: expected RDY, got %s", chunk.Tag)
		}
		if err := sink.WriteChunk(seg.Bytes()[:chunk.SegUsed]); err != nil {
			return 0, fmt.Errorf("segipc: write chunk: %w", err)
		}
		received += uint64(chunk.SegUsed)

		if err := s.ch.Send(ClientMtype(seg.ID), Context{
			Tag:   TagCAcks,
			SegID: seg.ID,
		}); err != nil {
			return 0, fmt.Errorf("segipc: send C_AKNW: %w", err)
		}
	}
	return fileSize, nil
}

// ensureSynced performs the SYNC/S_AKNW/C_AKNW three-way handshake for
// segID the first time this session uses it, confirming both sides
// agree the segment mapping is live before any bulk transfer begins.
func (s *ClientSession) ensureSynced(segID uint32) error {
	s.mu.Lock()
	if s.synced[segID] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.ch.Send(MtypeClientToServer, Context{Tag: TagSync, SegID: segID}); err != nil {
		return fmt.Errorf("segipc: send SYNC: %w", err)
	}
	ack, err := s.ch.Receive(ServerMtype(segID))
	if err != nil {
		return fmt.Errorf("segipc: await S_AKNW: %w", err)
	}
	if ack.Tag != TagSAcks {
		return fmt.Errorf("segipc: expected S_AKNW, got %s", ack.Tag)
	}
	if err := s.ch.Send(ClientMtype(segID), Context{Tag: TagCAcks, SegID: segID}); err != nil {
		return fmt.Errorf("segipc: send C_AKNW: %w", err)
	}

	s.mu.Lock()
	s.synced[segID] = true
	s.mu.Unlock()
	return nil
}

// ErrNotFound is returned by ClientSession.Fetch when the cache
// reports the requested path does not exist.
var ErrNotFound = fmt.Errorf("segipc: file not found")

// ServerSession is the cache side of one request's segment exchange:
// wait for a proxy RQST, resolve it via resolve, then push the body
// through the attached segment in RDY/C_AKNW lockstep.
type ServerSession struct {
	ch       *Channel
	attacher *Attacher
}

// NewServerSession binds a cache-side session to ch and attacher.
func NewServerSession(ch *Channel, attacher *Attacher) *ServerSession {
	return &ServerSession{ch: ch, attacher: attacher}
}

// Resolver opens the body for a requested path, returning its total
// size or ErrNotFound.
type Resolver interface {
	Resolve(path string) (size uint64, body ChunkReader, err error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(path string) (uint64, ChunkReader, error)

func (f ResolverFunc) Resolve(path string) (uint64, ChunkReader, error) { return f(path) }

// ServeOne blocks for a single SYNC or RQST message and handles it to
// completion. Call it in a loop from a cache worker goroutine.
func (s *ServerSession) ServeOne(resolve Resolver) error {
	msg, err := s.ch.Receive(MtypeClientToServer)
	if err != nil {
		return fmt.Errorf("segipc: await request: %w", err)
	}

	switch msg.Tag {
	case TagSync:
		return s.handleSync(msg.SegID)
	case TagRqst:
		return s.handleRequest(msg, resolve)
	default:
		return fmt.Errorf("segipc: unexpected tag %s on request channel", msg.Tag)
	}
}

func (s *ServerSession) handleSync(segID uint32) error {
	if _, err := s.attacher.Attach(segID); err != nil {
		return fmt.Errorf("segipc: attach segment %d: %w", segID, err)
	}
	if err := s.ch.Send(ServerMtype(segID), Context{Tag: TagSAcks, SegID: segID}); err != nil {
		return fmt.Errorf("segipc: send S_AKNW: %w", err)
	}
	ack, err := s.ch.Receive(ClientMtype(segID))
	if err != nil {
		return fmt.Errorf("segipc: await C_AKNW: %w", err)
	}
	if ack.Tag != TagCAcks {
		return fmt.Errorf("segipc: expected C_AKNW, got %s", ack.Tag)
	}
	return nil
}

func (s *ServerSession) handleRequest(req Context, resolve Resolver) error {
	seg, err := s.attacher.Attach(req.SegID)
	if err != nil {
		return fmt.Errorf("segipc: attach segment %d: %w", req.SegID, err)
	}

	size, body, err := resolve.Resolve(req.Path)
	if err != nil {
		sendErr := s.ch.Send(ServerMtype(req.SegID), Context{
			Tag:       TagErr,
			SegID:     req.SegID,
			ErrStatus: StatusNotFound,
		})
		if sendErr != nil {
			return fmt.Errorf("segipc: send ERR: %w", sendErr)
		}
		return nil
	}

	if err := s.ch.Send(ServerMtype(req.SegID), Context{
		Tag:      TagRspns,
		SegID:    req.SegID,
		FileSize: size,
	}); err != nil {
		return fmt.Errorf("segipc: send RSPNS: %w", err)
	}

	buf := seg.Bytes()
	var sent uint64
	for sent < size {
		n, readErr := body.ReadChunk(buf)
		if n > 0 {
			if err := s.ch.Send(ServerMtype(req.SegID), Context{
				Tag:     TagRdy,
				SegID:   req.SegID,
				SegUsed: uint32(n),
			}); err != nil {
				return fmt.Errorf("segipc: send RDY: %w", err)
			}
			ack, err := s.ch.Receive(ClientMtype(req.SegID))
			if err != nil {
				return fmt.Errorf("segipc: await C_AKNW: %w", err)
			}
			if ack.Tag != TagCAcks {
				return fmt.Errorf("segipc: expected C_AKNW, got %s", ack.Tag)
			}
			sent += uint64(n)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return fmt.Errorf("segipc: read body: %w", readErr)
		}
	}
	return nil
}
