package segipc

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/jonnybach/low-level-file-server/pkg/workqueue"
)

// Segment is one fixed-size shared-memory region backing an in-flight
// chunk transfer. It is backed by a regular file mapped MAP_SHARED so
// that writes made by one process (the cache, via pwrite-equivalent
// mmap writes) are immediately visible to the other (the proxy)
// without an intervening copy — the same guarantee System-V shared
// memory gives the original implementation.
type Segment struct {
	ID       uint32
	Capacity uint32

	file *os.File
	data []byte
}

// Bytes returns the full backing region. Callers slice it to
// Capacity or to the `used` length reported for the current chunk.
func (s *Segment) Bytes() []byte { return s.data }

func segmentPath(dir string, id uint32) string {
	return filepath.Join(dir, fmt.Sprintf("segment-%d", id))
}

// createSegment creates (or truncates) the backing file and maps it.
// Only the proxy, which owns the segment pool, calls this.
func createSegment(dir string, id uint32, size uint32) (*Segment, error) {
	path := segmentPath(dir, id)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("segipc: create segment %d: %w", id, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("segipc: size segment %d: %w", id, err)
	}
	return mapSegment(f, id, size)
}

// attachSegment opens an existing segment file and maps it. The cache
// daemon calls this the first time a request references a given
// segment id; the mapping is then kept for the daemon's lifetime.
func attachSegment(dir string, id uint32, size uint32) (*Segment, error) {
	path := segmentPath(dir, id)
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("segipc: attach segment %d: %w", id, err)
	}
	return mapSegment(f, id, size)
}

func mapSegment(f *os.File, id uint32, size uint32) (*Segment, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segipc: mmap segment %d: %w", id, err)
	}
	return &Segment{ID: id, Capacity: size, file: f, data: data}, nil
}

func (s *Segment) unmap() error {
	if err := unix.Munmap(s.data); err != nil {
		s.file.Close()
		return fmt.Errorf("segipc: munmap segment %d: %w", s.ID, err)
	}
	return s.file.Close()
}

// Pool is the proxy's free-segment pool: N identically-sized shared
// segments, each either on the free queue or checked out to exactly
// one proxy worker. Acquire blocks when the pool is exhausted — this is
// the backpressure mechanism from spec.md §7, not an error.
type Pool struct {
	dir      string
	size     uint32
	segments map[uint32]*Segment
	free     *workqueue.Queue[uint32]
}

// NewPool creates dir (if needed) and n segments of segSize bytes,
// all initially free.
func NewPool(dir string, n int, segSize uint32) (*Pool, error) {
	if segSize == 0 {
		return nil, fmt.Errorf("segipc: segment size must be nonzero")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("segipc: create segment dir %s: %w", dir, err)
	}

	p := &Pool{
		dir:      dir,
		size:     segSize,
		segments: make(map[uint32]*Segment, n),
		free:     workqueue.New[uint32](),
	}
	for i := 0; i < n; i++ {
		id := uint32(i)
		seg, err := createSegment(dir, id, segSize)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.segments[id] = seg
		p.free.Submit(id)
	}
	return p, nil
}

// Acquire blocks until a segment is free, then checks it out.
func (p *Pool) Acquire() (*Segment, error) {
	id, ok := p.free.Pop()
	if !ok {
		return nil, fmt.Errorf("segipc: segment pool closed")
	}
	return p.segments[id], nil
}

// Release returns a segment to the free pool.
func (p *Pool) Release(id uint32) {
	p.free.Submit(id)
}

// Size returns the number of segments in the pool.
func (p *Pool) Size() int {
	return len(p.segments)
}

// Status reports, for each segment id, whether it is currently free —
// used by the admin surface's /debug/segments endpoint.
func (p *Pool) Status() map[uint32]bool {
	freeIDs := p.free.Snapshot()
	status := make(map[uint32]bool, len(p.segments))
	for id := range p.segments {
		status[id] = false
	}
	for _, id := range freeIDs {
		status[id] = true
	}
	return status
}

// Close tears down every segment's mapping and backing file. Safe to
// call with workers still mid-operation; they will fail their next
// mmap access and treat it as a transport error.
func (p *Pool) Close() error {
	var firstErr error
	for id, seg := range p.segments {
		if err := seg.unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
		_ = os.Remove(segmentPath(p.dir, id))
	}
	return firstErr
}

// Attacher is the cache daemon's lazy, on-demand segment mapper: it
// never creates segments (the proxy owns that), only attaches to ones
// a request references, and keeps the mapping for the daemon's
// lifetime since the proxy reuses the same bounded set of segment ids.
type Attacher struct {
	dir  string
	size uint32

	mu       sync.Mutex
	attached map[uint32]*Segment
}

// NewAttacher constructs an Attacher for segments of segSize bytes
// living in dir.
func NewAttacher(dir string, segSize uint32) *Attacher {
	return &Attacher{dir: dir, size: segSize, attached: make(map[uint32]*Segment)}
}

// Attach returns the mapping for id, attaching it the first time it
// is referenced.
func (a *Attacher) Attach(id uint32) (*Segment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if seg, ok := a.attached[id]; ok {
		return seg, nil
	}
	seg, err := attachSegment(a.dir, id, a.size)
	if err != nil {
		return nil, err
	}
	a.attached[id] = seg
	return seg, nil
}

// Close unmaps every segment the daemon has attached.
func (a *Attacher) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var firstErr error
	for _, seg := range a.attached {
		if err := seg.unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
