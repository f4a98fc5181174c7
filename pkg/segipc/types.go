// Package segipc implements the shared-memory IPC channel between a
// gfproxy worker and a gfcache worker: a control-message channel
// multiplexed by message type, plus a pool of fixed-size shared
// segments used for the bulk chunk transfer.
//
// The original design used a System-V message queue (msgget/msgsnd/
// msgrcv) with `mtype` selecting one of several logical channels, and
// a System-V shared memory segment (shmget/shmat) per pooled buffer.
// Go has no standard-library SysV IPC bindings; this package
// reproduces the same multiplexing semantics over a pair of Unix
// domain datagram sockets (one per direction, so a message can never
// be misdelivered to the wrong side) and reproduces "shared memory"
// with file-backed mappings: each segment is a regular file opened by
// both processes and mapped with mmap(MAP_SHARED), so writes from one
// process are visible to the other without a copy through the kernel
// pipe — the same property SysV shared memory provided. See
// DESIGN.md for the substitution rationale.
package segipc

import "fmt"

// Tag identifies the kind of control message on the wire. Values are
// fixed 8-byte ASCII tokens padded with NUL, matching the original's
// fixed-size header strings.
type Tag string

const (
	TagSync  Tag = "SYNC"
	TagSAcks Tag = "S_AKNW"
	TagCAcks Tag = "C_AKNW"
	TagRqst  Tag = "RQST"
	TagRspns Tag = "RSPNS"
	TagRdy   Tag = "RDY"
	TagErr   Tag = "ERR"
)

// Error codes carried in IpcContext.ErrStatus, mirroring the original
// shm_channel.h macros.
const (
	StatusOK       = 200
	StatusNotFound = 404
)

// MaxPathLen bounds the path field, matching the original's 511-byte
// fixed buffer (plus NUL).
const MaxPathLen = 511

// Context is the unit of control exchanged over the message channel.
// It is copied by value into each message; the RDY/C_AKNW loop builds
// a fresh Context per message.
type Context struct {
	Tag       Tag
	Path      string
	FileSize  uint64
	SegID     uint32
	SegTotal  uint32
	SegUsed   uint32
	ErrStatus int
}

// validate rejects a Context that can't be serialized onto the wire.
func (c Context) validate() error {
	if len(c.Path) > MaxPathLen {
		return fmt.Errorf("segipc: path exceeds %d bytes", MaxPathLen)
	}
	return nil
}

// mtype values for the main (non-segment-specific) channels, per the
// topology in spec.md §4.4.
const (
	MtypeClientToServer = 1
	MtypeServerToClient = 2
)

// ClientMtype returns the per-segment channel the proxy sends its
// C_AKNW acknowledgements on and the cache worker listens on for
// segment id.
func ClientMtype(segID uint32) uint32 { return segID + 3 }

// ServerMtype returns the per-segment channel the cache sends
// S_AKNW/RSPNS/RDY/ERR on and the proxy worker listens on for segment
// id.
func ServerMtype(segID uint32) uint32 { return segID + 4 }
