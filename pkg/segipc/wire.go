package segipc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wireSize is the fixed on-the-wire size of one message: mtype
// selector + tag + path + the remaining Context fields. Fixing the
// size keeps the datagram framing trivial and mirrors the original's
// fixed-size msgbuf struct.
const wireSize = 4 + 8 + 2 + MaxPathLen + 8 + 4 + 4 + 4 + 4

// encode serializes mtype and ctx into a fixed-size datagram payload.
func encode(mtype uint32, ctx Context) ([]byte, error) {
	if err := ctx.validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, wireSize)
	w := buf

	binary.BigEndian.PutUint32(w, mtype)
	w = w[4:]

	var tagBuf [8]byte
	copy(tagBuf[:], ctx.Tag)
	copy(w, tagBuf[:])
	w = w[8:]

	binary.BigEndian.PutUint16(w, uint16(len(ctx.Path)))
	w = w[2:]
	copy(w, ctx.Path)
	w = w[MaxPathLen:]

	binary.BigEndian.PutUint64(w, ctx.FileSize)
	w = w[8:]
	binary.BigEndian.PutUint32(w, ctx.SegID)
	w = w[4:]
	binary.BigEndian.PutUint32(w, ctx.SegTotal)
	w = w[4:]
	binary.BigEndian.PutUint32(w, ctx.SegUsed)
	w = w[4:]
	binary.BigEndian.PutUint32(w, uint32(int32(ctx.ErrStatus)))

	return buf, nil
}

// decode parses a fixed-size datagram payload back into an mtype and Context.
func decode(buf []byte) (uint32, Context, error) {
	if len(buf) != wireSize {
		return 0, Context{}, fmt.Errorf("segipc: malformed message: got %d bytes, want %d", len(buf), wireSize)
	}

	r := buf
	mtype := binary.BigEndian.Uint32(r)
	r = r[4:]

	tagBuf := r[:8]
	tag := Tag(bytes.TrimRight(tagBuf, "\x00"))
	r = r[8:]

	pathLen := binary.BigEndian.Uint16(r)
	r = r[2:]
	if int(pathLen) > MaxPathLen {
		return 0, Context{}, fmt.Errorf("segipc: path length %d exceeds max %d", pathLen, MaxPathLen)
	}
	path := string(r[:pathLen])
	r = r[MaxPathLen:]

	fileSize := binary.BigEndian.Uint64(r)
	r = r[8:]
	segID := binary.BigEndian.Uint32(r)
	r = r[4:]
	segTotal := binary.BigEndian.Uint32(r)
	r = r[4:]
	segUsed := binary.BigEndian.Uint32(r)
	r = r[4:]
	errStatus := int32(binary.BigEndian.Uint32(r))

	return mtype, Context{
		Tag:       tag,
		Path:      path,
		FileSize:  fileSize,
		SegID:     segID,
		SegTotal:  segTotal,
		SegUsed:   segUsed,
		ErrStatus: int(errStatus),
	}, nil
}
