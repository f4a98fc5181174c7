package getfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Response is a parsed or to-be-encoded GETFILE response header.
type Response struct {
	Status Status
	Length uint64 // only meaningful when Status == StatusOK
}

// Encode renders the response header as a single buffer. Only
// StatusOK carries a length field. The caller writes this buffer in
// one call before ever writing body bytes.
func (r Response) Encode() []byte {
	if r.Status == StatusOK {
		return []byte(fmt.Sprintf("%s %s %d%s", Scheme, r.Status, r.Length, Terminator))
	}
	return []byte(fmt.Sprintf("%s %s%s", Scheme, r.Status, Terminator))
}

// ParseResponseHeader parses a complete response header (terminator
// already located and stripped by the caller).
func ParseResponseHeader(header string) (Response, error) {
	fields := strings.Split(header, " ")
	if len(fields) < 2 || fields[0] != Scheme {
		return Response{}, ErrInvalidScheme
	}

	resp := Response{Status: Status(fields[1])}
	switch resp.Status {
	case StatusOK:
		if len(fields) != 3 {
			return Response{}, fmt.Errorf("getfile: OK response missing length field")
		}
		length, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Response{}, fmt.Errorf("getfile: invalid length field: %w", err)
		}
		resp.Length = length
	case StatusFileNotFound, StatusError:
		if len(fields) != 2 {
			return Response{}, fmt.Errorf("getfile: %s response must not carry a length field", resp.Status)
		}
	default:
		return Response{}, fmt.Errorf("getfile: unknown status %q", fields[1])
	}
	return resp, nil
}

// HeaderParser accumulates bytes from a stream, arbitrarily chunked,
// until the four-byte "\r\n\r\n" terminator appears. It exposes the
// header byte count so body accounting can begin immediately after it,
// and hands back any bytes received past the terminator as the
// leading portion of the body.
//
// The terminator is treated as exactly four bytes; see DESIGN.md for
// the source arithmetic this resolves.
type HeaderParser struct {
	buf       []byte
	done      bool
	headerLen int
}

// Feed appends newly-read bytes to the accumulator. It returns the
// parsed header text (without the terminator), any body bytes that
// arrived in the same chunk as the terminator, and whether the
// terminator has been found yet.
func (p *HeaderParser) Feed(chunk []byte) (header string, leadingBody []byte, complete bool) {
	if p.done {
		return "", chunk, true
	}
	p.buf = append(p.buf, chunk...)

	idx := strings.Index(string(p.buf), Terminator)
	if idx < 0 {
		return "", nil, false
	}

	p.done = true
	p.headerLen = idx + len(Terminator)
	header = string(p.buf[:idx])
	leadingBody = append([]byte(nil), p.buf[idx+len(Terminator):]...)
	return header, leadingBody, true
}

// HeaderLen returns the number of bytes consumed by the header
// (including the terminator), valid only once Feed has reported
// complete == true.
func (p *HeaderParser) HeaderLen() int {
	return p.headerLen
}
