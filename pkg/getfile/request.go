package getfile

import (
	"fmt"
	"strings"
)

// Request is a parsed or to-be-encoded GETFILE request line.
type Request struct {
	Method Method
	Path   string
}

// Encode renders the request as wire bytes, including the terminator.
func (r Request) Encode() []byte {
	return []byte(fmt.Sprintf("%s %s %s%s", Scheme, r.Method, r.Path, Terminator))
}

// ParseRequest parses a complete request header (without the
// terminator, which the caller has already located and stripped).
func ParseRequest(header string) (Request, error) {
	fields := strings.Split(header, " ")
	if len(fields) != 3 || fields[0] != Scheme {
		return Request{}, ErrInvalidScheme
	}
	return Request{Method: Method(fields[1]), Path: fields[2]}, nil
}

// Valid reports whether the request names the GET method and an
// absolute path. HEAD is a reserved token and is never valid.
func (r Request) Valid() bool {
	return r.Method == Get && strings.HasPrefix(r.Path, "/")
}
