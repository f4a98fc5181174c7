package getfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Request encode/parse
// ============================================================================

func TestRequestRoundTrip(t *testing.T) {
	t.Run("EncodesGetRequest", func(t *testing.T) {
		req := Request{Method: Get, Path: "/a.txt"}
		assert.Equal(t, "GETFILE GET /a.txt\r\n\r\n", string(req.Encode()))
	})

	t.Run("ParsesEncodedRequest", func(t *testing.T) {
		encoded := Request{Method: Get, Path: "/b.bin"}.Encode()
		header := string(encoded[:len(encoded)-len(Terminator)])

		parsed, err := ParseRequest(header)
		require.NoError(t, err)
		assert.Equal(t, Get, parsed.Method)
		assert.Equal(t, "/b.bin", parsed.Path)
	})

	t.Run("RejectsWrongScheme", func(t *testing.T) {
		_, err := ParseRequest("NOTGETFILE GET /a.txt")
		assert.ErrorIs(t, err, ErrInvalidScheme)
	})

	t.Run("HeadIsNeverValid", func(t *testing.T) {
		req := Request{Method: Head, Path: "/a.txt"}
		assert.False(t, req.Valid())
	})

	t.Run("MissingLeadingSlashIsInvalid", func(t *testing.T) {
		req := Request{Method: Get, Path: "a.txt"}
		assert.False(t, req.Valid())
	})
}

// ============================================================================
// Response encode/parse
// ============================================================================

func TestResponseRoundTrip(t *testing.T) {
	t.Run("OKCarriesLength", func(t *testing.T) {
		resp := Response{Status: StatusOK, Length: 13}
		assert.Equal(t, "GETFILE OK 13\r\n\r\n", string(resp.Encode()))

		parsed, err := ParseResponseHeader("GETFILE OK 13")
		require.NoError(t, err)
		assert.Equal(t, resp, parsed)
	})

	t.Run("FileNotFoundOmitsLength", func(t *testing.T) {
		resp := Response{Status: StatusFileNotFound}
		assert.Equal(t, "GETFILE FILE_NOT_FOUND\r\n\r\n", string(resp.Encode()))
	})

	t.Run("RejectsOKWithoutLength", func(t *testing.T) {
		_, err := ParseResponseHeader("GETFILE OK")
		assert.Error(t, err)
	})

	t.Run("RejectsErrorWithLength", func(t *testing.T) {
		_, err := ParseResponseHeader("GETFILE ERROR 4")
		assert.Error(t, err)
	})
}

// ============================================================================
// Incremental header parsing
// ============================================================================

func TestHeaderParserChunking(t *testing.T) {
	t.Run("WholeHeaderInOneChunk", func(t *testing.T) {
		var p HeaderParser
		header, body, complete := p.Feed([]byte("GETFILE OK 5\r\n\r\nhello"))
		require.True(t, complete)
		assert.Equal(t, "GETFILE OK 5", header)
		assert.Equal(t, []byte("hello"), body)
		assert.Equal(t, len("GETFILE OK 5\r\n\r\n"), p.HeaderLen())
	})

	t.Run("OneByteAtATime", func(t *testing.T) {
		var p HeaderParser
		full := "GETFILE OK 2\r\n\r\nhi"
		var header string
		var body []byte
		complete := false
		for i := 0; i < len(full); i++ {
			h, b, c := p.Feed([]byte{full[i]})
			if c && !complete {
				header = h
			}
			complete = c
			body = append(body, b...)
		}
		require.True(t, complete)
		assert.Equal(t, "GETFILE OK 2", header)
		assert.Equal(t, []byte("hi"), body)
	})

	t.Run("NoTerminatorYet", func(t *testing.T) {
		var p HeaderParser
		_, _, complete := p.Feed([]byte("GETFILE OK 5\r\n"))
		assert.False(t, complete)
	})
}
