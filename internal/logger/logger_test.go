package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogContext(t *testing.T) {
	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := NewLogContext("10.0.0.1")
		clone := lc.Clone()
		clone.Path = "/a.txt"
		assert.Equal(t, "", lc.Path)
		assert.Equal(t, "/a.txt", clone.Path)
	})

	t.Run("WithPathDoesNotMutateOriginal", func(t *testing.T) {
		lc := NewLogContext("10.0.0.1")
		lc2 := lc.WithPath("/b.bin")
		assert.Equal(t, "/b.bin", lc2.Path)
		assert.Equal(t, "", lc.Path)
	})

	t.Run("WithServedVia", func(t *testing.T) {
		lc := NewLogContext("10.0.0.1").WithServedVia("ipc")
		assert.Equal(t, "ipc", lc.ServedVia)
	})

	t.Run("RoundTripThroughContext", func(t *testing.T) {
		lc := NewLogContext("10.0.0.1")
		ctx := WithContext(context.Background(), lc)
		got := FromContext(ctx)
		require.NotNil(t, got)
		assert.Equal(t, "10.0.0.1", got.ClientIP)
	})

	t.Run("FromContextNilIsNil", func(t *testing.T) {
		assert.Nil(t, FromContext(context.Background()))
	})
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func TestFieldAttrs(t *testing.T) {
	assert.Equal(t, KeyPath, Path("/x").Key)
	assert.Equal(t, KeyStatus, Status("OK").Key)
	assert.Equal(t, KeyBytes, Bytes(13).Key)
	assert.Equal(t, "", Err(nil).Value.String())
	assert.Equal(t, "boom", Err(assertErr{"boom"}).Value.String())
}

func TestInitAndFormats(t *testing.T) {
	t.Run("JSONFormatEmitsParsableLines", func(t *testing.T) {
		var buf bytes.Buffer
		InitWithWriter(&buf, "INFO", "json", false)
		Info("hello", "key", "value")

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "hello", decoded["msg"])
		assert.Equal(t, "value", decoded["key"])
	})

	t.Run("TextFormatIncludesLevelAndMessage", func(t *testing.T) {
		var buf bytes.Buffer
		InitWithWriter(&buf, "INFO", "text", false)
		Info("request served", KeyPath, "/a.txt")

		line := buf.String()
		assert.Contains(t, line, "INFO")
		assert.Contains(t, line, "request served")
		assert.Contains(t, line, "path=/a.txt")
	})

	t.Run("DebugSuppressedBelowInfoLevel", func(t *testing.T) {
		var buf bytes.Buffer
		InitWithWriter(&buf, "INFO", "text", false)
		Debug("should not appear")
		assert.Empty(t, strings.TrimSpace(buf.String()))
	})
}

func TestContextAwareLogging(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	lc := NewLogContext("10.0.0.5").WithPath("/c.bin").WithTrace("trace-1", "span-1")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "served")
	line := buf.String()
	assert.Contains(t, line, "trace_id=trace-1")
	assert.Contains(t, line, "path=/c.bin")
	assert.Contains(t, line, "client_ip=10.0.0.5")
}
