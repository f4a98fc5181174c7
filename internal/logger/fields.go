package logger

import "log/slog"

// Standard field keys for structured logging across gfproxy, gfcache,
// and gfload. Use these consistently so log lines from all three
// binaries can be aggregated and queried the same way.
const (
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyServedVia  = "served_via" // "ipc" or "origin"
	KeyClientIP   = "client_ip"
	KeyBytes      = "bytes"
	KeySegmentID  = "segment_id"
	KeyWorkerID   = "worker_id"
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

func TraceID(id string) slog.Attr   { return slog.String(KeyTraceID, id) }
func SpanID(id string) slog.Attr    { return slog.String(KeySpanID, id) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Status(s string) slog.Attr     { return slog.String(KeyStatus, s) }
func ServedVia(via string) slog.Attr {
	return slog.String(KeyServedVia, via)
}
func ClientIP(addr string) slog.Attr  { return slog.String(KeyClientIP, addr) }
func Bytes(n uint64) slog.Attr        { return slog.Uint64(KeyBytes, n) }
func SegmentID(id uint32) slog.Attr   { return slog.Uint64(KeySegmentID, uint64(id)) }
func WorkerID(id int) slog.Attr       { return slog.Int(KeyWorkerID, id) }
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
