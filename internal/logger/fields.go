package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that logs from the
// data server, broadcast server, and CLI can be aggregated and queried together.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Server & RPC
	// ========================================================================
	KeyAdapter   = "adapter"    // Which server handled the request: data, broadcast
	KeyMethod    = "method"     // RPC method name: GetUser, InsertMessage, Broadcast, ...
	KeyRequestID = "request_id" // RPC envelope id
	KeyCode      = "code"       // Wire error code: not_found, protocol_error, ...
	KeyAddress   = "address"    // Listen or dial address (host:port)
	KeyPort      = "port"       // Listen port

	// ========================================================================
	// Chat Domain
	// ========================================================================
	KeyUserID    = "user_id"    // Chat user identifier
	KeyUserName  = "user_name"  // Chat user name
	KeyChatID    = "chat_id"    // Chat identifier
	KeyChatName  = "chat_name"  // Chat display name
	KeyMessageID = "message_id" // Message identifier
	KeyReceivers = "receivers"  // Number of intended broadcast receivers
	KeyDelivered = "delivered"  // Number of receivers actually pushed to

	// ========================================================================
	// Connections
	// ========================================================================
	KeyClientIP    = "client_ip"   // Remote IP address
	KeyConnID      = "conn_id"     // Connection identifier
	KeyConnCount   = "conn_count"  // Currently active connections
	KeySubscribers = "subscribers" // Registered stream subscribers
	KeyFrameBytes  = "frame_bytes" // Frame payload size in bytes

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyCount      = "count"       // Generic count
	KeyPath       = "path"        // File path (config, database, log file)

	// ========================================================================
	// Storage
	// ========================================================================
	KeyStore     = "store"     // Store backend: memory, sqlite, postgres, badger
	KeyOperation = "operation" // Store operation name
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Adapter returns a slog.Attr naming the serving adapter (data, broadcast)
func Adapter(name string) slog.Attr {
	return slog.String(KeyAdapter, name)
}

// Method returns a slog.Attr for the RPC method name
func Method(name string) slog.Attr {
	return slog.String(KeyMethod, name)
}

// RequestID returns a slog.Attr for the RPC envelope id
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Code returns a slog.Attr for a wire error code
func Code(code string) slog.Attr {
	return slog.String(KeyCode, code)
}

// Address returns a slog.Attr for a host:port address
func Address(addr string) slog.Attr {
	return slog.String(KeyAddress, addr)
}

// Port returns a slog.Attr for a listen port
func Port(port uint16) slog.Attr {
	return slog.Int(KeyPort, int(port))
}

// UserID returns a slog.Attr for a chat user id
func UserID(id int64) slog.Attr {
	return slog.Int64(KeyUserID, id)
}

// UserName returns a slog.Attr for a chat user name
func UserName(name string) slog.Attr {
	return slog.String(KeyUserName, name)
}

// ChatID returns a slog.Attr for a chat id
func ChatID(id int64) slog.Attr {
	return slog.Int64(KeyChatID, id)
}

// ChatName returns a slog.Attr for a chat display name
func ChatName(name string) slog.Attr {
	return slog.String(KeyChatName, name)
}

// MessageID returns a slog.Attr for a message id
func MessageID(id int64) slog.Attr {
	return slog.Int64(KeyMessageID, id)
}

// Receivers returns a slog.Attr for the intended broadcast receiver count
func Receivers(n int) slog.Attr {
	return slog.Int(KeyReceivers, n)
}

// Delivered returns a slog.Attr for the delivered broadcast count
func Delivered(n int) slog.Attr {
	return slog.Int(KeyDelivered, n)
}

// ClientIP returns a slog.Attr for the remote IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ConnID returns a slog.Attr for a connection identifier
func ConnID(id uint64) slog.Attr {
	return slog.Uint64(KeyConnID, id)
}

// ConnCount returns a slog.Attr for the active connection count
func ConnCount(n int32) slog.Attr {
	return slog.Int(KeyConnCount, int(n))
}

// Subscribers returns a slog.Attr for the registered subscriber count
func Subscribers(n int) slog.Attr {
	return slog.Int(KeySubscribers, n)
}

// FrameBytes returns a slog.Attr for a frame payload size
func FrameBytes(n int) slog.Attr {
	return slog.Int(KeyFrameBytes, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Since returns a slog.Attr with the milliseconds elapsed since start
func Since(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Count returns a slog.Attr for a generic count
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Path returns a slog.Attr for a file path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Store returns a slog.Attr for a store backend name
func Store(name string) slog.Attr {
	return slog.String(KeyStore, name)
}

// Operation returns a slog.Attr for a store operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}
