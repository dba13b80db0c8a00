package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "talko", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("RPCMethod", func(t *testing.T) {
		attr := RPCMethod("InsertMessage")
		assert.Equal(t, AttrRPCMethod, string(attr.Key))
		assert.Equal(t, "InsertMessage", attr.Value.AsString())
	})

	t.Run("RPCID", func(t *testing.T) {
		attr := RPCID("req-42")
		assert.Equal(t, AttrRPCID, string(attr.Key))
		assert.Equal(t, "req-42", attr.Value.AsString())
	})

	t.Run("RPCServer", func(t *testing.T) {
		attr := RPCServer("data")
		assert.Equal(t, AttrRPCServer, string(attr.Key))
		assert.Equal(t, "data", attr.Value.AsString())
	})

	t.Run("RPCErrorCode", func(t *testing.T) {
		attr := RPCErrorCode("not_found")
		assert.Equal(t, AttrRPCErrorCode, string(attr.Key))
		assert.Equal(t, "not_found", attr.Value.AsString())
	})

	t.Run("FrameBytes", func(t *testing.T) {
		attr := FrameBytes(4096)
		assert.Equal(t, AttrFrameBytes, string(attr.Key))
		assert.Equal(t, int64(4096), attr.Value.AsInt64())
	})

	t.Run("UserID", func(t *testing.T) {
		attr := UserID(1000)
		assert.Equal(t, AttrUserID, string(attr.Key))
		assert.Equal(t, int64(1000), attr.Value.AsInt64())
	})

	t.Run("UserName", func(t *testing.T) {
		attr := UserName("alice")
		assert.Equal(t, AttrUserName, string(attr.Key))
		assert.Equal(t, "alice", attr.Value.AsString())
	})

	t.Run("ChatID", func(t *testing.T) {
		attr := ChatID(7)
		assert.Equal(t, AttrChatID, string(attr.Key))
		assert.Equal(t, int64(7), attr.Value.AsInt64())
	})

	t.Run("ChatName", func(t *testing.T) {
		attr := ChatName("general")
		assert.Equal(t, AttrChatName, string(attr.Key))
		assert.Equal(t, "general", attr.Value.AsString())
	})

	t.Run("ChatPrivate", func(t *testing.T) {
		attr := ChatPrivate(true)
		assert.Equal(t, AttrChatPrivate, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("MessageID", func(t *testing.T) {
		attr := MessageID(123)
		assert.Equal(t, AttrMessageID, string(attr.Key))
		assert.Equal(t, int64(123), attr.Value.AsInt64())
	})

	t.Run("MessageTS", func(t *testing.T) {
		attr := MessageTS(1700000000000)
		assert.Equal(t, AttrMessageTS, string(attr.Key))
		assert.Equal(t, int64(1700000000000), attr.Value.AsInt64())
	})

	t.Run("Receivers", func(t *testing.T) {
		attr := Receivers(3)
		assert.Equal(t, AttrReceivers, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("Delivered", func(t *testing.T) {
		attr := Delivered(2)
		assert.Equal(t, AttrDelivered, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("Subscribers", func(t *testing.T) {
		attr := Subscribers(10)
		assert.Equal(t, AttrSubscribers, string(attr.Key))
		assert.Equal(t, int64(10), attr.Value.AsInt64())
	})

	t.Run("StoreType", func(t *testing.T) {
		attr := StoreType("badger")
		assert.Equal(t, AttrStoreType, string(attr.Key))
		assert.Equal(t, "badger", attr.Value.AsString())
	})

	t.Run("StoreOperation", func(t *testing.T) {
		attr := StoreOperation("create_message")
		assert.Equal(t, AttrStoreOp, string(attr.Key))
		assert.Equal(t, "create_message", attr.Value.AsString())
	})
}

func TestStartRPCSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartRPCSpan(ctx, "data", "GetUser")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartRPCSpan(ctx, "broadcast", "Broadcast", ChatID(1), Receivers(4))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartStoreSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartStoreSpan(ctx, "get_user")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartStoreSpan(ctx, "create_message", ChatID(1), UserID(2))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
