package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for chat RPC operations.
// These follow OpenTelemetry semantic conventions where applicable.
// Generic keys use standard prefixes, chat-specific keys use "chat.".
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"
	AttrClientPort = "client.port"

	// ========================================================================
	// RPC attributes
	// ========================================================================
	AttrRPCMethod    = "rpc.method"     // GetUser, InsertMessage, OpenStream, ...
	AttrRPCID        = "rpc.id"         // Request correlation id
	AttrRPCServer    = "rpc.server"     // data or broadcast
	AttrRPCErrorCode = "rpc.error_code" // Protocol error code on failure
	AttrFrameBytes   = "rpc.frame_bytes"

	// ========================================================================
	// Chat domain attributes
	// ========================================================================
	AttrUserID      = "chat.user_id"
	AttrUserName    = "chat.user_name"
	AttrChatID      = "chat.chat_id"
	AttrChatName    = "chat.chat_name"
	AttrChatPrivate = "chat.private"
	AttrMessageID   = "chat.message_id"
	AttrMessageTS   = "chat.message_ts"
	AttrReceivers   = "chat.receivers"   // Intended notification targets
	AttrDelivered   = "chat.delivered"   // Targets actually pushed to
	AttrSubscribers = "chat.subscribers" // Open streams on the broadcast server

	// ========================================================================
	// Store attributes
	// ========================================================================
	AttrStoreType = "store.type"      // memory, sqlite, postgres, badger
	AttrStoreOp   = "store.operation" // Store method name
)

// Span names for operations.
// Format: <server>.<Method> for RPC spans, store.<operation> for store spans.
const (
	// ========================================================================
	// Data server spans (one per RPC method)
	// ========================================================================
	SpanDataGetUser       = "data.GetUser"
	SpanDataInsertUser    = "data.InsertUser"
	SpanDataGetChats      = "data.GetChats"
	SpanDataInsertChat    = "data.InsertChat"
	SpanDataGetMessages   = "data.GetMessages"
	SpanDataInsertMessage = "data.InsertMessage"

	// ========================================================================
	// Broadcast server spans (one per RPC method)
	// ========================================================================
	SpanBroadcastOpenStream  = "broadcast.OpenStream"
	SpanBroadcastCloseStream = "broadcast.CloseStream"
	SpanBroadcastBroadcast   = "broadcast.Broadcast"

	// ========================================================================
	// Store operation spans (one per chat.Store method)
	// ========================================================================
	SpanStoreGetUserByName   = "store.get_user_by_name"
	SpanStoreGetUserByID     = "store.get_user_by_id"
	SpanStoreCreateUser      = "store.create_user"
	SpanStoreGetChat         = "store.get_chat"
	SpanStoreChatsForUser    = "store.chats_for_user"
	SpanStoreParticipants    = "store.participants"
	SpanStoreFindPrivateChat = "store.find_private_chat"
	SpanStoreCreateChat      = "store.create_chat"
	SpanStoreMessagesForChat = "store.messages_for_chat"
	SpanStoreLatestMessageTS = "store.latest_message_ts"
	SpanStoreCreateMessage   = "store.create_message"
	SpanStorePing            = "store.ping"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// RPCMethod returns an attribute for the RPC method name
func RPCMethod(method string) attribute.KeyValue {
	return attribute.String(AttrRPCMethod, method)
}

// RPCID returns an attribute for the request correlation id
func RPCID(id string) attribute.KeyValue {
	return attribute.String(AttrRPCID, id)
}

// RPCServer returns an attribute for the serving endpoint (data or broadcast)
func RPCServer(name string) attribute.KeyValue {
	return attribute.String(AttrRPCServer, name)
}

// RPCErrorCode returns an attribute for the protocol error code
func RPCErrorCode(code string) attribute.KeyValue {
	return attribute.String(AttrRPCErrorCode, code)
}

// FrameBytes returns an attribute for the wire frame payload size
func FrameBytes(n int) attribute.KeyValue {
	return attribute.Int(AttrFrameBytes, n)
}

// UserID returns an attribute for a chat user id
func UserID(id int64) attribute.KeyValue {
	return attribute.Int64(AttrUserID, id)
}

// UserName returns an attribute for a chat user name
func UserName(name string) attribute.KeyValue {
	return attribute.String(AttrUserName, name)
}

// ChatID returns an attribute for a chat id
func ChatID(id int64) attribute.KeyValue {
	return attribute.Int64(AttrChatID, id)
}

// ChatName returns an attribute for a chat name
func ChatName(name string) attribute.KeyValue {
	return attribute.String(AttrChatName, name)
}

// ChatPrivate returns an attribute for the private chat flag
func ChatPrivate(private bool) attribute.KeyValue {
	return attribute.Bool(AttrChatPrivate, private)
}

// MessageID returns an attribute for a message id
func MessageID(id int64) attribute.KeyValue {
	return attribute.Int64(AttrMessageID, id)
}

// MessageTS returns an attribute for a message timestamp (Unix milliseconds)
func MessageTS(ts int64) attribute.KeyValue {
	return attribute.Int64(AttrMessageTS, ts)
}

// Receivers returns an attribute for the number of notification targets
func Receivers(n int) attribute.KeyValue {
	return attribute.Int(AttrReceivers, n)
}

// Delivered returns an attribute for the number of targets actually pushed to
func Delivered(n int) attribute.KeyValue {
	return attribute.Int(AttrDelivered, n)
}

// Subscribers returns an attribute for the number of open streams
func Subscribers(n int) attribute.KeyValue {
	return attribute.Int(AttrSubscribers, n)
}

// StoreType returns an attribute for the store backend type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// StoreOperation returns an attribute for a store method name
func StoreOperation(op string) attribute.KeyValue {
	return attribute.String(AttrStoreOp, op)
}

// StartRPCSpan starts a span for an RPC method on one of the TCP servers.
// This is a convenience function that sets common attributes.
func StartRPCSpan(ctx context.Context, server, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		RPCServer(server),
		RPCMethod(method),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, server+"."+method, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a chat store operation.
func StartStoreSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		StoreOperation(operation),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "store."+operation, trace.WithAttributes(allAttrs...))
}
