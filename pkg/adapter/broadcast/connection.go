package broadcast

import (
	"context"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/internal/telemetry"
	"github.com/marmos91/talko/pkg/adapter"
	"github.com/marmos91/talko/pkg/protocol"
	"github.com/marmos91/talko/pkg/wire"
)

// Connection performs a single exchange on an accepted TCP connection.
//
// For CloseStream and Broadcast the lifecycle matches the data server:
// read one framed request, dispatch, write one framed response, close.
// OpenStream instead writes its ack mid-dispatch, parks the socket in the
// subscriber table, and returns without closing it.
type Connection struct {
	server *Adapter
	conn   net.Conn
	connID uint64

	// parked is set once the socket is handed to the subscriber table;
	// the worker then returns without closing it.
	parked bool
}

// newConnection creates a connection handler for a single exchange.
func newConnection(server *Adapter, conn net.Conn, connID uint64) *Connection {
	return &Connection{server: server, conn: conn, connID: connID}
}

// Serve runs the exchange. It blocks until the response is written, the
// peer disappears, or the context is cancelled by shutdown.
func (c *Connection) Serve(ctx context.Context) {
	defer c.handleConnectionClose()

	lc := logger.NewLogContext(serverName, adapter.RemoteIP(c.conn), c.connID)
	ctx = logger.WithContext(ctx, lc)

	start := time.Now()

	if c.server.config.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout)); err != nil {
			logger.DebugCtx(ctx, "Failed to set read deadline", "error", err)
		}
	}

	payload, err := wire.ReadFrameLimit(c.conn, c.server.config.MaxFrameSize)
	if err != nil {
		c.handleReadError(ctx, start, err)
		return
	}

	if c.server.metrics != nil {
		c.server.metrics.RecordFrameBytes(serverName, "read", len(payload))
	}

	req, err := protocol.DecodeRequest(payload)
	if err != nil {
		logger.WarnCtx(ctx, "Malformed request", "error", err)
		c.reply(ctx, adapter.MustErrorResponse(adapter.RecoverID(payload), protocol.NewError(protocol.CodeProtocolError, "%s", err.Error())))
		c.recordRequest("unknown", start, protocol.CodeProtocolError)
		return
	}

	lc.Method = req.Method

	ctx, span := telemetry.StartRPCSpan(ctx, serverName, req.Method,
		telemetry.ClientIP(lc.ClientIP),
		telemetry.FrameBytes(len(payload)))
	defer span.End()

	if c.server.metrics != nil {
		c.server.metrics.RecordRequestStart(serverName, req.Method)
		defer c.server.metrics.RecordRequestEnd(serverName, req.Method)
	}

	resp, errCode := c.safeDispatch(ctx, req)
	if errCode != "" {
		span.SetAttributes(telemetry.RPCErrorCode(errCode))
	}

	// OpenStream replies mid-dispatch before parking the socket and
	// returns a nil response.
	if resp != nil {
		c.reply(ctx, resp)
	}
	c.recordRequest(req.Method, start, errCode)

	logger.DebugCtx(ctx, "Request completed",
		"duration_ms", logger.Duration(start), "error_code", errCode)
}

// safeDispatch dispatches the request, converting a handler panic into an
// internal_error reply instead of tearing down the accept loop.
func (c *Connection) safeDispatch(ctx context.Context, req *protocol.Request) (resp *protocol.Response, errCode string) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Panic while handling request",
				"panic", r, "stack", string(debug.Stack()))
			errCode = protocol.CodeInternal
			resp = nil
			if !c.parked {
				resp = adapter.MustErrorResponse(req.ID, protocol.NewError(protocol.CodeInternal, "internal error"))
			}
		}
	}()

	return c.dispatch(ctx, req)
}

// handleReadError logs a failed request read and, when the failure is a
// framing violation rather than a dead peer, answers with protocol_error.
func (c *Connection) handleReadError(ctx context.Context, start time.Time, err error) {
	switch {
	case errors.Is(err, io.EOF):
		logger.DebugCtx(ctx, "Client closed connection without sending a request")

	case errors.Is(err, wire.ErrInvalidHeader), errors.Is(err, wire.ErrFrameTooLarge):
		logger.WarnCtx(ctx, "Rejected request frame", "error", err)
		c.reply(ctx, adapter.MustErrorResponse(nil, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error())))
		c.recordRequest("unknown", start, protocol.CodeProtocolError)

	case adapter.IsTimeout(err):
		logger.DebugCtx(ctx, "Timed out waiting for request", "error", err)

	default:
		select {
		case <-ctx.Done():
			logger.DebugCtx(ctx, "Request read aborted by shutdown")
		default:
			logger.DebugCtx(ctx, "Failed to read request frame", "error", err)
		}
	}
}

// reply encodes and writes a response frame.
func (c *Connection) reply(ctx context.Context, resp *protocol.Response) {
	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to encode response", "error", err)
		return
	}

	if c.server.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout)); err != nil {
			logger.DebugCtx(ctx, "Failed to set write deadline", "error", err)
		}
	}

	if err := wire.WriteFrame(c.conn, data); err != nil {
		logger.DebugCtx(ctx, "Failed to write response", "error", err)
		return
	}

	if c.server.metrics != nil {
		c.server.metrics.RecordFrameBytes(serverName, "write", len(data))
	}
}

// recordRequest records the completed request in metrics.
func (c *Connection) recordRequest(method string, start time.Time, errCode string) {
	if c.server.metrics == nil {
		return
	}
	c.server.metrics.RecordRequest(serverName, method, time.Since(start), errCode)
}

// handleConnectionClose recovers from panics that escaped dispatch and
// closes the connection unless it has been parked in the subscriber
// table.
func (c *Connection) handleConnectionClose() {
	if r := recover(); r != nil {
		logger.Error("Panic in broadcast connection",
			"address", c.conn.RemoteAddr(), "panic", r, "stack", string(debug.Stack()))
	}

	if c.parked {
		return
	}

	if err := c.conn.Close(); err != nil {
		logger.Debug("Error closing broadcast connection",
			"address", c.conn.RemoteAddr(), "error", err)
	}
}
