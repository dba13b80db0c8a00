package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/internal/telemetry"
	"github.com/marmos91/talko/pkg/adapter"
	"github.com/marmos91/talko/pkg/protocol"
)

// dispatch routes a decoded request to its method handler. Unknown methods
// get a protocol_error reply.
//
// Every handler returns the response to write plus the protocol error code
// for metrics, empty on success. OpenStream writes its own reply and
// returns nil.
func (c *Connection) dispatch(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	switch req.Method {
	case protocol.MethodOpenStream:
		return c.handleOpenStream(ctx, req)
	case protocol.MethodCloseStream:
		return c.handleCloseStream(ctx, req)
	case protocol.MethodBroadcast:
		return c.handleBroadcast(ctx, req)
	default:
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "unknown method %q", req.Method))
	}
}

// handleOpenStream registers the connection as the user's push stream.
//
// The ack is written before the table entry goes live: once registered,
// a concurrent Broadcast may push onto this socket, and the ack must be
// the first frame the client reads. After registration the socket is
// released from shutdown tracking and parked, and the worker returns.
func (c *Connection) handleOpenStream(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	var params protocol.OpenStreamParams
	if err := req.DecodeParams(&params); err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error()))
	}

	resp, errCode := c.ok(req.ID, protocol.OpenStreamResult{OK: true})
	if errCode != "" {
		return resp, errCode
	}
	c.reply(ctx, resp)

	if replaced := c.server.table.Put(params.UserID, c.conn); replaced != nil {
		// The previous socket stays open but no longer receives pushes.
		// It is closed when the client drops it or the server shuts
		// down.
		logger.InfoCtx(ctx, "Stream replaced", "user_id", params.UserID)
	}

	// The socket now belongs to the subscriber table: release it from
	// connection tracking so shutdown interrupts and force-closes skip
	// it, and keep it open past this worker's return.
	c.server.ReleaseConn(c.conn.RemoteAddr().String())
	c.parked = true

	subs := c.server.table.Len()
	if c.server.streamMetrics != nil {
		c.server.streamMetrics.RecordStreamOpened()
		c.server.streamMetrics.SetSubscribers(subs)
	}
	telemetry.SetAttributes(ctx, telemetry.Subscribers(subs))

	logger.InfoCtx(ctx, "Stream opened", "user_id", params.UserID, "subscribers", subs)
	return nil, ""
}

// handleCloseStream unregisters the user's push stream.
//
// The request usually arrives on its own one-shot connection, not on the
// stream itself, so the removed socket is closed explicitly. Closing a
// stream that does not exist succeeds.
func (c *Connection) handleCloseStream(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	var params protocol.CloseStreamParams
	if err := req.DecodeParams(&params); err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error()))
	}

	removed := c.server.table.Remove(params.UserID)
	if removed != nil && removed != c.conn {
		_ = removed.Close()
	}

	subs := c.server.table.Len()
	if removed != nil && c.server.streamMetrics != nil {
		c.server.streamMetrics.RecordStreamClosed("close_stream")
		c.server.streamMetrics.SetSubscribers(subs)
	}

	logger.InfoCtx(ctx, "Stream closed",
		"user_id", params.UserID, "had_stream", removed != nil, "subscribers", subs)
	return c.ok(req.ID, protocol.CloseStreamResult{OK: true})
}

// handleBroadcast pushes a message to every receiver with an open stream.
//
// Receivers without a stream are skipped. A receiver whose push fails is
// dropped from the table and its socket closed. The reply lists the
// receivers the message was actually written to.
func (c *Connection) handleBroadcast(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	var params protocol.BroadcastParams
	if err := req.DecodeParams(&params); err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error()))
	}

	push, err := protocol.NewPush(params.Message)
	if err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeInternal, "failed to encode push: %v", err))
	}
	frame, err := protocol.EncodeResponse(push)
	if err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeInternal, "failed to encode push: %v", err))
	}

	start := time.Now()
	delivered := make([]int64, 0, len(params.ReceiverIDs))

	for _, userID := range params.ReceiverIDs {
		err := c.server.table.Push(userID, frame, c.server.config.WriteTimeout)
		switch {
		case err == nil:
			delivered = append(delivered, userID)
			if c.server.metrics != nil {
				c.server.metrics.RecordFrameBytes(serverName, "write", len(frame))
			}

		case errors.Is(err, ErrNoSubscriber):
			logger.DebugCtx(ctx, "No stream for receiver", "user_id", userID)

		default:
			logger.WarnCtx(ctx, "Push failed, stream dropped", "user_id", userID, "error", err)
			if c.server.streamMetrics != nil {
				c.server.streamMetrics.RecordStreamClosed("push_failure")
				c.server.streamMetrics.SetSubscribers(c.server.table.Len())
			}
		}
	}

	if c.server.streamMetrics != nil {
		c.server.streamMetrics.RecordNotification(len(params.ReceiverIDs), len(delivered), time.Since(start))
	}
	telemetry.SetAttributes(ctx,
		telemetry.Receivers(len(params.ReceiverIDs)),
		telemetry.Delivered(len(delivered)))

	logger.InfoCtx(ctx, "Broadcast delivered",
		"message_id", params.Message.MessageID,
		"chat_id", params.Message.ChatID,
		"receivers", len(params.ReceiverIDs),
		"delivered", len(delivered))

	return c.ok(req.ID, protocol.BroadcastResult{ReceiverIDs: delivered})
}

// fail builds an error reply and reports its code.
func (c *Connection) fail(id json.RawMessage, wireErr *protocol.Error) (*protocol.Response, string) {
	return adapter.MustErrorResponse(id, wireErr), wireErr.Code
}

// ok builds a success reply.
func (c *Connection) ok(id json.RawMessage, result any) (*protocol.Response, string) {
	resp, err := protocol.NewResponse(id, result)
	if err != nil {
		return c.fail(id, protocol.NewError(protocol.CodeInternal, "failed to encode result: %v", err))
	}
	return resp, ""
}
