package data

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/pkg/protocol"
	"github.com/marmos91/talko/pkg/wire"
)

// notifier delivers freshly stored messages to the broadcast server over a
// one-shot Broadcast RPC.
//
// Delivery is best effort: failures are logged and swallowed so a
// broadcast outage never fails an insert. Receivers without an open
// stream are skipped by the broadcast server.
type notifier struct {
	address string
	timeout time.Duration
}

// newNotifier creates a notifier for the given broadcast address. An empty
// address disables fan-out.
func newNotifier(address string, timeout time.Duration) *notifier {
	return &notifier{address: address, timeout: timeout}
}

// Notify pushes msg to the broadcast server for the given receivers.
func (n *notifier) Notify(ctx context.Context, receiverIDs []int64, msg protocol.Message) {
	if n.address == "" || len(receiverIDs) == 0 {
		return
	}

	delivered, err := n.send(ctx, receiverIDs, msg)
	if err != nil {
		logger.WarnCtx(ctx, "Message fan-out failed",
			"broadcast_address", n.address, "receivers", len(receiverIDs), "error", err)
		return
	}

	logger.DebugCtx(ctx, "Message fan-out complete",
		"receivers", len(receiverIDs), "delivered", delivered)
}

// send performs the one-shot Broadcast exchange and returns the receiver
// ids the broadcast server actually pushed to.
func (n *notifier) send(ctx context.Context, receiverIDs []int64, msg protocol.Message) ([]int64, error) {
	dialer := net.Dialer{Timeout: n.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", n.address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broadcast server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if n.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(n.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set fan-out deadline: %w", err)
		}
	}

	req, err := protocol.NewRequest(protocol.MethodBroadcast, protocol.BroadcastParams{
		ReceiverIDs: receiverIDs,
		Message:     msg,
	})
	if err != nil {
		return nil, err
	}

	payload, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := wire.WriteFrame(conn, payload); err != nil {
		return nil, err
	}

	raw, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read fan-out reply: %w", err)
	}
	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		return nil, err
	}
	if err := protocol.CheckID(req.ID, resp); err != nil {
		return nil, err
	}

	var result protocol.BroadcastResult
	if err := resp.DecodeResult(&result); err != nil {
		return nil, err
	}
	return result.ReceiverIDs, nil
}
