package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/marmos91/talko/pkg/protocol"
	"github.com/marmos91/talko/pkg/wire"
)

// streamBuffer is the push channel capacity. A reader that falls this far
// behind blocks the stream's read loop, which in turn backpressures the
// broadcast server's push write.
const streamBuffer = 64

// Stream is an open push stream on the broadcast server.
//
// Messages arrive on the channel returned by Messages until the stream is
// closed by either side. After the channel closes, Err reports why: nil
// for a Close by this client or a clean server shutdown, the read error
// otherwise.
//
// A stream that is replaced server-side by a newer OpenStream for the
// same user goes silent rather than closing; callers that reopen a stream
// should Close the old one first.
type Stream struct {
	userID int64
	conn   net.Conn

	messages chan protocol.Message

	closeOnce sync.Once
	closed    chan struct{}

	mu  sync.Mutex
	err error
}

// OpenStream registers a push stream for userID on the broadcast server.
//
// The returned Stream owns the connection; a background goroutine reads
// push frames into the Messages channel. ctx bounds only the handshake,
// not the stream's lifetime. Call Close (and usually Client.CloseStream)
// when done.
func (c *Client) OpenStream(ctx context.Context, userID int64) (*Stream, error) {
	if c.config.BroadcastAddress == "" {
		return nil, fmt.Errorf("no broadcast address configured")
	}

	conn, err := c.dial(ctx, c.config.BroadcastAddress)
	if err != nil {
		return nil, err
	}

	// Handshake under the request timeout; the stream itself has none.
	if c.config.RequestTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.config.RequestTimeout)); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set handshake deadline: %w", err)
		}
	}

	req, err := protocol.NewRequest(protocol.MethodOpenStream, protocol.OpenStreamParams{UserID: userID})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	resp, err := exchange(conn, req)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("OpenStream failed: %w", err)
	}

	var ack protocol.OpenStreamResult
	if err := resp.DecodeResult(&ack); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to clear stream deadline: %w", err)
	}

	s := &Stream{
		userID:   userID,
		conn:     conn,
		messages: make(chan protocol.Message, streamBuffer),
		closed:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Messages returns the channel delivering pushed messages. The channel is
// closed when the stream ends; check Err afterwards.
func (s *Stream) Messages() <-chan protocol.Message {
	return s.messages
}

// UserID returns the user the stream was opened for.
func (s *Stream) UserID() int64 {
	return s.userID
}

// Err reports why the stream ended. nil until the Messages channel is
// closed, and nil afterwards when the stream was closed deliberately.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close tears the stream down by closing the underlying connection. The
// read loop exits and the Messages channel is closed. Safe to call
// multiple times. Close does not unregister the stream server-side; use
// Client.CloseStream for that.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

// readLoop reads push frames until the connection ends and publishes the
// embedded messages.
func (s *Stream) readLoop() {
	defer close(s.messages)

	for {
		raw, err := wire.ReadFrame(s.conn)
		if err != nil {
			s.finish(err)
			return
		}

		resp, err := protocol.DecodeResponse(raw)
		if err != nil {
			s.finish(err)
			return
		}

		// Push frames carry no id and a {message} result.
		var push protocol.PushPayload
		if err := resp.DecodeResult(&push); err != nil {
			s.finish(fmt.Errorf("malformed push frame: %w", err))
			return
		}

		select {
		case s.messages <- push.Message:
		case <-s.closed:
			s.finish(nil)
			return
		}
	}
}

// finish records the terminal error. A clean EOF or an error caused by
// our own Close is not an error.
func (s *Stream) finish(err error) {
	select {
	case <-s.closed:
		err = nil
	default:
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
