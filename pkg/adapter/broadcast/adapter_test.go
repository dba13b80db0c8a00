package broadcast

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/marmos91/talko/pkg/protocol"
	"github.com/marmos91/talko/pkg/wire"
)

// =============================================================================
// Test Helper Functions
// =============================================================================

// startTestServer starts a broadcast adapter on an ephemeral loopback port
// and returns it with its dialable address. The server is stopped when the
// test finishes.
func startTestServer(t *testing.T) (*Adapter, string) {
	t.Helper()

	a := New(Config{
		BindAddress:     "127.0.0.1",
		Port:            0,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		ShutdownTimeout: time.Second,
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Server did not stop within 5s")
		}
	})

	return a, a.GetListenerAddr()
}

// dialServer opens a TCP connection to the test server with a deadline so
// a broken server cannot hang the test.
func dialServer(t *testing.T, addr string) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", addr, err)
	}
	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("Failed to set deadline: %v", err)
	}
	return conn
}

// roundTrip sends one request on conn and reads the matching reply.
func roundTrip(t *testing.T, conn net.Conn, method string, params any) *protocol.Response {
	t.Helper()

	req, err := protocol.NewRequest(method, params)
	if err != nil {
		t.Fatalf("Failed to build %s request: %v", method, err)
	}
	payload, err := protocol.EncodeRequest(req)
	if err != nil {
		t.Fatalf("Failed to encode %s request: %v", method, err)
	}
	if err := wire.WriteFrame(conn, payload); err != nil {
		t.Fatalf("Failed to write %s request: %v", method, err)
	}

	raw, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("Failed to read %s reply: %v", method, err)
	}
	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		t.Fatalf("Failed to decode %s reply: %v", method, err)
	}
	if err := protocol.CheckID(req.ID, resp); err != nil {
		t.Fatalf("Reply id mismatch for %s: %v", method, err)
	}
	return resp
}

// openStream registers a stream for userID and returns the stream
// connection after verifying the ack.
func openStream(t *testing.T, addr string, userID int64) net.Conn {
	t.Helper()

	conn := dialServer(t, addr)
	resp := roundTrip(t, conn, protocol.MethodOpenStream, protocol.OpenStreamParams{UserID: userID})

	var result protocol.OpenStreamResult
	if err := resp.DecodeResult(&result); err != nil {
		conn.Close()
		t.Fatalf("OpenStream failed: %v", err)
	}
	if !result.OK {
		conn.Close()
		t.Fatal("Expected OpenStream ack ok=true")
	}
	return conn
}

// readPush reads one id-less push frame from a stream connection.
func readPush(t *testing.T, conn net.Conn, timeout time.Duration) protocol.Message {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	raw, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("Failed to read push frame: %v", err)
	}
	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		t.Fatalf("Failed to decode push frame: %v", err)
	}
	if len(resp.ID) != 0 {
		t.Errorf("Expected id-less push frame, got id %s", resp.ID)
	}

	var payload protocol.PushPayload
	if err := resp.DecodeResult(&payload); err != nil {
		t.Fatalf("Failed to decode push payload: %v", err)
	}
	return payload.Message
}

func testMessage(id int64, text string) protocol.Message {
	return protocol.Message{
		MessageID:   id,
		ChatID:      3,
		User:        protocol.User{UserID: 1, UserName: "alice"},
		MessageText: text,
		MessageTS:   1700000000000,
	}
}

// =============================================================================
// Stream Lifecycle Tests
// =============================================================================

func TestAdapter_OpenStreamRegistersSubscriber(t *testing.T) {
	a, addr := startTestServer(t)

	stream := openStream(t, addr, 7)
	defer stream.Close()

	// Registration is visible once the ack has been written
	waitFor(t, time.Second, func() bool { return a.table.Len() == 1 })

	subs := a.Subscribers()
	if len(subs) != 1 || subs[0] != 7 {
		t.Errorf("Expected subscribers [7], got %v", subs)
	}
}

func TestAdapter_BroadcastDeliversToOpenStreams(t *testing.T) {
	a, addr := startTestServer(t)

	stream := openStream(t, addr, 7)
	defer stream.Close()

	// The ack is written before the table entry goes live, so wait for
	// registration before broadcasting
	waitFor(t, time.Second, func() bool { return a.table.Len() == 1 })

	msg := testMessage(11, "hello bob")
	conn := dialServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.MethodBroadcast, protocol.BroadcastParams{
		ReceiverIDs: []int64{7, 99},
		Message:     msg,
	})

	var result protocol.BroadcastResult
	if err := resp.DecodeResult(&result); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	// Receiver 99 has no stream and is silently skipped
	if len(result.ReceiverIDs) != 1 || result.ReceiverIDs[0] != 7 {
		t.Errorf("Expected delivered [7], got %v", result.ReceiverIDs)
	}

	got := readPush(t, stream, 2*time.Second)
	if got.MessageID != msg.MessageID {
		t.Errorf("Expected message id %d, got %d", msg.MessageID, got.MessageID)
	}
	if got.MessageText != msg.MessageText {
		t.Errorf("Expected message text %q, got %q", msg.MessageText, got.MessageText)
	}
	if got.User.UserName != "alice" {
		t.Errorf("Expected sender alice, got %q", got.User.UserName)
	}
}

func TestAdapter_CloseStream(t *testing.T) {
	a, addr := startTestServer(t)

	stream := openStream(t, addr, 7)
	defer stream.Close()
	waitFor(t, time.Second, func() bool { return a.table.Len() == 1 })

	conn := dialServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.MethodCloseStream, protocol.CloseStreamParams{UserID: 7})
	var result protocol.CloseStreamResult
	if err := resp.DecodeResult(&result); err != nil {
		t.Fatalf("CloseStream failed: %v", err)
	}
	if !result.OK {
		t.Error("Expected CloseStream ok=true")
	}

	if len(a.Subscribers()) != 0 {
		t.Errorf("Expected no subscribers, got %v", a.Subscribers())
	}

	// The server closed the parked stream socket
	if err := stream.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline failed: %v", err)
	}
	if _, err := wire.ReadFrame(stream); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF on closed stream, got %v", err)
	}
}

func TestAdapter_CloseStreamWithoutStreamSucceeds(t *testing.T) {
	_, addr := startTestServer(t)

	conn := dialServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.MethodCloseStream, protocol.CloseStreamParams{UserID: 12345})
	var result protocol.CloseStreamResult
	if err := resp.DecodeResult(&result); err != nil {
		t.Fatalf("CloseStream failed: %v", err)
	}
	if !result.OK {
		t.Error("Expected CloseStream ok=true for unknown user")
	}
}

func TestAdapter_ReopenReplacesStream(t *testing.T) {
	a, addr := startTestServer(t)

	first := openStream(t, addr, 7)
	defer first.Close()
	waitFor(t, time.Second, func() bool { return a.table.Len() == 1 })

	second := openStream(t, addr, 7)
	defer second.Close()

	// Wait until the table entry points at the replacement socket
	waitFor(t, time.Second, func() bool {
		a.table.mu.RLock()
		defer a.table.mu.RUnlock()

		sub, ok := a.table.subs[7]
		return ok && sub.conn.RemoteAddr().String() == second.LocalAddr().String()
	})

	msg := testMessage(21, "after reopen")
	conn := dialServer(t, addr)
	defer conn.Close()
	resp := roundTrip(t, conn, protocol.MethodBroadcast, protocol.BroadcastParams{
		ReceiverIDs: []int64{7},
		Message:     msg,
	})
	var result protocol.BroadcastResult
	if err := resp.DecodeResult(&result); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	// Only the replacement stream receives the push
	got := readPush(t, second, 2*time.Second)
	if got.MessageID != msg.MessageID {
		t.Errorf("Expected message id %d on replacement stream, got %d", msg.MessageID, got.MessageID)
	}

	if err := first.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
		t.Fatalf("SetReadDeadline failed: %v", err)
	}
	if _, err := wire.ReadFrame(first); err == nil {
		t.Error("Expected no frame on the replaced stream")
	} else if errors.Is(err, io.EOF) {
		t.Error("Replaced stream was closed, expected it left open")
	}
}

// =============================================================================
// Protocol Error Tests
// =============================================================================

func TestAdapter_UnknownMethod(t *testing.T) {
	_, addr := startTestServer(t)

	conn := dialServer(t, addr)
	defer conn.Close()

	resp := roundTrip(t, conn, "Bogus", struct{}{})
	var out struct{}
	err := resp.DecodeResult(&out)

	var wireErr *protocol.Error
	if !errors.As(err, &wireErr) {
		t.Fatalf("Expected wire error, got %v", err)
	}
	if wireErr.Code != protocol.CodeProtocolError {
		t.Errorf("Expected code %q, got %q", protocol.CodeProtocolError, wireErr.Code)
	}
}

func TestAdapter_InvalidHeaderGetsProtocolError(t *testing.T) {
	_, addr := startTestServer(t)

	conn := dialServer(t, addr)
	defer conn.Close()

	// Ten bytes that do not parse as a frame length
	if _, err := conn.Write([]byte("not-a-size")); err != nil {
		t.Fatalf("Failed to write bogus header: %v", err)
	}

	raw, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("Failed to read error reply: %v", err)
	}
	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		t.Fatalf("Failed to decode error reply: %v", err)
	}
	if len(resp.ID) != 0 {
		t.Errorf("Expected null id on framing error reply, got %s", resp.ID)
	}

	var out struct{}
	errResult := resp.DecodeResult(&out)
	var wireErr *protocol.Error
	if !errors.As(errResult, &wireErr) {
		t.Fatalf("Expected wire error, got %v", errResult)
	}
	if wireErr.Code != protocol.CodeProtocolError {
		t.Errorf("Expected code %q, got %q", protocol.CodeProtocolError, wireErr.Code)
	}
}

// =============================================================================
// Shutdown Tests
// =============================================================================

func TestAdapter_StopClosesParkedStreams(t *testing.T) {
	a, addr := startTestServer(t)

	stream := openStream(t, addr, 7)
	defer stream.Close()
	waitFor(t, time.Second, func() bool { return a.table.Len() == 1 })

	if err := a.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := stream.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline failed: %v", err)
	}
	if _, err := wire.ReadFrame(stream); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF after shutdown, got %v", err)
	}
	if a.table.Len() != 0 {
		t.Errorf("Expected empty table after shutdown, got %d", a.table.Len())
	}
}

// waitFor polls cond until it is true or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}
