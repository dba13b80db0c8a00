package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marmos91/talko/pkg/adapter/broadcast"
	"github.com/marmos91/talko/pkg/adapter/data"
	"github.com/marmos91/talko/pkg/protocol"
	"github.com/marmos91/talko/pkg/store/chat/memory"
)

// =============================================================================
// Test Helper Functions
// =============================================================================

// startBackend runs a broadcast and a data adapter on ephemeral ports over
// a fresh memory store and returns a client configured against them.
func startBackend(t *testing.T) *Client {
	t.Helper()

	store := memory.New()
	t.Cleanup(func() { store.Close() })

	bcast := broadcast.New(broadcast.Config{
		BindAddress:     "127.0.0.1",
		Port:            0,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		ShutdownTimeout: time.Second,
	}, nil, nil)
	startAdapter(t, "broadcast", bcast.Serve)

	dataAdapter := data.New(data.Config{
		BindAddress:      "127.0.0.1",
		Port:             0,
		ReadTimeout:      2 * time.Second,
		WriteTimeout:     2 * time.Second,
		ShutdownTimeout:  time.Second,
		BroadcastAddress: bcast.GetListenerAddr(),
		BroadcastTimeout: 2 * time.Second,
	}, store, nil)
	startAdapter(t, "data", dataAdapter.Serve)

	return New(Config{
		DataAddress:      dataAdapter.GetListenerAddr(),
		BroadcastAddress: bcast.GetListenerAddr(),
		DialTimeout:      2 * time.Second,
		RequestTimeout:   5 * time.Second,
	})
}

// startAdapter runs an adapter's Serve until test cleanup.
func startAdapter(t *testing.T, name string, serve func(context.Context) error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("%s Serve returned error: %v", name, err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("%s server did not stop within 5s", name)
		}
	})
}

// recvMessage waits for one pushed message on a stream.
func recvMessage(t *testing.T, s *Stream) protocol.Message {
	t.Helper()

	select {
	case msg, ok := <-s.Messages():
		if !ok {
			t.Fatalf("Stream closed while waiting for a push: %v", s.Err())
		}
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a pushed message")
	}
	panic("unreachable")
}

// =============================================================================
// One-Shot Calls
// =============================================================================

func TestInsertAndGetUser(t *testing.T) {
	c := startBackend(t)
	ctx := context.Background()

	created, err := c.InsertUser(ctx, "alice")
	if err != nil {
		t.Fatalf("InsertUser failed: %v", err)
	}
	if created.UserID == 0 || created.UserName != "alice" {
		t.Fatalf("Unexpected created user: %+v", created)
	}

	fetched, err := c.GetUser(ctx, created.UserID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if *fetched != *created {
		t.Fatalf("GetUser returned %+v, want %+v", fetched, created)
	}
}

func TestGetUserNotFound(t *testing.T) {
	c := startBackend(t)

	_, err := c.GetUser(context.Background(), 404)
	var wireErr *protocol.Error
	if !errors.As(err, &wireErr) {
		t.Fatalf("Expected a wire error, got %v", err)
	}
	if wireErr.Code != protocol.CodeNotFound {
		t.Fatalf("Expected %s, got %s", protocol.CodeNotFound, wireErr.Code)
	}
}

func TestPrivateChatIdempotence(t *testing.T) {
	c := startBackend(t)
	ctx := context.Background()

	alice, _ := c.InsertUser(ctx, "alice")
	bob, _ := c.InsertUser(ctx, "bob")

	chat1, err := c.InsertChat(ctx, "first", []int64{alice.UserID, bob.UserID})
	if err != nil {
		t.Fatalf("InsertChat failed: %v", err)
	}
	chat2, err := c.InsertChat(ctx, "second", []int64{bob.UserID, alice.UserID})
	if err != nil {
		t.Fatalf("Second InsertChat failed: %v", err)
	}
	if chat1.ChatID != chat2.ChatID {
		t.Fatalf("Private chats differ: %d vs %d", chat1.ChatID, chat2.ChatID)
	}
	if chat2.ChatName != "first" {
		t.Fatalf("Existing chat lost its stored name: %q", chat2.ChatName)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	c := startBackend(t)
	ctx := context.Background()

	alice, _ := c.InsertUser(ctx, "alice")
	bob, _ := c.InsertUser(ctx, "bob")
	chat, err := c.InsertChat(ctx, "pair", []int64{alice.UserID, bob.UserID})
	if err != nil {
		t.Fatalf("InsertChat failed: %v", err)
	}

	first, err := c.InsertMessage(ctx, chat.ChatID, alice.UserID, "hi")
	if err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	if first.MessageTS == 0 {
		t.Fatal("Server did not stamp a timestamp")
	}
	if first.User.UserID != alice.UserID {
		t.Fatalf("Message sender is %d, want %d", first.User.UserID, alice.UserID)
	}

	if _, err := c.InsertMessage(ctx, chat.ChatID, bob.UserID, "hey"); err != nil {
		t.Fatalf("Second InsertMessage failed: %v", err)
	}

	messages, err := c.GetMessages(ctx, chat.ChatID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].MessageText != "hi" || messages[1].MessageText != "hey" {
		t.Fatalf("Messages out of order: %+v", messages)
	}

	chats, err := c.GetChats(ctx, alice.UserID)
	if err != nil {
		t.Fatalf("GetChats failed: %v", err)
	}
	if len(chats) != 1 || len(chats[0].Messages) != 2 {
		t.Fatalf("Expected one hydrated chat with 2 messages, got %+v", chats)
	}
	// Private chats render under the other participant's name.
	if chats[0].ChatName != "bob" {
		t.Fatalf("Expected chat renamed to \"bob\", got %q", chats[0].ChatName)
	}
}

// =============================================================================
// Streaming
// =============================================================================

func TestStreamReceivesPushes(t *testing.T) {
	c := startBackend(t)
	ctx := context.Background()

	alice, _ := c.InsertUser(ctx, "alice")
	bob, _ := c.InsertUser(ctx, "bob")
	chat, _ := c.InsertChat(ctx, "pair", []int64{alice.UserID, bob.UserID})

	stream, err := c.OpenStream(ctx, bob.UserID)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer stream.Close()

	sent, err := c.InsertMessage(ctx, chat.ChatID, alice.UserID, "ping")
	if err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	got := recvMessage(t, stream)
	if got.MessageID != sent.MessageID || got.MessageText != "ping" {
		t.Fatalf("Pushed message %+v does not match sent %+v", got, sent)
	}
	if got.User.UserID != alice.UserID {
		t.Fatalf("Push carries sender %d, want %d", got.User.UserID, alice.UserID)
	}
}

func TestSenderDoesNotReceiveOwnMessage(t *testing.T) {
	c := startBackend(t)
	ctx := context.Background()

	alice, _ := c.InsertUser(ctx, "alice")
	bob, _ := c.InsertUser(ctx, "bob")
	chat, _ := c.InsertChat(ctx, "pair", []int64{alice.UserID, bob.UserID})

	aliceStream, err := c.OpenStream(ctx, alice.UserID)
	if err != nil {
		t.Fatalf("OpenStream(alice) failed: %v", err)
	}
	defer aliceStream.Close()

	bobStream, err := c.OpenStream(ctx, bob.UserID)
	if err != nil {
		t.Fatalf("OpenStream(bob) failed: %v", err)
	}
	defer bobStream.Close()

	if _, err := c.InsertMessage(ctx, chat.ChatID, alice.UserID, "hi"); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	recvMessage(t, bobStream)

	select {
	case msg := <-aliceStream.Messages():
		t.Fatalf("Sender received their own message: %+v", msg)
	case <-time.After(200 * time.Millisecond):
		// Nothing arrived, as expected.
	}
}

func TestStreamCloseEndsChannel(t *testing.T) {
	c := startBackend(t)
	ctx := context.Background()

	alice, _ := c.InsertUser(ctx, "alice")

	stream, err := c.OpenStream(ctx, alice.UserID)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case _, ok := <-stream.Messages():
		if ok {
			t.Fatal("Expected the channel to close without a message")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Messages channel did not close after Close")
	}

	if err := stream.Err(); err != nil {
		t.Fatalf("Deliberate close should not report an error, got %v", err)
	}
}

func TestCloseStreamUnregisters(t *testing.T) {
	c := startBackend(t)
	ctx := context.Background()

	alice, _ := c.InsertUser(ctx, "alice")
	bob, _ := c.InsertUser(ctx, "bob")
	chat, _ := c.InsertChat(ctx, "pair", []int64{alice.UserID, bob.UserID})

	stream, err := c.OpenStream(ctx, bob.UserID)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer stream.Close()

	if err := c.CloseStream(ctx, bob.UserID); err != nil {
		t.Fatalf("CloseStream failed: %v", err)
	}

	// The insert still succeeds with nobody listening.
	if _, err := c.InsertMessage(ctx, chat.ChatID, alice.UserID, "into the void"); err != nil {
		t.Fatalf("InsertMessage after CloseStream failed: %v", err)
	}
}

func TestOpenStreamWithoutBroadcastAddress(t *testing.T) {
	c := New(Config{DataAddress: "127.0.0.1:1"})

	if _, err := c.OpenStream(context.Background(), 1); err == nil {
		t.Fatal("Expected an error without a broadcast address")
	}
}
