package storetest

import (
	"errors"
	"testing"

	"github.com/marmos91/talko/pkg/store/chat"
)

// runMessageOpsTests runs all message operation conformance tests.
func runMessageOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("CreateMessage", func(t *testing.T) { testCreateMessage(t, factory) })
	t.Run("CreateMessageMissingChat", func(t *testing.T) { testCreateMessageMissingChat(t, factory) })
	t.Run("CreateMessageMissingUser", func(t *testing.T) { testCreateMessageMissingUser(t, factory) })
	t.Run("MessagesOrdering", func(t *testing.T) { testMessagesOrdering(t, factory) })
	t.Run("MessagesTimestampTies", func(t *testing.T) { testMessagesTimestampTies(t, factory) })
	t.Run("MessagesEmptyChat", func(t *testing.T) { testMessagesEmptyChat(t, factory) })
	t.Run("LatestMessageTS", func(t *testing.T) { testLatestMessageTS(t, factory) })
}

// testCreateMessage verifies a stored message round-trips with all fields.
func testCreateMessage(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	c := createTestChat(t, store, "general", false, alice.UserID)

	msg, err := store.CreateMessage(t.Context(), c.ChatID, alice.UserID, "hello world", 1700000000000)
	if err != nil {
		t.Fatalf("CreateMessage() failed: %v", err)
	}

	if msg.MessageID <= 0 {
		t.Errorf("MessageID = %d, want > 0", msg.MessageID)
	}
	if msg.ChatID != c.ChatID {
		t.Errorf("ChatID = %d, want %d", msg.ChatID, c.ChatID)
	}
	if msg.UserID != alice.UserID {
		t.Errorf("UserID = %d, want %d", msg.UserID, alice.UserID)
	}
	if msg.MessageText != "hello world" {
		t.Errorf("MessageText = %q, want %q", msg.MessageText, "hello world")
	}
	if msg.MessageTS != 1700000000000 {
		t.Errorf("MessageTS = %d, want 1700000000000", msg.MessageTS)
	}
}

// testCreateMessageMissingChat verifies a missing chat is rejected.
func testCreateMessageMissingChat(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")

	_, err := store.CreateMessage(t.Context(), 424242, alice.UserID, "into the void", 1)
	if !errors.Is(err, chat.ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound, got: %v", err)
	}
}

// testCreateMessageMissingUser verifies a missing author is rejected.
func testCreateMessageMissingUser(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	c := createTestChat(t, store, "general", false, alice.UserID)

	_, err := store.CreateMessage(t.Context(), c.ChatID, 424242, "ghost", 1)
	if !errors.Is(err, chat.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got: %v", err)
	}
}

// testMessagesOrdering verifies history comes back oldest first regardless of
// insertion order.
func testMessagesOrdering(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	c := createTestChat(t, store, "general", false, alice.UserID)

	ctx := t.Context()
	for _, ts := range []int64{300, 100, 200} {
		if _, err := store.CreateMessage(ctx, c.ChatID, alice.UserID, "msg", ts); err != nil {
			t.Fatalf("CreateMessage(ts=%d) failed: %v", ts, err)
		}
	}

	msgs, err := store.MessagesForChat(ctx, c.ChatID)
	if err != nil {
		t.Fatalf("MessagesForChat() failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d, want 3", len(msgs))
	}
	for i, want := range []int64{100, 200, 300} {
		if msgs[i].MessageTS != want {
			t.Errorf("msgs[%d].MessageTS = %d, want %d", i, msgs[i].MessageTS, want)
		}
	}
}

// testMessagesTimestampTies verifies equal timestamps fall back to id order.
func testMessagesTimestampTies(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	c := createTestChat(t, store, "general", false, alice.UserID)

	ctx := t.Context()
	var ids []int64
	for range 3 {
		msg, err := store.CreateMessage(ctx, c.ChatID, alice.UserID, "tick", 500)
		if err != nil {
			t.Fatalf("CreateMessage() failed: %v", err)
		}
		ids = append(ids, msg.MessageID)
	}

	msgs, err := store.MessagesForChat(ctx, c.ChatID)
	if err != nil {
		t.Fatalf("MessagesForChat() failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d, want 3", len(msgs))
	}
	for i, want := range ids {
		if msgs[i].MessageID != want {
			t.Errorf("msgs[%d].MessageID = %d, want %d", i, msgs[i].MessageID, want)
		}
	}
}

// testMessagesEmptyChat verifies an empty chat yields an empty history, not an error.
func testMessagesEmptyChat(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	c := createTestChat(t, store, "quiet", false, alice.UserID)

	msgs, err := store.MessagesForChat(t.Context(), c.ChatID)
	if err != nil {
		t.Fatalf("MessagesForChat() failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("len(msgs) = %d, want 0", len(msgs))
	}
}

// testLatestMessageTS verifies the newest timestamp is tracked per chat.
func testLatestMessageTS(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	c := createTestChat(t, store, "general", false, alice.UserID)

	ctx := t.Context()

	_, found, err := store.LatestMessageTS(ctx, c.ChatID)
	if err != nil {
		t.Fatalf("LatestMessageTS() on empty chat failed: %v", err)
	}
	if found {
		t.Error("found = true on empty chat, want false")
	}

	for _, ts := range []int64{100, 900, 500} {
		if _, err := store.CreateMessage(ctx, c.ChatID, alice.UserID, "msg", ts); err != nil {
			t.Fatalf("CreateMessage(ts=%d) failed: %v", ts, err)
		}
	}

	latest, found, err := store.LatestMessageTS(ctx, c.ChatID)
	if err != nil {
		t.Fatalf("LatestMessageTS() failed: %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}
	if latest != 900 {
		t.Errorf("latest = %d, want 900", latest)
	}
}
