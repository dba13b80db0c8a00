package storetest

import (
	"errors"
	"testing"

	"github.com/marmos91/talko/pkg/store/chat"
)

// runChatOpsTests runs all chat operation conformance tests.
func runChatOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("CreateChat", func(t *testing.T) { testCreateChat(t, factory) })
	t.Run("CreateChatDuplicateMembers", func(t *testing.T) { testCreateChatDuplicateMembers(t, factory) })
	t.Run("CreateChatMissingUser", func(t *testing.T) { testCreateChatMissingUser(t, factory) })
	t.Run("Participants", func(t *testing.T) { testParticipants(t, factory) })
	t.Run("ChatsForUser", func(t *testing.T) { testChatsForUser(t, factory) })
	t.Run("FindPrivateChat", func(t *testing.T) { testFindPrivateChat(t, factory) })
	t.Run("FindPrivateChatSelf", func(t *testing.T) { testFindPrivateChatSelf(t, factory) })
	t.Run("FindPrivateChatIgnoresGroups", func(t *testing.T) { testFindPrivateChatIgnoresGroups(t, factory) })
	t.Run("GetChatNotFound", func(t *testing.T) { testGetChatNotFound(t, factory) })
}

// testCreateChat verifies that a created chat is retrievable with its flags intact.
func testCreateChat(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")

	created := createTestChat(t, store, "general", false, alice.UserID, bob.UserID)

	if created.ChatID <= 0 {
		t.Errorf("ChatID = %d, want > 0", created.ChatID)
	}

	got, err := store.GetChat(t.Context(), created.ChatID)
	if err != nil {
		t.Fatalf("GetChat() failed: %v", err)
	}
	if got.ChatName != "general" {
		t.Errorf("ChatName = %q, want %q", got.ChatName, "general")
	}
	if got.Private {
		t.Error("Private = true, want false")
	}
}

// testCreateChatDuplicateMembers verifies duplicate user ids collapse to one membership.
func testCreateChatDuplicateMembers(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")

	c := createTestChat(t, store, "dup", false, alice.UserID, bob.UserID, alice.UserID)

	members, err := store.Participants(t.Context(), c.ChatID)
	if err != nil {
		t.Fatalf("Participants() failed: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("len(members) = %d, want 2", len(members))
	}
}

// testCreateChatMissingUser verifies that referencing an unknown user fails.
func testCreateChatMissingUser(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")

	_, err := store.CreateChat(t.Context(), "ghosts", false, []int64{alice.UserID, 999999})
	if err == nil {
		t.Fatal("CreateChat() with unknown member should fail")
	}
	if !errors.Is(err, chat.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got: %v", err)
	}
}

// testParticipants verifies membership listing returns every member exactly once.
func testParticipants(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	carol := createTestUser(t, store, "carol")

	c := createTestChat(t, store, "trio", false, alice.UserID, bob.UserID, carol.UserID)

	members, err := store.Participants(t.Context(), c.ChatID)
	if err != nil {
		t.Fatalf("Participants() failed: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("len(members) = %d, want 3", len(members))
	}

	names := make(map[string]bool)
	for _, m := range members {
		names[m.UserName] = true
	}
	for _, want := range []string{"alice", "bob", "carol"} {
		if !names[want] {
			t.Errorf("member %q missing from Participants()", want)
		}
	}
}

// testChatsForUser verifies each user only sees chats they belong to.
func testChatsForUser(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	carol := createTestUser(t, store, "carol")

	shared := createTestChat(t, store, "shared", false, alice.UserID, bob.UserID)
	solo := createTestChat(t, store, "solo", false, alice.UserID)

	chats, err := store.ChatsForUser(t.Context(), alice.UserID)
	if err != nil {
		t.Fatalf("ChatsForUser() failed: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("alice chats = %d, want 2", len(chats))
	}

	ids := map[int64]bool{chats[0].ChatID: true, chats[1].ChatID: true}
	if !ids[shared.ChatID] || !ids[solo.ChatID] {
		t.Errorf("alice chats = %v, want ids %d and %d", ids, shared.ChatID, solo.ChatID)
	}

	chats, err = store.ChatsForUser(t.Context(), carol.UserID)
	if err != nil {
		t.Fatalf("ChatsForUser() failed: %v", err)
	}
	if len(chats) != 0 {
		t.Errorf("carol chats = %d, want 0", len(chats))
	}
}

// testFindPrivateChat verifies exact-membership lookup of private chats.
func testFindPrivateChat(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")

	created := createTestChat(t, store, "alice-bob", true, alice.UserID, bob.UserID)

	found, err := store.FindPrivateChat(t.Context(), alice.UserID, bob.UserID)
	if err != nil {
		t.Fatalf("FindPrivateChat() failed: %v", err)
	}
	if found.ChatID != created.ChatID {
		t.Errorf("ChatID = %d, want %d", found.ChatID, created.ChatID)
	}

	// Order of the pair must not matter.
	found, err = store.FindPrivateChat(t.Context(), bob.UserID, alice.UserID)
	if err != nil {
		t.Fatalf("FindPrivateChat() reversed failed: %v", err)
	}
	if found.ChatID != created.ChatID {
		t.Errorf("reversed ChatID = %d, want %d", found.ChatID, created.ChatID)
	}
}

// testFindPrivateChatSelf verifies a single-member self chat is found when both ids match.
func testFindPrivateChatSelf(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")

	created := createTestChat(t, store, "notes", true, alice.UserID)

	found, err := store.FindPrivateChat(t.Context(), alice.UserID, alice.UserID)
	if err != nil {
		t.Fatalf("FindPrivateChat() failed: %v", err)
	}
	if found.ChatID != created.ChatID {
		t.Errorf("ChatID = %d, want %d", found.ChatID, created.ChatID)
	}
}

// testFindPrivateChatIgnoresGroups verifies group chats never match even with the same pair.
func testFindPrivateChatIgnoresGroups(t *testing.T, factory StoreFactory) {
	store := factory(t)

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")

	createTestChat(t, store, "public-pair", false, alice.UserID, bob.UserID)

	_, err := store.FindPrivateChat(t.Context(), alice.UserID, bob.UserID)
	if !errors.Is(err, chat.ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound, got: %v", err)
	}
}

// testGetChatNotFound verifies missing chats surface ErrChatNotFound.
func testGetChatNotFound(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, err := store.GetChat(t.Context(), 424242)
	if !errors.Is(err, chat.ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound, got: %v", err)
	}

	_, err = store.Participants(t.Context(), 424242)
	if !errors.Is(err, chat.ErrChatNotFound) {
		t.Errorf("Participants() expected ErrChatNotFound, got: %v", err)
	}
}
