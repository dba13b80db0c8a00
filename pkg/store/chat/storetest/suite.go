package storetest

import (
	"testing"

	"github.com/marmos91/talko/pkg/store/chat"
)

// StoreFactory creates a fresh Store instance for each test.
// The factory receives *testing.T so it can use t.TempDir() for stores
// that need filesystem paths and t.Cleanup() for teardown.
type StoreFactory func(t *testing.T) chat.Store

// RunConformanceSuite runs the full conformance test suite against the provided
// store factory. Each test gets a fresh store instance to ensure isolation.
//
// The suite covers three categories:
//   - UserOps: user creation, lookup by name and id, duplicate names
//   - ChatOps: chat creation, membership, private chat lookup, listing
//   - MessageOps: message creation, ordering, latest-timestamp tracking
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("UserOps", func(t *testing.T) {
		runUserOpsTests(t, factory)
	})

	t.Run("ChatOps", func(t *testing.T) {
		runChatOpsTests(t, factory)
	})

	t.Run("MessageOps", func(t *testing.T) {
		runMessageOpsTests(t, factory)
	})
}

// createTestUser is a helper that creates a user and fails the test on error.
func createTestUser(t *testing.T, store chat.Store, name string) *chat.User {
	t.Helper()

	user, err := store.CreateUser(t.Context(), name)
	if err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", name, err)
	}
	return user
}

// createTestChat is a helper that creates a chat with the given members.
func createTestChat(t *testing.T, store chat.Store, name string, private bool, userIDs ...int64) *chat.Chat {
	t.Helper()

	c, err := store.CreateChat(t.Context(), name, private, userIDs)
	if err != nil {
		t.Fatalf("CreateChat(%q) failed: %v", name, err)
	}
	return c
}
