package storetest

import (
	"errors"
	"testing"

	"github.com/marmos91/talko/pkg/store/chat"
)

// runUserOpsTests runs all user operation conformance tests.
func runUserOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("CreateUser", func(t *testing.T) { testCreateUser(t, factory) })
	t.Run("CreateUserDuplicate", func(t *testing.T) { testCreateUserDuplicate(t, factory) })
	t.Run("GetUserByName", func(t *testing.T) { testGetUserByName(t, factory) })
	t.Run("GetUserByID", func(t *testing.T) { testGetUserByID(t, factory) })
	t.Run("GetUserNotFound", func(t *testing.T) { testGetUserNotFound(t, factory) })
	t.Run("UserIDsIncrease", func(t *testing.T) { testUserIDsIncrease(t, factory) })
}

// testCreateUser verifies that creating a user assigns an id and stores the name.
func testCreateUser(t *testing.T, factory StoreFactory) {
	store := factory(t)

	user := createTestUser(t, store, "marco")

	if user.UserID <= 0 {
		t.Errorf("UserID = %d, want > 0", user.UserID)
	}
	if user.UserName != "marco" {
		t.Errorf("UserName = %q, want %q", user.UserName, "marco")
	}
}

// testCreateUserDuplicate verifies that duplicate names are rejected.
func testCreateUserDuplicate(t *testing.T, factory StoreFactory) {
	store := factory(t)

	createTestUser(t, store, "marco")

	_, err := store.CreateUser(t.Context(), "marco")
	if err == nil {
		t.Fatal("CreateUser() with duplicate name should fail")
	}
	if !errors.Is(err, chat.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got: %v", err)
	}
}

// testGetUserByName verifies lookup by name returns the created user.
func testGetUserByName(t *testing.T, factory StoreFactory) {
	store := factory(t)

	created := createTestUser(t, store, "giulia")

	user, err := store.GetUserByName(t.Context(), "giulia")
	if err != nil {
		t.Fatalf("GetUserByName() failed: %v", err)
	}
	if user.UserID != created.UserID {
		t.Errorf("UserID = %d, want %d", user.UserID, created.UserID)
	}
	if user.UserName != "giulia" {
		t.Errorf("UserName = %q, want %q", user.UserName, "giulia")
	}
}

// testGetUserByID verifies lookup by id returns the created user.
func testGetUserByID(t *testing.T, factory StoreFactory) {
	store := factory(t)

	created := createTestUser(t, store, "luca")

	user, err := store.GetUserByID(t.Context(), created.UserID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if user.UserName != "luca" {
		t.Errorf("UserName = %q, want %q", user.UserName, "luca")
	}
}

// testGetUserNotFound verifies that missing users surface ErrUserNotFound.
func testGetUserNotFound(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, err := store.GetUserByName(t.Context(), "nobody")
	if !errors.Is(err, chat.ErrUserNotFound) {
		t.Errorf("GetUserByName() expected ErrUserNotFound, got: %v", err)
	}

	_, err = store.GetUserByID(t.Context(), 424242)
	if !errors.Is(err, chat.ErrUserNotFound) {
		t.Errorf("GetUserByID() expected ErrUserNotFound, got: %v", err)
	}
}

// testUserIDsIncrease verifies ids are assigned in increasing order.
func testUserIDsIncrease(t *testing.T, factory StoreFactory) {
	store := factory(t)

	first := createTestUser(t, store, "first")
	second := createTestUser(t, store, "second")

	if second.UserID <= first.UserID {
		t.Errorf("second UserID = %d, want > %d", second.UserID, first.UserID)
	}
}
