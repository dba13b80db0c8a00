package chat

import "errors"

// Common errors for chat store operations.
var (
	// ErrUserNotFound indicates a lookup of a user that does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates a create with an already-taken user name.
	ErrUserExists = errors.New("user already exists")

	// ErrChatNotFound indicates a lookup of a chat that does not exist.
	ErrChatNotFound = errors.New("chat not found")

	// ErrNotParticipant indicates an operation by a user who is not a
	// member of the chat.
	ErrNotParticipant = errors.New("user is not a participant of the chat")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)
