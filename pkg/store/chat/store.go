package chat

import "context"

// Store is the persistence contract for chat data.
//
// Implementations must be safe for concurrent use by multiple goroutines:
// the data server serves every request from a worker goroutine against one
// shared Store instance.
//
// Lookups return the sentinel errors from errors.go (possibly wrapped);
// callers match with errors.Is.
type Store interface {
	// GetUserByName returns the user with the given name, or ErrUserNotFound.
	GetUserByName(ctx context.Context, name string) (*User, error)

	// GetUserByID returns the user with the given id, or ErrUserNotFound.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// CreateUser creates a user with the given name and returns it with its
	// assigned id. Returns ErrUserExists when the name is taken.
	CreateUser(ctx context.Context, name string) (*User, error)

	// GetChat returns the chat with the given id, or ErrChatNotFound.
	GetChat(ctx context.Context, chatID int64) (*Chat, error)

	// ChatsForUser returns every chat the user participates in, in no
	// particular order. Returns ErrUserNotFound for unknown users.
	ChatsForUser(ctx context.Context, userID int64) ([]Chat, error)

	// Participants returns the users in a chat. Returns ErrChatNotFound for
	// unknown chats.
	Participants(ctx context.Context, chatID int64) ([]User, error)

	// FindPrivateChat returns the private chat whose participant set is
	// exactly {a, b}, or ErrChatNotFound when none exists. a == b matches
	// the single-member self chat.
	FindPrivateChat(ctx context.Context, a, b int64) (*Chat, error)

	// CreateChat creates a chat with the given participants. Every user id
	// must exist (ErrUserNotFound otherwise). Duplicated ids are collapsed.
	CreateChat(ctx context.Context, name string, private bool, userIDs []int64) (*Chat, error)

	// MessagesForChat returns a chat's messages ordered by timestamp
	// ascending, ties broken by message id ascending. Returns
	// ErrChatNotFound for unknown chats and an empty slice for chats
	// without messages.
	MessagesForChat(ctx context.Context, chatID int64) ([]Message, error)

	// LatestMessageTS returns the newest message timestamp in a chat. The
	// bool reports whether the chat has any messages.
	LatestMessageTS(ctx context.Context, chatID int64) (int64, bool, error)

	// CreateMessage stores a message with the given server-stamped
	// timestamp and returns it with its assigned id. The chat and user
	// must exist.
	CreateMessage(ctx context.Context, chatID, userID int64, text string, ts int64) (*Message, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources. The store is unusable afterwards.
	Close() error
}
