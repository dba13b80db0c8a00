package protocol

// RPC method names. The data server serves the first six; the broadcast
// server serves the last three.
const (
	MethodGetUser       = "GetUser"
	MethodInsertUser    = "InsertUser"
	MethodGetChats      = "GetChats"
	MethodGetMessages   = "GetMessages"
	MethodInsertChat    = "InsertChat"
	MethodInsertMessage = "InsertMessage"

	MethodOpenStream  = "OpenStream"
	MethodCloseStream = "CloseStream"
	MethodBroadcast   = "Broadcast"
)

// GetUserParams looks a user up by id.
type GetUserParams struct {
	UserID int64 `json:"user_id"`
}

// GetUserResult carries the found user. Unknown ids produce a not_found
// error envelope instead.
type GetUserResult struct {
	User User `json:"user"`
}

// InsertUserParams creates a user.
type InsertUserParams struct {
	UserName string `json:"user_name"`
}

// InsertUserResult carries the created user with its assigned id.
type InsertUserResult struct {
	User User `json:"user"`
}

// GetChatsParams lists the chats a user participates in.
type GetChatsParams struct {
	UserID int64 `json:"user_id"`
}

// GetChatsResult carries hydrated chats ordered newest-activity first.
type GetChatsResult struct {
	Chats []Chat `json:"chats"`
}

// GetMessagesParams lists a chat's message history.
type GetMessagesParams struct {
	ChatID int64 `json:"chat_id"`
}

// GetMessagesResult carries messages in ascending timestamp order.
type GetMessagesResult struct {
	Messages []Message `json:"messages"`
}

// InsertChatParams creates a chat with the given participants.
type InsertChatParams struct {
	ChatName string  `json:"chat_name"`
	UserIDs  []int64 `json:"user_ids"`
}

// InsertChatResult carries the created chat, or the existing one when a
// private chat for the same two participants already exists.
type InsertChatResult struct {
	Chat Chat `json:"chat"`
}

// InsertMessageParams appends a message to a chat.
type InsertMessageParams struct {
	ChatID      int64  `json:"chat_id"`
	UserID      int64  `json:"user_id"`
	MessageText string `json:"message_text"`
}

// InsertMessageResult carries the stored message with its server-stamped
// timestamp.
type InsertMessageResult struct {
	Message Message `json:"message"`
}

// OpenStreamParams registers the connection as a push stream for a user.
type OpenStreamParams struct {
	UserID int64 `json:"user_id"`
}

// OpenStreamResult acknowledges stream registration.
type OpenStreamResult struct {
	OK bool `json:"ok"`
}

// CloseStreamParams unregisters a user's push stream.
type CloseStreamParams struct {
	UserID int64 `json:"user_id"`
}

// CloseStreamResult acknowledges stream removal.
type CloseStreamResult struct {
	OK bool `json:"ok"`
}

// BroadcastParams fans a message out to the given receivers. Receivers
// without a registered stream are skipped.
type BroadcastParams struct {
	ReceiverIDs []int64 `json:"receiver_ids"`
	Message     Message `json:"message"`
}

// BroadcastResult carries the receiver ids that were actually pushed to.
type BroadcastResult struct {
	ReceiverIDs []int64 `json:"receiver_ids"`
}
