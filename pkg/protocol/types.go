package protocol

// User is a chat user as it appears on the wire.
type User struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}

// Message is a chat message with its sender embedded.
//
// MessageTS is Unix milliseconds, stamped by the data server at insert
// time. Clients never supply timestamps.
type Message struct {
	MessageID   int64  `json:"message_id"`
	ChatID      int64  `json:"chat_id"`
	User        User   `json:"user"`
	MessageText string `json:"message_text"`
	MessageTS   int64  `json:"message_ts"`
}

// Chat is the hydrated form of a chat: participants and full message
// history included. Users and Messages encode as [] rather than null when
// empty.
type Chat struct {
	ChatID   int64     `json:"chat_id"`
	ChatName string    `json:"chat_name"`
	Users    []User    `json:"users"`
	Messages []Message `json:"messages"`
}

// PushPayload is the result body of an id-less push frame sent to stream
// subscribers.
type PushPayload struct {
	Message Message `json:"message"`
}
