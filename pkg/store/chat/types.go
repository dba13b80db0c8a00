// Package chat defines the chat store contract shared by all storage
// backends: the persisted record types, the Store interface, and the
// sentinel errors implementations translate backend failures into.
package chat

// User is a registered chat user.
type User struct {
	UserID   int64  `gorm:"primaryKey;autoIncrement" json:"user_id"`
	UserName string `gorm:"uniqueIndex;not null;size:255" json:"user_name"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// Chat is a conversation. Private chats are created implicitly for exactly
// two participants and render under the other participant's name.
type Chat struct {
	ChatID   int64  `gorm:"primaryKey;autoIncrement" json:"chat_id"`
	ChatName string `gorm:"not null;size:255" json:"chat_name"`
	Private  bool   `gorm:"not null;default:false" json:"private"`
}

// TableName returns the table name for Chat.
func (Chat) TableName() string {
	return "chats"
}

// Participant links a user to a chat.
type Participant struct {
	ChatID int64 `gorm:"primaryKey;autoIncrement:false" json:"chat_id"`
	UserID int64 `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
}

// TableName returns the table name for Participant.
func (Participant) TableName() string {
	return "participants"
}

// Message is a stored chat message. MessageTS is Unix milliseconds stamped
// by the data server, never by clients.
type Message struct {
	MessageID   int64  `gorm:"primaryKey;autoIncrement" json:"message_id"`
	ChatID      int64  `gorm:"index;not null" json:"chat_id"`
	UserID      int64  `gorm:"not null" json:"user_id"`
	MessageText string `gorm:"not null" json:"message_text"`
	MessageTS   int64  `gorm:"index;not null" json:"message_ts"`
}

// TableName returns the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&Chat{},
		&Participant{},
		&Message{},
	}
}
