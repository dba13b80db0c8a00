package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/marmos91/talko/pkg/store/chat"
)

// ============================================================================
// Database Key Namespace Design
// ============================================================================
//
// BadgerDB is a key-value store, so we use prefixed keys to organize different
// data types into logical namespaces. Numeric ids are zero-padded to 20 digits
// so lexicographic key order matches numeric order, which lets range scans
// return rows already sorted by id.
//
// Key Namespace Prefixes:
//
// Data Type          Prefix   Key Format                      Value Type
// ==========================================================================
// User               "u:"     u:<userID>                      User (JSON)
// User Name Index    "un:"    un:<userName>                   userID (binary)
// Chat               "c:"     c:<chatID>                      Chat (JSON)
// Chat Members       "m:"     m:<chatID>:<userID>             empty
// User Chats Index   "uc:"    uc:<userID>:<chatID>            empty
// Message            "msg:"   msg:<chatID>:<messageID>        Message (JSON)
// Sequences          "seq:"   seq:users|chats|messages        managed by Badger

const (
	prefixUser      = "u:"
	prefixUserName  = "un:"
	prefixChat      = "c:"
	prefixMember    = "m:"
	prefixUserChats = "uc:"
	prefixMessage   = "msg:"

	keySequenceUsers    = "seq:users"
	keySequenceChats    = "seq:chats"
	keySequenceMessages = "seq:messages"
)

// ============================================================================
// Key Generation Functions
// ============================================================================

// padID formats an id as a fixed-width decimal so key order matches id order.
func padID(id int64) string {
	return fmt.Sprintf("%020d", id)
}

// keyUser generates a key for user data: "u:<userID>"
func keyUser(id int64) []byte {
	return []byte(prefixUser + padID(id))
}

// keyUserName generates a key for the unique user name index: "un:<userName>"
func keyUserName(name string) []byte {
	return []byte(prefixUserName + name)
}

// keyChat generates a key for chat data: "c:<chatID>"
func keyChat(id int64) []byte {
	return []byte(prefixChat + padID(id))
}

// keyMember generates a key for a chat membership: "m:<chatID>:<userID>"
func keyMember(chatID, userID int64) []byte {
	return []byte(prefixMember + padID(chatID) + ":" + padID(userID))
}

// keyMemberPrefix generates a key prefix for scanning chat members: "m:<chatID>:"
func keyMemberPrefix(chatID int64) []byte {
	return []byte(prefixMember + padID(chatID) + ":")
}

// keyUserChat generates a key for the user-to-chats index: "uc:<userID>:<chatID>"
func keyUserChat(userID, chatID int64) []byte {
	return []byte(prefixUserChats + padID(userID) + ":" + padID(chatID))
}

// keyUserChatPrefix generates a key prefix for scanning a user's chats: "uc:<userID>:"
func keyUserChatPrefix(userID int64) []byte {
	return []byte(prefixUserChats + padID(userID) + ":")
}

// keyMessage generates a key for message data: "msg:<chatID>:<messageID>"
func keyMessage(chatID, messageID int64) []byte {
	return []byte(prefixMessage + padID(chatID) + ":" + padID(messageID))
}

// keyMessagePrefix generates a key prefix for scanning a chat's messages: "msg:<chatID>:"
func keyMessagePrefix(chatID int64) []byte {
	return []byte(prefixMessage + padID(chatID) + ":")
}

// idFromKey extracts the trailing id component from an index key.
func idFromKey(key []byte, prefix []byte) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(string(key[len(prefix):]), "%d", &id); err != nil {
		return 0, fmt.Errorf("malformed key %q: %w", key, err)
	}
	return id, nil
}

// ============================================================================
// Value Encoding
// ============================================================================

func encodeUser(user *chat.User) ([]byte, error) {
	return json.Marshal(user)
}

func decodeUser(data []byte) (*chat.User, error) {
	var user chat.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

func encodeChat(c *chat.Chat) ([]byte, error) {
	return json.Marshal(c)
}

func decodeChat(data []byte) (*chat.Chat, error) {
	var c chat.Chat
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode chat: %w", err)
	}
	return &c, nil
}

func encodeMessage(msg *chat.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func decodeMessage(data []byte) (*chat.Message, error) {
	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &msg, nil
}

func encodeID(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func decodeID(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid id encoding: got %d bytes, want 8", len(data))
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}
