package badger

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/talko/pkg/store/chat"
)

// ============================================
// CHAT OPERATIONS
// ============================================

// getChat loads a chat by id inside an open transaction.
func getChat(txn *badger.Txn, id int64) (*chat.Chat, error) {
	item, err := txn.Get(keyChat(id))
	if err == badger.ErrKeyNotFound {
		return nil, chat.ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}

	var c *chat.Chat
	err = item.Value(func(val []byte) error {
		var decErr error
		c, decErr = decodeChat(val)
		return decErr
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// scanIndexIDs collects the trailing ids of all keys under an index prefix.
func scanIndexIDs(txn *badger.Txn, prefix []byte) ([]int64, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []int64
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		id, err := idFromKey(it.Item().Key(), prefix)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *BadgerChatStore) GetChat(ctx context.Context, chatID int64) (*chat.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c *chat.Chat
	err := s.db.View(func(txn *badger.Txn) error {
		var getErr error
		c, getErr = getChat(txn, chatID)
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *BadgerChatStore) ChatsForUser(ctx context.Context, userID int64) ([]chat.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chats []chat.Chat
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getUser(txn, userID); err != nil {
			return err
		}

		chatIDs, err := scanIndexIDs(txn, keyUserChatPrefix(userID))
		if err != nil {
			return err
		}

		chats = make([]chat.Chat, 0, len(chatIDs))
		for _, chatID := range chatIDs {
			c, err := getChat(txn, chatID)
			if err != nil {
				return err
			}
			chats = append(chats, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *BadgerChatStore) Participants(ctx context.Context, chatID int64) ([]chat.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var users []chat.User
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getChat(txn, chatID); err != nil {
			return err
		}

		userIDs, err := scanIndexIDs(txn, keyMemberPrefix(chatID))
		if err != nil {
			return err
		}

		users = make([]chat.User, 0, len(userIDs))
		for _, userID := range userIDs {
			user, err := getUser(txn, userID)
			if err != nil {
				return err
			}
			users = append(users, *user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *BadgerChatStore) FindPrivateChat(ctx context.Context, a, b int64) (*chat.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := map[int64]bool{a: true, b: true}

	var found *chat.Chat
	err := s.db.View(func(txn *badger.Txn) error {
		// Scanning one member's chats is enough: any matching chat
		// contains both users by definition.
		chatIDs, err := scanIndexIDs(txn, keyUserChatPrefix(a))
		if err != nil {
			return err
		}

		for _, chatID := range chatIDs {
			c, err := getChat(txn, chatID)
			if err != nil {
				return err
			}
			if !c.Private {
				continue
			}

			memberIDs, err := scanIndexIDs(txn, keyMemberPrefix(chatID))
			if err != nil {
				return err
			}
			if len(memberIDs) != len(want) {
				continue
			}

			match := true
			for _, id := range memberIDs {
				if !want[id] {
					match = false
					break
				}
			}
			if match {
				found = c
				return nil
			}
		}
		return chat.ErrChatNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *BadgerChatStore) CreateChat(ctx context.Context, name string, private bool, userIDs []int64) (*chat.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unique := dedupe(userIDs)

	id, err := nextID(s.chatSeq)
	if err != nil {
		return nil, err
	}

	c := &chat.Chat{ChatID: id, ChatName: name, Private: private}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, userID := range unique {
			if _, err := getUser(txn, userID); err != nil {
				return err
			}
		}

		data, err := encodeChat(c)
		if err != nil {
			return err
		}
		if err := txn.Set(keyChat(id), data); err != nil {
			return err
		}

		for _, userID := range unique {
			if err := txn.Set(keyMember(id, userID), nil); err != nil {
				return err
			}
			if err := txn.Set(keyUserChat(userID, id), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// dedupe collapses duplicate ids preserving first-seen order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
