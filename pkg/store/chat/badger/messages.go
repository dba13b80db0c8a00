package badger

import (
	"context"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/talko/pkg/store/chat"
)

// ============================================
// MESSAGE OPERATIONS
// ============================================

// scanMessages decodes all messages of a chat inside an open transaction.
func scanMessages(txn *badger.Txn, chatID int64) ([]chat.Message, error) {
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := keyMessagePrefix(chatID)
	var msgs []chat.Message
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			msg, err := decodeMessage(val)
			if err != nil {
				return err
			}
			msgs = append(msgs, *msg)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

func (s *BadgerChatStore) MessagesForChat(ctx context.Context, chatID int64) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var msgs []chat.Message
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getChat(txn, chatID); err != nil {
			return err
		}

		var scanErr error
		msgs, scanErr = scanMessages(txn, chatID)
		return scanErr
	})
	if err != nil {
		return nil, err
	}

	// Keys scan in id order; history order is timestamp first, id second.
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].MessageTS != msgs[j].MessageTS {
			return msgs[i].MessageTS < msgs[j].MessageTS
		}
		return msgs[i].MessageID < msgs[j].MessageID
	})
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}

func (s *BadgerChatStore) LatestMessageTS(ctx context.Context, chatID int64) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	var latest int64
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		msgs, err := scanMessages(txn, chatID)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if !found || msg.MessageTS > latest {
				latest = msg.MessageTS
				found = true
			}
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return latest, found, nil
}

func (s *BadgerChatStore) CreateMessage(ctx context.Context, chatID, userID int64, text string, ts int64) (*chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := nextID(s.msgSeq)
	if err != nil {
		return nil, err
	}

	msg := &chat.Message{
		MessageID:   id,
		ChatID:      chatID,
		UserID:      userID,
		MessageText: text,
		MessageTS:   ts,
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := getChat(txn, chatID); err != nil {
			return err
		}
		if _, err := getUser(txn, userID); err != nil {
			return err
		}

		data, err := encodeMessage(msg)
		if err != nil {
			return err
		}
		return txn.Set(keyMessage(chatID, id), data)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}
