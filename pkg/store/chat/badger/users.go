package badger

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/talko/pkg/store/chat"
)

// ============================================
// USER OPERATIONS
// ============================================

// getUser loads a user by id inside an open transaction.
func getUser(txn *badger.Txn, id int64) (*chat.User, error) {
	item, err := txn.Get(keyUser(id))
	if err == badger.ErrKeyNotFound {
		return nil, chat.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	var user *chat.User
	err = item.Value(func(val []byte) error {
		var decErr error
		user, decErr = decodeUser(val)
		return decErr
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *BadgerChatStore) GetUserByName(ctx context.Context, name string) (*chat.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user *chat.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyUserName(name))
		if err == badger.ErrKeyNotFound {
			return chat.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		var id int64
		if err := item.Value(func(val []byte) error {
			var decErr error
			id, decErr = decodeID(val)
			return decErr
		}); err != nil {
			return err
		}

		user, err = getUser(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *BadgerChatStore) GetUserByID(ctx context.Context, id int64) (*chat.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user *chat.User
	err := s.db.View(func(txn *badger.Txn) error {
		var getErr error
		user, getErr = getUser(txn, id)
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *BadgerChatStore) CreateUser(ctx context.Context, name string) (*chat.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := nextID(s.userSeq)
	if err != nil {
		return nil, err
	}

	user := &chat.User{UserID: id, UserName: name}
	err = s.db.Update(func(txn *badger.Txn) error {
		// The name index doubles as the uniqueness check. Badger's
		// transaction conflict detection covers concurrent creates.
		_, err := txn.Get(keyUserName(name))
		if err == nil {
			return chat.ErrUserExists
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		data, err := encodeUser(user)
		if err != nil {
			return err
		}
		if err := txn.Set(keyUser(id), data); err != nil {
			return err
		}
		return txn.Set(keyUserName(name), encodeID(id))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
