package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/marmos91/talko/pkg/store/chat"
)

// ============================================
// CHAT OPERATIONS
// ============================================

func (s *GORMStore) GetChat(ctx context.Context, chatID int64) (*chat.Chat, error) {
	return getByField[chat.Chat](s.db, ctx, "chat_id", chatID, chat.ErrChatNotFound)
}

func (s *GORMStore) ChatsForUser(ctx context.Context, userID int64) ([]chat.Chat, error) {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	var chats []chat.Chat
	err := s.db.WithContext(ctx).
		Joins("JOIN participants ON participants.chat_id = chats.chat_id").
		Where("participants.user_id = ?", userID).
		Order("chats.chat_id ASC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *GORMStore) Participants(ctx context.Context, chatID int64) ([]chat.User, error) {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return nil, err
	}

	var users []chat.User
	err := s.db.WithContext(ctx).
		Joins("JOIN participants ON participants.user_id = users.user_id").
		Where("participants.chat_id = ?", chatID).
		Order("users.user_id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GORMStore) FindPrivateChat(ctx context.Context, a, b int64) (*chat.Chat, error) {
	// A self chat has a single member, so the pair collapses to one id.
	ids := []int64{a, b}
	if a == b {
		ids = []int64{a}
	}

	// Match chats whose member set is exactly ids: same cardinality and
	// every member inside the pair.
	var c chat.Chat
	err := s.db.WithContext(ctx).
		Where("private = ?", true).
		Where("(SELECT COUNT(*) FROM participants WHERE participants.chat_id = chats.chat_id) = ?", len(ids)).
		Where("(SELECT COUNT(*) FROM participants WHERE participants.chat_id = chats.chat_id AND participants.user_id IN ?) = ?", ids, len(ids)).
		First(&c).Error
	if err != nil {
		return nil, convertNotFoundError(err, chat.ErrChatNotFound)
	}
	return &c, nil
}

func (s *GORMStore) CreateChat(ctx context.Context, name string, private bool, userIDs []int64) (*chat.Chat, error) {
	unique := dedupe(userIDs)

	var created chat.Chat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(unique) > 0 {
			count, err := countByIDs[chat.User](tx, ctx, "user_id", unique)
			if err != nil {
				return err
			}
			if count != int64(len(unique)) {
				return chat.ErrUserNotFound
			}
		}

		created = chat.Chat{ChatName: name, Private: private}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		if len(unique) == 0 {
			return nil
		}
		members := make([]chat.Participant, 0, len(unique))
		for _, id := range unique {
			members = append(members, chat.Participant{ChatID: created.ChatID, UserID: id})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
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
