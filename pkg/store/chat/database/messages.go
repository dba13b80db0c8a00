package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/marmos91/talko/pkg/store/chat"
)

// ============================================
// MESSAGE OPERATIONS
// ============================================

func (s *GORMStore) MessagesForChat(ctx context.Context, chatID int64) ([]chat.Message, error) {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return nil, err
	}

	var msgs []chat.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("message_ts ASC, message_id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *GORMStore) LatestMessageTS(ctx context.Context, chatID int64) (int64, bool, error) {
	row := s.db.WithContext(ctx).
		Model(&chat.Message{}).
		Where("chat_id = ?", chatID).
		Select("MAX(message_ts)").
		Row()

	var ts sql.NullInt64
	if err := row.Scan(&ts); err != nil {
		return 0, false, err
	}
	if !ts.Valid {
		return 0, false, nil
	}
	return ts.Int64, true, nil
}

func (s *GORMStore) CreateMessage(ctx context.Context, chatID, userID int64, text string, ts int64) (*chat.Message, error) {
	var created chat.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getByField[chat.Chat](tx, ctx, "chat_id", chatID, chat.ErrChatNotFound); err != nil {
			return err
		}
		if _, err := getByField[chat.User](tx, ctx, "user_id", userID, chat.ErrUserNotFound); err != nil {
			return err
		}

		created = chat.Message{
			ChatID:      chatID,
			UserID:      userID,
			MessageText: text,
			MessageTS:   ts,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
