package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/marmos91/talko/pkg/store/chat"
)

// importBatchSize bounds the rows per INSERT during Import.
const importBatchSize = 500

// Export returns a full snapshot of the store, ordered by primary key.
func (s *GORMStore) Export(ctx context.Context) (*chat.Snapshot, error) {
	snap := &chat.Snapshot{}

	if err := s.db.WithContext(ctx).Order("user_id").Find(&snap.Users).Error; err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.db.WithContext(ctx).Order("chat_id").Find(&snap.Chats).Error; err != nil {
		return nil, fmt.Errorf("failed to export chats: %w", err)
	}
	if err := s.db.WithContext(ctx).Order("chat_id, user_id").Find(&snap.Participants).Error; err != nil {
		return nil, fmt.Errorf("failed to export participants: %w", err)
	}
	if err := s.db.WithContext(ctx).Order("message_id").Find(&snap.Messages).Error; err != nil {
		return nil, fmt.Errorf("failed to export messages: %w", err)
	}

	return snap, nil
}

// Import loads a snapshot into an empty database in one transaction,
// preserving record ids.
func (s *GORMStore) Import(ctx context.Context, snap *chat.Snapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&chat.User{}).Count(&users).Error; err != nil {
			return fmt.Errorf("failed to inspect target store: %w", err)
		}
		var chats int64
		if err := tx.Model(&chat.Chat{}).Count(&chats).Error; err != nil {
			return fmt.Errorf("failed to inspect target store: %w", err)
		}
		if users > 0 || chats > 0 {
			return fmt.Errorf("cannot import into a non-empty store")
		}

		if len(snap.Users) > 0 {
			if err := tx.CreateInBatches(snap.Users, importBatchSize).Error; err != nil {
				return fmt.Errorf("failed to import users: %w", err)
			}
		}
		if len(snap.Chats) > 0 {
			if err := tx.CreateInBatches(snap.Chats, importBatchSize).Error; err != nil {
				return fmt.Errorf("failed to import chats: %w", err)
			}
		}
		if len(snap.Participants) > 0 {
			if err := tx.CreateInBatches(snap.Participants, importBatchSize).Error; err != nil {
				return fmt.Errorf("failed to import participants: %w", err)
			}
		}
		if len(snap.Messages) > 0 {
			if err := tx.CreateInBatches(snap.Messages, importBatchSize).Error; err != nil {
				return fmt.Errorf("failed to import messages: %w", err)
			}
		}

		return nil
	})
}
