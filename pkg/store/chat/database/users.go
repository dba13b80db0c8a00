package database

import (
	"context"

	"github.com/marmos91/talko/pkg/store/chat"
)

// ============================================
// USER OPERATIONS
// ============================================

func (s *GORMStore) GetUserByName(ctx context.Context, name string) (*chat.User, error) {
	return getByField[chat.User](s.db, ctx, "user_name", name, chat.ErrUserNotFound)
}

func (s *GORMStore) GetUserByID(ctx context.Context, id int64) (*chat.User, error) {
	return getByField[chat.User](s.db, ctx, "user_id", id, chat.ErrUserNotFound)
}

func (s *GORMStore) CreateUser(ctx context.Context, name string) (*chat.User, error) {
	user := chat.User{UserName: name}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, chat.ErrUserExists
		}
		return nil, err
	}
	return &user, nil
}
