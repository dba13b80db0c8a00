package database

import (
	"context"

	"gorm.io/gorm"
)

// ============================================================================
// Generic GORM Helpers
// ============================================================================
//
// These helpers reduce repetitive CRUD boilerplate across store implementation
// files. They are unexported (package-internal) and operate on the raw *gorm.DB
// to avoid coupling to GORMStore. Each helper handles standard concerns like
// context propagation and not-found error conversion.

// getByField retrieves a single record of type T by matching field=value.
// It converts gorm.ErrRecordNotFound to the provided notFoundErr for
// consistent domain error mapping.
//
// Example:
//
//	user, err := getByField[chat.User](db, ctx, "user_name", "alice", chat.ErrUserNotFound)
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) (*T, error) {
	var result T
	if err := db.WithContext(ctx).Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// countByIDs returns how many records of type T exist with the given primary
// key values. Callers use it to verify referenced rows exist before insert.
func countByIDs[T any](db *gorm.DB, ctx context.Context, field string, ids []int64) (int64, error) {
	var zero T
	var count int64
	err := db.WithContext(ctx).Model(&zero).Where(field+" IN ?", ids).Count(&count).Error
	return count, err
}
