package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// withPreloads chains the given Preload clauses onto db.
func withPreloads(db *gorm.DB, preloads []string) *gorm.DB {
	for _, p := range preloads {
		db = db.Preload(p)
	}
	return db
}

// getByField fetches the single row of T matching field=value, applying
// preloads, and maps gorm.ErrRecordNotFound to notFoundErr.
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error, preloads ...string) (*T, error) {
	var row T
	err := withPreloads(db.WithContext(ctx), preloads).
		Where(field+" = ?", value).
		First(&row).Error
	if err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &row, nil
}

// listAll fetches every row of T, applying preloads.
func listAll[T any](db *gorm.DB, ctx context.Context, preloads ...string) ([]*T, error) {
	var rows []*T
	if err := withPreloads(db.WithContext(ctx), preloads).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// createWithID assigns entity a fresh UUID via idSetter when currentID is
// blank, then inserts it. A unique-constraint violation is reported as
// dupErr instead of the raw driver error, so callers never need to know
// which backend they're running against.
func createWithID[T any](db *gorm.DB, ctx context.Context, entity *T, idSetter func(*T, string), currentID string, dupErr error) (string, error) {
	id := currentID
	if id == "" {
		id = uuid.NewString()
		idSetter(entity, id)
	}
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if dupErr != nil && isUniqueConstraintError(err) {
			return "", dupErr
		}
		return "", err
	}
	return id, nil
}

// deleteWhere deletes every row of T matching the given column=value
// conditions, or notFoundErr if nothing matched.
func deleteWhere[T any](db *gorm.DB, ctx context.Context, conditions map[string]any, notFoundErr error) error {
	var zero T
	query := db.WithContext(ctx)
	for col, val := range conditions {
		query = query.Where(col+" = ?", val)
	}
	result := query.Delete(&zero)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr
	}
	return nil
}
