package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// WithTransaction executes fn within a transaction, committing on success or
// rolling back on error.
func WithTransaction(ctx context.Context, db Database, fn func(tx *gorm.DB) error) error {
	tx := db.Session(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
