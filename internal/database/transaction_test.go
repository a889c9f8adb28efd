package database

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func newTxDB(t *testing.T) Database {
	t.Helper()
	ctx := context.Background()
	db, err := NewDatabase(ctx, "sqlite:///:memory:")
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Session(ctx).Exec("CREATE TABLE items (id TEXT PRIMARY KEY)").Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func countItems(t *testing.T, db Database) int64 {
	t.Helper()
	var count int64
	if err := db.Session(context.Background()).Raw("SELECT COUNT(*) FROM items").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestWithTransaction_Commit(t *testing.T) {
	ctx := context.Background()
	db := newTxDB(t)

	err := WithTransaction(ctx, db, func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO items (id) VALUES ('a')").Error
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	if got := countItems(t, db); got != 1 {
		t.Errorf("expected 1 item, got %d", got)
	}
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	db := newTxDB(t)

	sentinel := errors.New("abort")
	err := WithTransaction(ctx, db, func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO items (id) VALUES ('a')").Error; err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	if got := countItems(t, db); got != 0 {
		t.Errorf("expected rollback to leave 0 items, got %d", got)
	}
}
