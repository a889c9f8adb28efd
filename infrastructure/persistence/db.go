package persistence

import (
	"fmt"

	"github.com/chronicle-ai/docpipe/internal/database"
)

// AutoMigrate creates or updates the relational schema this package owns.
// The chunk tables are managed by each vector store's Initialize, since the
// pgvector table needs a typed dimension AutoMigrate cannot express.
func AutoMigrate(db database.Database) error {
	if err := db.GORM().AutoMigrate(&DocumentModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
