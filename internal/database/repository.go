package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/chronicle-ai/docpipe/domain/storage"
	"gorm.io/gorm"
)

// ErrNotFound indicates the requested entity was not found.
var ErrNotFound = errors.New("entity not found")

// EntityMapper defines the interface for mapping between domain and database model types.
type EntityMapper[D any, E any] interface {
	ToDomain(entity E) D
	ToModel(domain D) E
}

// Repository provides generic persistence operations for database entities
// using storage.Option-based queries.
type Repository[D any, E any] struct {
	db     Database
	mapper EntityMapper[D, E]
	label  string
}

// NewRepository creates a new Repository. The label names the entity in
// wrapped error messages.
func NewRepository[D any, E any](db Database, mapper EntityMapper[D, E], label string) Repository[D, E] {
	return Repository[D, E]{
		db:     db,
		mapper: mapper,
		label:  label,
	}
}

// Find retrieves entities matching the given options.
func (r Repository[D, E]) Find(ctx context.Context, options ...storage.Option) ([]D, error) {
	var entities []E
	db := ApplyOptions(r.db.Session(ctx).Model(new(E)), options...)
	if result := db.Find(&entities); result.Error != nil {
		return nil, fmt.Errorf("find %s: %w", r.label, result.Error)
	}

	domains := make([]D, len(entities))
	for i, entity := range entities {
		domains[i] = r.mapper.ToDomain(entity)
	}
	return domains, nil
}

// FindOne retrieves a single entity matching the given options.
// Returns ErrNotFound (wrapped) when nothing matches.
func (r Repository[D, E]) FindOne(ctx context.Context, options ...storage.Option) (D, error) {
	var entity E
	var zero D
	db := ApplyOptions(r.db.Session(ctx), options...)
	if result := db.First(&entity); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, r.label)
		}
		return zero, fmt.Errorf("find one %s: %w", r.label, result.Error)
	}
	return r.mapper.ToDomain(entity), nil
}

// Count returns the number of entities matching the given options.
func (r Repository[D, E]) Count(ctx context.Context, options ...storage.Option) (int64, error) {
	var count int64
	db := ApplyConditions(r.db.Session(ctx).Model(new(E)), options...)
	if result := db.Count(&count); result.Error != nil {
		return 0, fmt.Errorf("count %s: %w", r.label, result.Error)
	}
	return count, nil
}

// DeleteBy removes entities matching the given options.
func (r Repository[D, E]) DeleteBy(ctx context.Context, options ...storage.Option) error {
	db := ApplyConditions(r.db.Session(ctx), options...)
	if result := db.Delete(new(E)); result.Error != nil {
		return fmt.Errorf("delete %s: %w", r.label, result.Error)
	}
	return nil
}

// DB returns a GORM session for operations the generic surface doesn't cover.
func (r Repository[D, E]) DB(ctx context.Context) *gorm.DB {
	return r.db.Session(ctx)
}

// Mapper returns the entity mapper for external use.
func (r Repository[D, E]) Mapper() EntityMapper[D, E] {
	return r.mapper
}
