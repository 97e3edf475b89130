package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Find looks up a mapping by exact (entity_type, local_id) first,
	// then by natural key hash. Returns nil when neither matches; never
	// touches the remote platform.
	Find(ctx context.Context, db *gorm.DB, entityType EntityType, localID int64, naturalHash string) (*Mapping, error)

	// Upsert replaces the row keyed by (entity_type, local_id) entirely.
	Upsert(ctx context.Context, db *gorm.DB, mapping *Mapping) error
}
