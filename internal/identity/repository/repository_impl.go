package repository

import (
	"context"
	"time"

	"github.com/ferkcore/topadel/internal/identity/domain"
	pkgdb "github.com/ferkcore/topadel/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, entityType domain.EntityType, localID int64, naturalHash string) (*domain.Mapping, error) {
	if localID > 0 {
		var mapping domain.Mapping
		err := db.WithContext(ctx).Raw(
			`SELECT id, entity_type, local_id, external_id, natural_key_hash, metadata, created_at, updated_at
			 FROM identity_mappings WHERE entity_type = ? AND local_id = ?`,
			entityType,
			localID,
		).Scan(&mapping).Error
		if err != nil {
			return nil, err
		}
		if mapping.ID != 0 {
			return &mapping, nil
		}
	}

	if naturalHash == "" {
		return nil, nil
	}

	var mapping domain.Mapping
	err := db.WithContext(ctx).Raw(
		`SELECT id, entity_type, local_id, external_id, natural_key_hash, metadata, created_at, updated_at
		 FROM identity_mappings WHERE entity_type = ? AND natural_key_hash = ?
		 ORDER BY updated_at DESC LIMIT 1`,
		entityType,
		naturalHash,
	).Scan(&mapping).Error
	if err != nil {
		return nil, err
	}
	if mapping.ID == 0 {
		return nil, nil
	}
	return &mapping, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, mapping *domain.Mapping) error {
	now := time.Now().UTC()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`DELETE FROM identity_mappings WHERE entity_type = ? AND local_id = ?`,
			mapping.EntityType,
			mapping.LocalID,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			`INSERT INTO identity_mappings (id, entity_type, local_id, external_id, natural_key_hash, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			mapping.ID,
			mapping.EntityType,
			mapping.LocalID,
			mapping.ExternalID,
			mapping.NaturalHash,
			mapping.Metadata,
			mapping.CreatedAt,
			mapping.UpdatedAt,
		).Error
	})
	if pkgdb.IsDuplicateKeyErr(err) {
		// A concurrent upsert for the same local entity won the race;
		// the mapping it wrote points at the same remote record.
		return nil
	}
	return err
}
