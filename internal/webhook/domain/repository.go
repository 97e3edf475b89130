package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	Recent(ctx context.Context, db *gorm.DB, limit int) ([]Event, error)
}
