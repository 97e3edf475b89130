package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ferkcore/topadel/internal/webhook/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(event).Error
}

func (r *repository) Recent(ctx context.Context, db *gorm.DB, limit int) ([]domain.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var events []domain.Event
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM webhook_events ORDER BY received_at DESC, id DESC LIMIT ?`, limit).
		Scan(&events).Error
	return events, err
}
