package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ferkcore/topadel/internal/catalog/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) FindBySKU(ctx context.Context, db *gorm.DB, sku string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM products WHERE sku = ? LIMIT 1`, domain.NormalizeSKU(sku)).
		Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM products WHERE id = ?`, id).
		Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var products []domain.Product
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM products ORDER BY id`).
		Scan(&products).Error
	return products, err
}

func (r *repository) Upsert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.SKU = domain.NormalizeSKU(product.SKU)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM products WHERE id = ?`, product.ID).Error; err != nil {
			return err
		}
		return tx.Create(product).Error
	})
}
