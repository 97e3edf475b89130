package domain

import (
	"context"

	"gorm.io/gorm"

	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
)

// Repository persists the local product catalog. Lookups return nil on
// a miss.
type Repository interface {
	FindBySKU(ctx context.Context, db *gorm.DB, sku string) (*Product, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	List(ctx context.Context, db *gorm.DB) ([]Product, error)
	Upsert(ctx context.Context, db *gorm.DB, product *Product) error
}

// Resolver turns one order line into the remote product id. The second
// return reports whether any strategy produced an id.
type Resolver interface {
	Resolve(ctx context.Context, db *gorm.DB, line *orderdomain.Line) (int64, bool, error)
}
