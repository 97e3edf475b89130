package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository persists orders and their payment metadata. Get and the
// FindBy lookups return the order with lines and payment meta attached;
// a miss is ErrNotFound.
type Repository interface {
	Create(ctx context.Context, db *gorm.DB, order *Order) error
	Get(ctx context.Context, db *gorm.DB, orderID int64) (*Order, error)
	FindByPaymentToken(ctx context.Context, db *gorm.DB, token string) (*Order, error)
	FindByAcquirerID(ctx context.Context, db *gorm.DB, acquirerID int64) (*Order, error)
	FindByCartID(ctx context.Context, db *gorm.DB, cartID int64) (*Order, error)
	SavePaymentMeta(ctx context.Context, db *gorm.DB, meta *PaymentMeta) error
	UpdateStatus(ctx context.Context, db *gorm.DB, orderID int64, status Status) error
	AddNote(ctx context.Context, db *gorm.DB, note *Note) error
	Notes(ctx context.Context, db *gorm.DB, orderID int64) ([]Note, error)
}
