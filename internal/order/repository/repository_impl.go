package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ferkcore/topadel/internal/order/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Create(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(order).Error; err != nil {
			return err
		}
		for i := range order.Lines {
			order.Lines[i].OrderID = order.ID
			if err := tx.Create(&order.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) Get(ctx context.Context, db *gorm.DB, orderID int64) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM orders WHERE id = ?`, orderID).
		Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return r.hydrate(ctx, db, &order)
}

func (r *repository) FindByPaymentToken(ctx context.Context, db *gorm.DB, token string) (*domain.Order, error) {
	return r.findByMeta(ctx, db, `payment_token = ?`, token)
}

func (r *repository) FindByAcquirerID(ctx context.Context, db *gorm.DB, acquirerID int64) (*domain.Order, error) {
	return r.findByMeta(ctx, db, `payment_acquirer_id = ?`, acquirerID)
}

func (r *repository) FindByCartID(ctx context.Context, db *gorm.DB, cartID int64) (*domain.Order, error) {
	return r.findByMeta(ctx, db, `remote_cart_id = ?`, cartID)
}

func (r *repository) findByMeta(ctx context.Context, db *gorm.DB, cond string, arg any) (*domain.Order, error) {
	var meta domain.PaymentMeta
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM order_payment_meta WHERE `+cond+` ORDER BY updated_at DESC LIMIT 1`, arg).
		Scan(&meta).Error
	if err != nil {
		return nil, err
	}
	if meta.OrderID == 0 {
		return nil, domain.ErrNotFound
	}
	return r.Get(ctx, db, meta.OrderID)
}

func (r *repository) hydrate(ctx context.Context, db *gorm.DB, order *domain.Order) (*domain.Order, error) {
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM order_lines WHERE order_id = ? ORDER BY id`, order.ID).
		Scan(&order.Lines).Error
	if err != nil {
		return nil, err
	}
	var meta domain.PaymentMeta
	err = db.WithContext(ctx).
		Raw(`SELECT * FROM order_payment_meta WHERE order_id = ?`, order.ID).
		Scan(&meta).Error
	if err != nil {
		return nil, err
	}
	order.Payment = meta
	return order, nil
}

func (r *repository) SavePaymentMeta(ctx context.Context, db *gorm.DB, meta *domain.PaymentMeta) error {
	meta.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM order_payment_meta WHERE order_id = ?`, meta.OrderID).Error; err != nil {
			return err
		}
		return tx.Create(meta).Error
	})
}

func (r *repository) UpdateStatus(ctx context.Context, db *gorm.DB, orderID int64, status domain.Status) error {
	return db.WithContext(ctx).
		Exec(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
			status, time.Now().UTC(), orderID).Error
}

func (r *repository) AddNote(ctx context.Context, db *gorm.DB, note *domain.Note) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(note).Error
}

func (r *repository) Notes(ctx context.Context, db *gorm.DB, orderID int64) ([]domain.Note, error) {
	var notes []domain.Note
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM order_notes WHERE order_id = ? ORDER BY created_at, id`, orderID).
		Scan(&notes).Error
	return notes, err
}
