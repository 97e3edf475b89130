package domain

import (
	"strings"
	"time"
)

// Product is a local catalog entry. Remote counterparts are tracked in
// the identity mapping table, keyed by the local product id.
type Product struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SKU       string    `gorm:"uniqueIndex:ux_products_sku" json:"sku"`
	Name      string    `json:"name"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// NormalizeSKU makes SKU comparison case and whitespace insensitive.
func NormalizeSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}
