package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the small local order-state vocabulary driven by the webhook
// state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOnHold    Status = "on-hold"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrNotFound    = errors.New("order_not_found")
	ErrKeyMismatch = errors.New("order_key_mismatch")
)

// Order is the store-side order record this engine synchronizes. Billing
// fields feed user registration and the payment order description.
type Order struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	OrderKey       string    `gorm:"column:order_key;not null" json:"order_key"`
	Status         Status    `gorm:"not null;default:'pending'" json:"status"`
	Currency       string    `gorm:"not null" json:"currency"`
	Total          float64   `gorm:"not null" json:"total"`
	DiscountTotal  float64   `json:"discount_total"`
	ShippingTotal  float64   `json:"shipping_total"`
	TaxTotal       float64   `json:"tax_total"`
	CustomerID     int64     `gorm:"column:customer_id" json:"customer_id"`
	Email          string    `gorm:"not null" json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone"`
	PhonePrefix    string    `json:"phone_prefix"`
	DocumentType   string    `json:"document_type,omitempty"`
	DocumentNumber string    `json:"document_number,omitempty"`
	BirthDate      string    `json:"birth_date,omitempty"`
	Address        string    `json:"address,omitempty"`
	CustomerIP     string    `json:"customer_ip,omitempty"`
	Lines          []Line    `gorm:"foreignKey:OrderID" json:"lines"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Payment is loaded alongside the order; may be zero-valued until the
	// first synchronization succeeds.
	Payment PaymentMeta `gorm:"-" json:"payment"`
}

func (Order) TableName() string { return "orders" }

// Line is one order line. RemoteProductID is the explicit per-line
// override that wins over every other resolution strategy.
type Line struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID         int64        `gorm:"index;not null" json:"order_id"`
	ProductID       int64        `gorm:"not null" json:"product_id"`
	SKU             string       `json:"sku"`
	Name            string       `json:"name"`
	Quantity        int          `gorm:"not null" json:"quantity"`
	UnitPrice       float64      `json:"unit_price"`
	Total           float64      `json:"total"`
	RemoteProductID int64        `gorm:"column:remote_product_id" json:"remote_product_id,omitempty"`
	ChosenTermIDs   string       `gorm:"column:chosen_term_ids" json:"chosen_term_ids,omitempty"`
	ChosenTermsText string       `gorm:"column:chosen_terms_text" json:"chosen_terms_text,omitempty"`
}

func (Line) TableName() string { return "order_lines" }

// PaymentMeta holds the remote identifiers this engine owns, stored per
// order. Created when synchronization first succeeds, mutated by the
// payment session builder and the webhook processor, never deleted
// automatically.
type PaymentMeta struct {
	OrderID              int64      `gorm:"primaryKey" json:"order_id"`
	RemoteCustomerID     int64      `json:"remote_customer_id"`
	RemoteCartID         int64      `gorm:"index" json:"remote_cart_id"`
	PaymentToken         string     `gorm:"index" json:"payment_token,omitempty"`
	PaymentRedirectURL   string     `json:"payment_redirect_url,omitempty"`
	PaymentExpirationUTC int64      `json:"payment_expiration_utc,omitempty"`
	PaymentAcquirerID    int64      `gorm:"index" json:"payment_acquirer_id,omitempty"`
	PaymentStatus        string     `json:"payment_status,omitempty"`
	LastRemoteStatus     string     `json:"last_remote_status,omitempty"`
	LastRemoteStatusAt   *time.Time `json:"last_remote_status_at,omitempty"`
	MissingProducts      string     `json:"missing_products,omitempty"`
	UpdatedAt            time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PaymentMeta) TableName() string { return "order_payment_meta" }

// Note is an order annotation written by the webhook processor and the
// synchronizers.
type Note struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID   int64        `gorm:"index;not null" json:"order_id"`
	Note      string       `gorm:"not null" json:"note"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Note) TableName() string { return "order_notes" }
