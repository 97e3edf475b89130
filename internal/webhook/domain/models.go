package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Event is the audit row written for every accepted webhook delivery,
// including ones that matched no order. Identifier is stored masked.
type Event struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	EventID        string       `gorm:"column:event_id;not null;uniqueIndex:ux_webhook_events_event" json:"event_id"`
	OrderID        int64        `gorm:"index" json:"order_id"`
	Identifier     string       `json:"identifier,omitempty"`
	IdentifierKind string       `gorm:"column:identifier_kind" json:"identifier_kind,omitempty"`
	RawStatus      string       `gorm:"column:raw_status" json:"raw_status"`
	Amount         float64      `json:"amount,omitempty"`
	MappedStatus   string       `gorm:"column:mapped_status" json:"mapped_status,omitempty"`
	Duplicate      bool         `json:"duplicate"`
	OrderFound     bool         `gorm:"column:order_found" json:"order_found"`
	ReceivedAt     time.Time    `gorm:"column:received_at;not null" json:"received_at"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Event) TableName() string { return "webhook_events" }

// Result is what the HTTP layer turns into the webhook response body.
type Result struct {
	Received     bool   `json:"received"`
	OrderFound   bool   `json:"order_found"`
	Duplicate    bool   `json:"duplicate,omitempty"`
	OrderID      int64  `json:"-"`
	RawStatus    string `json:"-"`
	MappedStatus string `json:"-"`
}
