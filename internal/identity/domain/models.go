package domain

import (
	"crypto/md5"
	"encoding/hex"
	"hash/crc32"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EntityType enumerates the local entity kinds the mapping table covers.
type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntityProduct  EntityType = "product"
	EntityCart     EntityType = "cart"
)

// Mapping links one local entity to its remote counterpart. A row is
// unique on (entity_type, local_id); natural_key_hash supports the
// fallback lookup for guests and unlinked entities. Upsert replaces the
// row entirely, there is no history.
type Mapping struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	EntityType  EntityType        `gorm:"column:entity_type;not null;uniqueIndex:ux_identity_mappings_entity_local,priority:1" json:"entity_type"`
	LocalID     int64             `gorm:"column:local_id;not null;uniqueIndex:ux_identity_mappings_entity_local,priority:2" json:"local_id"`
	ExternalID  string            `gorm:"column:external_id;not null" json:"external_id"`
	NaturalHash string            `gorm:"column:natural_key_hash;index" json:"natural_key_hash,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Mapping) TableName() string { return "identity_mappings" }

// HashIdentity produces the stable natural-key hash for an identity
// value. Emails hash case-insensitively.
func HashIdentity(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}
	sum := md5.Sum([]byte(strings.ToLower(raw)))
	return hex.EncodeToString(sum[:])
}

// MaskIdentifier shortens an identifier for logs and order notes. Short
// values pass through unchanged.
func MaskIdentifier(value string) string {
	if len(value) <= 6 {
		return value
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// GuestLocalID derives a deterministic non-negative local id from a guest
// email so repeated guest checkouts with the same address share one
// mapping row.
func GuestLocalID(email string) int64 {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return 0
	}
	return int64(crc32.ChecksumIEEE([]byte(normalized)))
}
