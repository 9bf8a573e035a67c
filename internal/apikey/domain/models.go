// Package domain contains types for api key issuance and verification.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// APIKey records the issuance of a key for a system subject. The raw
// composite `{subjectID}.{salt}.{tag}` is returned exactly once and is
// never stored; verification recomputes the tag from the server secret.
type APIKey struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	UserID      snowflake.ID `gorm:"column:user_id;not null;uniqueIndex:ux_api_keys_user_salt,priority:1"`
	Salt        string       `gorm:"column:salt;type:text;not null;uniqueIndex:ux_api_keys_user_salt,priority:2"`
	Description string       `gorm:"column:description;type:text"`
	CreatedAt   time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	ExpiresAt   *time.Time   `gorm:"column:expires_at"`
	RevokedAt   *time.Time   `gorm:"column:revoked_at"`
	LastUsedAt  *time.Time   `gorm:"column:last_used_at"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// Live reports whether the record can still authenticate at the given
// instant. Revocation is permanent.
func (k *APIKey) Live(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && now.After(*k.ExpiresAt) {
		return false
	}
	return true
}

var (
	ErrMalformedKey = errors.New("malformed api key")
	ErrInvalidKey   = errors.New("invalid api key")
	ErrKeyNotFound  = errors.New("api key not found")
)
