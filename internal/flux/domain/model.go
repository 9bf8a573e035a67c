// Package domain contains core types for the flux feed.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MaxBodyLength bounds a flux body in characters.
const MaxBodyLength = 500

// Flux is a short post on the feed. Boosts is a monotonic counter
// bumped atomically in the store.
type Flux struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	AuthorID  snowflake.ID  `gorm:"column:author_id;not null;index"`
	Body      string        `gorm:"column:body;type:text;not null"`
	ReplyToID *snowflake.ID `gorm:"column:reply_to_id;index"`
	Boosts    int64         `gorm:"column:boosts;not null;default:0"`
	CreatedAt time.Time     `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Flux) TableName() string { return "fluxes" }
