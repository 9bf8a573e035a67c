// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Subject kinds. Only system subjects may hold api keys.
const (
	KindHuman  = "human"
	KindSystem = "system"
)

// Default roles assigned when a user is first created from a magic link.
const (
	RoleUser   = "user"
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User represents a platform account.
type User struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	Email       string            `gorm:"column:email;type:text;not null;uniqueIndex"`
	DisplayName *string           `gorm:"column:display_name;type:text"`
	Kind        string            `gorm:"column:kind;type:text;not null;default:human"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// RoleGrant records a role held by a user. The (user, role) pair is
// unique; granting an already-granted role is a conflict, not an upsert.
type RoleGrant struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;uniqueIndex:ux_role_grants_user_role,priority:1"`
	Role      string       `gorm:"column:role;type:text;not null;uniqueIndex:ux_role_grants_user_role,priority:2"`
	GrantedAt time.Time    `gorm:"column:granted_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RoleGrant) TableName() string { return "role_grants" }

// MagicLink is a single-use login token bound to an email address.
// Records are terminal once VerifiedAt or FailedAt is set and are kept
// for audit rather than deleted.
type MagicLink struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Token       string       `gorm:"column:token;type:text;not null;uniqueIndex"`
	Email       string       `gorm:"column:email;type:text;not null;index"`
	DisplayName *string      `gorm:"column:display_name;type:text"`
	ExpiresAt   time.Time    `gorm:"column:expires_at;not null"`
	VerifiedAt  *time.Time   `gorm:"column:verified_at"`
	FailedAt    *time.Time   `gorm:"column:failed_at"`
	CreatedAt   time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MagicLink) TableName() string { return "magic_links" }

// Terminal reports whether the link has already been consumed or failed.
func (m *MagicLink) Terminal() bool {
	return m.VerifiedAt != nil || m.FailedAt != nil
}

// Principal is the authenticated identity attached to a request. It is
// derived from the credential store at session issuance and carried in a
// signed token, never persisted as a row.
type Principal struct {
	SubjectID snowflake.ID `json:"subject_id"`
	Alias     string       `json:"alias,omitempty"`
	Roles     []string     `json:"roles"`
}

// HasAnyRole reports whether the principal holds at least one of the
// given roles.
func (p *Principal) HasAnyRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, want := range roles {
		for _, have := range p.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
