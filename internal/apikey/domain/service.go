package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Generate issues a key for a system subject; human accounts are
	// refused with ErrForbidden from the auth domain.
	Generate(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	// Verify recomputes the tag and then checks record liveness.
	Verify(ctx context.Context, raw string) (*VerifiedKey, error)
	List(ctx context.Context, userID snowflake.ID) ([]Response, error)
	Revoke(ctx context.Context, keyID snowflake.ID) error
}

type CreateRequest struct {
	UserID        snowflake.ID
	Description   string
	ExpiresInDays int
}

// SecretResponse carries the raw key; it is shown once and never again.
type SecretResponse struct {
	KeyID  snowflake.ID `json:"key_id"`
	RawKey string       `json:"api_key"`
}

type Response struct {
	KeyID       snowflake.ID `json:"key_id"`
	UserID      snowflake.ID `json:"user_id"`
	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	RevokedAt   *time.Time   `json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time   `json:"last_used_at,omitempty"`
}

type VerifiedKey struct {
	KeyID  snowflake.ID
	UserID snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, key *APIKey) error
	FindByID(ctx context.Context, id snowflake.ID) (*APIKey, error)
	FindBySubjectSalt(ctx context.Context, userID snowflake.ID, salt string) (*APIKey, error)
	List(ctx context.Context, userID snowflake.ID) ([]APIKey, error)
	Revoke(ctx context.Context, id snowflake.ID, revokedAt time.Time) error
	TouchLastUsed(ctx context.Context, id snowflake.ID, usedAt time.Time) error
}
