package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

//go:generate mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Roles(ctx context.Context, userID snowflake.ID) ([]string, error)
	GrantRole(ctx context.Context, userID snowflake.ID, role string, grantedAt time.Time) error
}

type MagicLinkRepository interface {
	CreateLink(ctx context.Context, link *MagicLink) error
	FindByToken(ctx context.Context, token string) (*MagicLink, error)
	// Consume sets verified_at iff the record is still live and unexpired.
	// Exactly one concurrent caller wins; the rest see false.
	Consume(ctx context.Context, token string, now time.Time) (bool, error)
	// MarkFailed sets failed_at iff the record is not yet terminal.
	MarkFailed(ctx context.Context, token string, now time.Time) (bool, error)
}
