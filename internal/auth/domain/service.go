package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	// IssueSession re-derives the user's roles from the credential store
	// and signs them into a session token.
	IssueSession(ctx context.Context, userID snowflake.ID) (*SessionResult, error)
	// Authenticate verifies a session token and confirms the subject
	// still exists. A deleted account invalidates all outstanding
	// sessions without a blocklist.
	Authenticate(ctx context.Context, rawToken string) (*Principal, error)
	// ResolveOrCreateUser finds the account bound to a verified email,
	// creating it with default roles on first login.
	ResolveOrCreateUser(ctx context.Context, email string, alias *string) (*User, bool, error)
	CurrentUser(ctx context.Context, id snowflake.ID) (*User, error)
}

type SessionResult struct {
	RawToken  string
	ExpiresAt time.Time
	Principal Principal
}
