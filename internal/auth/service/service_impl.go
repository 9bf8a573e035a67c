package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/session"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

type Service struct {
	log        *zap.Logger
	repo       domain.Repository
	codec      *session.Codec
	sessionTTL time.Duration
	genID      *snowflake.Node
}

func New(log *zap.Logger, cfg config.Config, repo domain.Repository, codec *session.Codec, genID *snowflake.Node) domain.Service {
	return &Service{
		log:        log.Named("auth.service"),
		repo:       repo,
		codec:      codec,
		sessionTTL: cfg.SessionTTL,
		genID:      genID,
	}
}

// IssueSession reads the user's roles from the store at issuance time.
// Client-supplied role input never reaches this path.
func (s *Service) IssueSession(ctx context.Context, userID snowflake.ID) (*domain.SessionResult, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles, err := s.repo.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	principal := domain.Principal{
		SubjectID: user.ID,
		Roles:     roles,
	}
	if user.DisplayName != nil {
		principal.Alias = *user.DisplayName
	}

	raw, expiresAt, err := s.codec.Issue(principal, s.sessionTTL)
	if err != nil {
		return nil, err
	}

	return &domain.SessionResult{
		RawToken:  raw,
		ExpiresAt: expiresAt,
		Principal: principal,
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	raw := strings.TrimSpace(rawToken)
	if raw == "" {
		return nil, domain.ErrMalformedToken
	}

	principal, err := s.codec.Verify(raw)
	if err != nil {
		return nil, err
	}

	// A deleted account invalidates its outstanding sessions.
	if _, err := s.repo.FindByID(ctx, principal.SubjectID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, err
	}

	return principal, nil
}

func (s *Service) ResolveOrCreateUser(ctx context.Context, email string, alias *string) (*domain.User, bool, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, false, domain.ErrInvalidEmail
	}

	user, err := s.repo.FindByEmail(ctx, normalized)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	user = &domain.User{
		ID:          s.genID.Generate(),
		Email:       normalized,
		DisplayName: alias,
		Kind:        domain.KindHuman,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			// Lost a create race; the existing account wins.
			existing, findErr := s.repo.FindByEmail(ctx, normalized)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	// Default roles apply to new accounts only.
	for _, role := range []string{domain.RoleUser, domain.RoleMember} {
		if err := s.repo.GrantRole(ctx, user.ID, role, now); err != nil && !errors.Is(err, domain.ErrRoleAlreadyGranted) {
			return nil, false, err
		}
	}

	s.log.Info("created user from verified email", zap.String("user_id", user.ID.String()))
	return user, true, nil
}

func (s *Service) CurrentUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
