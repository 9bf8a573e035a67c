package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	apikeydomain "github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/domain"
	authdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/clock"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/token"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const saltLength = 32

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  apikeydomain.Repository
	Users authdomain.Repository
}

type Service struct {
	log    *zap.Logger
	secret []byte
	repo   apikeydomain.Repository
	users  authdomain.Repository
	genID  *snowflake.Node
	clock  clock.Clock
}

func New(p Params) (apikeydomain.Service, error) {
	if strings.TrimSpace(p.Cfg.APIKeySecret) == "" {
		return nil, errors.New("api key secret is required")
	}
	return &Service{
		log:    p.Log.Named("apikey.service"),
		secret: []byte(p.Cfg.APIKeySecret),
		repo:   p.Repo,
		users:  p.Users,
		genID:  p.GenID,
		clock:  p.Clock,
	}, nil
}

func (s *Service) Generate(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.Kind != authdomain.KindSystem {
		return nil, authdomain.ErrForbidden
	}

	salt, err := token.Generate(saltLength)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	key := &apikeydomain.APIKey{
		ID:          s.genID.Generate(),
		UserID:      user.ID,
		Salt:        salt,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
	}
	if req.ExpiresInDays > 0 {
		expiresAt := now.AddDate(0, 0, req.ExpiresInDays)
		key.ExpiresAt = &expiresAt
	}

	if err := s.repo.Insert(ctx, key); err != nil {
		return nil, err
	}

	raw := user.ID.String() + "." + salt + "." + s.tag(user.ID, salt)
	s.log.Info("api key generated",
		zap.String("key_id", key.ID.String()),
		zap.String("user_id", user.ID.String()))
	return &apikeydomain.SecretResponse{KeyID: key.ID, RawKey: raw}, nil
}

// Verify runs the cryptographic check first, then the liveness check
// against the store; a revoked record fails even with a correct tag.
func (s *Service) Verify(ctx context.Context, raw string) (*apikeydomain.VerifiedKey, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 3 {
		return nil, apikeydomain.ErrMalformedKey
	}
	subjectID, err := snowflake.ParseString(parts[0])
	if err != nil {
		return nil, apikeydomain.ErrMalformedKey
	}
	salt, presented := parts[1], parts[2]

	expected := s.tag(subjectID, salt)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) != 1 {
		return nil, apikeydomain.ErrInvalidKey
	}

	key, err := s.repo.FindBySubjectSalt(ctx, subjectID, salt)
	if err != nil {
		if errors.Is(err, apikeydomain.ErrKeyNotFound) {
			return nil, apikeydomain.ErrInvalidKey
		}
		return nil, err
	}

	now := s.clock.Now()
	if !key.Live(now) {
		return nil, apikeydomain.ErrInvalidKey
	}

	if err := s.repo.TouchLastUsed(ctx, key.ID, now); err != nil {
		s.log.Warn("failed to touch api key", zap.String("key_id", key.ID.String()), zap.Error(err))
	}

	return &apikeydomain.VerifiedKey{KeyID: key.ID, UserID: key.UserID}, nil
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]apikeydomain.Response, error) {
	keys, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(keys))
	for i := range keys {
		k := &keys[i]
		resp = append(resp, apikeydomain.Response{
			KeyID:       k.ID,
			UserID:      k.UserID,
			Description: k.Description,
			CreatedAt:   k.CreatedAt,
			ExpiresAt:   k.ExpiresAt,
			RevokedAt:   k.RevokedAt,
			LastUsedAt:  k.LastUsedAt,
		})
	}
	return resp, nil
}

func (s *Service) Revoke(ctx context.Context, keyID snowflake.ID) error {
	if err := s.repo.Revoke(ctx, keyID, s.clock.Now()); err != nil {
		return err
	}
	s.log.Info("api key revoked", zap.String("key_id", keyID.String()))
	return nil
}

func (s *Service) tag(subjectID snowflake.ID, salt string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(subjectID.String() + "." + salt))
	return hex.EncodeToString(mac.Sum(nil))
}
