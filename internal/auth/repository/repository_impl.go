package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func New(conn *gorm.DB, genID *snowflake.Node) (domain.Repository, domain.MagicLinkRepository) {
	r := &repo{db: conn, genID: genID}
	return r, r
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrUserExists
	}
	return err
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) Roles(ctx context.Context, userID snowflake.ID) ([]string, error) {
	var roles []string
	err := r.db.WithContext(ctx).
		Model(&domain.RoleGrant{}).
		Where("user_id = ?", userID).
		Order("role").
		Pluck("role", &roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repo) GrantRole(ctx context.Context, userID snowflake.ID, role string, grantedAt time.Time) error {
	grant := &domain.RoleGrant{
		ID:        r.genID.Generate(),
		UserID:    userID,
		Role:      role,
		GrantedAt: grantedAt,
	}
	err := r.db.WithContext(ctx).Create(grant).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrRoleAlreadyGranted
	}
	return err
}

func (r *repo) CreateLink(ctx context.Context, link *domain.MagicLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repo) FindByToken(ctx context.Context, token string) (*domain.MagicLink, error) {
	var link domain.MagicLink
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Consume is a single conditional update so concurrent verification
// attempts on the same token yield exactly one winner.
func (r *repo) Consume(ctx context.Context, token string, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&domain.MagicLink{}).
		Where("token = ? AND verified_at IS NULL AND failed_at IS NULL AND expires_at > ?", token, now).
		Update("verified_at", now)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) MarkFailed(ctx context.Context, token string, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&domain.MagicLink{}).
		Where("token = ? AND verified_at IS NULL AND failed_at IS NULL", token).
		Update("failed_at", now)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}
